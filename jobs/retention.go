package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/keelworks/vaultward/internal/retention"
)

// RetentionJob runs the stale-membership sweep from the task queue.
type RetentionJob struct {
	Sweeper *retention.Sweeper
	Logger  *slog.Logger
}

// NewRetentionJob wires dependencies for the retention handlers.
func NewRetentionJob(sweeper *retention.Sweeper, logger *slog.Logger) *RetentionJob {
	return &RetentionJob{Sweeper: sweeper, Logger: logger}
}

// Handle processes retention sweep and report tasks.
func (j *RetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sweeper == nil {
		return errors.New("retention job: handler not configured")
	}
	var payload RetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	var (
		summary retention.Summary
		err     error
	)
	if payload.DryRun || t.Type() == TaskRetentionReport {
		summary, err = j.Sweeper.Report(ctx)
	} else {
		summary, err = j.Sweeper.Run(ctx)
	}
	if err != nil {
		j.logger().Error("retention run failed", slog.Any("error", err))
		return err
	}
	j.logger().Info("retention run finished",
		slog.Int("total", summary.Total),
		slog.Int("deleted", summary.Deleted),
		slog.Int("errors", len(summary.Errors)),
		slog.Bool("skipped", summary.Skipped),
	)
	return nil
}

func (j *RetentionJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
