// Package jobs wraps the asynq worker, scheduler, and task definitions.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRetentionSweep is the daily stale-membership cleanup task.
	TaskRetentionSweep = "retention:sweep"
	// TaskRetentionReport is the weekly would-delete report task.
	TaskRetentionReport = "retention:report"
)

// RetentionPayload parametrizes a retention run.
type RetentionPayload struct {
	DryRun bool `json:"dryRun"`
}

// NewRetentionSweepTask constructs the daily cleanup task.
func NewRetentionSweepTask() (*asynq.Task, error) {
	data, err := json.Marshal(RetentionPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRetentionSweep, data), nil
}

// NewRetentionReportTask constructs the weekly dry-run report task.
func NewRetentionReportTask() (*asynq.Task, error) {
	data, err := json.Marshal(RetentionPayload{DryRun: true})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRetentionReport, data), nil
}
