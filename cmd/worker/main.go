package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/keelworks/vaultward/internal/app"
	"github.com/keelworks/vaultward/internal/platform/cache"
	"github.com/keelworks/vaultward/internal/retention"
	"github.com/keelworks/vaultward/internal/vault"
	"github.com/keelworks/vaultward/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessions := vault.NewSessionCache(vault.SessionCacheConfig{
		IdentityURL:  cfg.VaultIdentityURL,
		ClientID:     cfg.VaultClientID,
		ClientSecret: cfg.VaultClientSecret,
		SafetyMargin: cfg.TokenSafetyMargin,
	})
	vaultClient := vault.NewClient(cfg.VaultAPIURL, cfg.VaultOrgID, sessions, logger)

	sweeper := retention.NewSweeper(retention.SweeperConfig{
		Members: vaultClient,
		Locker:  cache.NewMutex(redisClient, "retention:sweep:lock", time.Hour),
		Policy: retention.Policy{
			NeverActivatedAfter: cfg.RetentionNeverActivatedAfter,
			DisabledStaleAfter:  cfg.RetentionDisabledStaleAfter,
			InactiveAfter:       cfg.RetentionInactiveAfter,
		},
		Pause:  cfg.RetentionDeletePause,
		Logger: logger,
	})
	retentionJob := jobs.NewRetentionJob(sweeper, logger)

	sweepTask, err := jobs.NewRetentionSweepTask()
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}
	reportTask, err := jobs.NewRetentionReportTask()
	if err != nil {
		logger.Error("build report task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRetentionSweep, Handler: retentionJob.Handle},
			{Type: jobs.TaskRetentionReport, Handler: retentionJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
			{Spec: "0 8 * * 1", Task: reportTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
