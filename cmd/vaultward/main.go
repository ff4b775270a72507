package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/keelworks/vaultward/internal/app"
	"github.com/keelworks/vaultward/internal/audit"
	"github.com/keelworks/vaultward/internal/directory"
	"github.com/keelworks/vaultward/internal/platform/db"
	"github.com/keelworks/vaultward/internal/policy"
	"github.com/keelworks/vaultward/internal/provision"
	"github.com/keelworks/vaultward/internal/vault"
	"github.com/keelworks/vaultward/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	resolver, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		logger.Error("load policy table", slog.Any("error", err))
		os.Exit(1)
	}

	sessions := vault.NewSessionCache(vault.SessionCacheConfig{
		IdentityURL:  cfg.VaultIdentityURL,
		ClientID:     cfg.VaultClientID,
		ClientSecret: cfg.VaultClientSecret,
		SafetyMargin: cfg.TokenSafetyMargin,
	})
	vaultClient := vault.NewClient(cfg.VaultAPIURL, cfg.VaultOrgID, sessions, logger)
	directoryClient := directory.NewClient(cfg.DirectoryURL)
	if err := directoryClient.Ping(ctx); err != nil {
		logger.Warn("directory ping", slog.Any("error", err))
	}

	auditor := audit.NewLogger(dbpool)
	provisionService := provision.NewService(directoryClient, vaultClient, resolver, auditor, logger)
	provisionHandler := provision.NewHandler(logger, provisionService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		ProvisionHandler: provisionHandler,
		JobHandler:       jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
