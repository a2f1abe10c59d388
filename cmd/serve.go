package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devpantoja/vai-me-bancar-back/internal/api"
	"github.com/devpantoja/vai-me-bancar-back/internal/app"
	"github.com/devpantoja/vai-me-bancar-back/internal/store"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var runMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the pending-charge scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), runMigrations)
		},
	}
	cmd.Flags().BoolVar(&runMigrations, "migrate", false, "apply database migrations before serving")
	return cmd
}

func runServe(ctx context.Context, runMigrations bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("starting fundraising service", "port", cfg.ServerPort, "env", cfg.AppEnv)

	if runMigrations {
		if err := store.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	dbpool, err := openPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	events := connectPublisher(cfg.RabbitMQURL, logger)
	defer events.Close()

	repository := store.NewPostgresRepository(dbpool)
	service, loc, err := newService(cfg, repository, events, logger)
	if err != nil {
		return err
	}

	var limiter api.RateLimiter
	if cfg.PaymentRateLimitPerMinute > 0 {
		if redisClient := connectRedis(cfg.RedisURL, logger); redisClient != nil {
			defer redisClient.Close()
			limiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
		}
	}

	handlers := api.NewHandlers(service, loc, cfg.IsLocal(), logger)
	router := api.NewRouter(handlers, limiter, cfg.PaymentRateLimitPerMinute)

	jobs := app.NewJobs(service, logger, cfg.PendingReconcileMinAge(), cfg.PendingReconcileBatchSize, 0)
	scheduler := app.NewScheduler(jobs, logger, cfg.PendingReconcileSchedule)
	scheduler.Start()
	logger.Info("scheduler started")

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("server stopped unexpectedly: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("shutdown complete")
	return runErr
}
