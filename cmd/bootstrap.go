package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/devpantoja/vai-me-bancar-back/internal/app"
	"github.com/devpantoja/vai-me-bancar-back/internal/config"
	"github.com/devpantoja/vai-me-bancar-back/internal/store"
	"github.com/devpantoja/vai-me-bancar-back/pkg/asaasclient"
	rmrabbit "github.com/devpantoja/vai-me-bancar-back/pkg/rabbitmq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func loadConfig() (config.Config, error) {
	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found; using environment variables", "component", "bootstrap")
	}
	return config.LoadConfig(".")
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func openPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL must be configured")
	}
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts behind poolers.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return pool, nil
}

// connectRedis returns nil when Redis is not configured or unreachable; rate
// limiting is then disabled.
func connectRedis(redisURL string, logger *slog.Logger) *redis.Client {
	if strings.TrimSpace(redisURL) == "" {
		logger.Warn("redis url missing; payment rate limiting disabled")
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("redis url parse failed; payment rate limiting disabled", "error", err)
		return nil
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis ping failed; payment rate limiting disabled", "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected")
	return client
}

// connectPublisher falls back to a logging publisher when RabbitMQ is unavailable.
func connectPublisher(rabbitURL string, logger *slog.Logger) rmrabbit.Publisher {
	if strings.TrimSpace(rabbitURL) == "" {
		logger.Warn("rabbitmq url missing; events will only be logged")
		return &rmrabbit.EventProducerFallback{Logger: logger}
	}
	producer, err := rmrabbit.NewEventProducer(rabbitURL)
	if err != nil {
		logger.Warn("rabbitmq producer unavailable; using fallback", "error", err)
		return &rmrabbit.EventProducerFallback{Logger: logger}
	}
	logger.Info("rabbitmq producer connected")
	return producer
}

func newService(cfg config.Config, repo store.Repository, events app.EventPublisher, logger *slog.Logger) (*app.Service, *time.Location, error) {
	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid BUSINESS_TIMEZONE %q: %w", cfg.BusinessTimezone, err)
	}

	gateway := asaasclient.NewClient(cfg.AsaasAPIBaseURL, cfg.AsaasAPIKey, cfg.AsaasWebhookToken, cfg.GatewayTimeout())
	gateway.Logger = logger.With("component", "asaas_client")
	if strings.TrimSpace(cfg.AsaasAPIKey) == "" {
		logger.Warn("ASAAS_API_KEY not set; gateway calls will be rejected by the provider")
	}
	if strings.TrimSpace(cfg.AsaasWebhookToken) == "" {
		logger.Warn("ASAAS_WEBHOOK_TOKEN not set; every webhook will be rejected")
	}

	service := app.NewService(repo, gateway, events, logger, app.Options{
		CategoryLabels: app.CategoryLabels{
			Low:  cfg.CategoryLabelLow,
			Mid:  cfg.CategoryLabelMid,
			High: cfg.CategoryLabelHigh,
		},
		Location:       loc,
		GatewayTimeout: cfg.GatewayTimeout(),
		ChargeDueDays:  cfg.ChargeDueDays,
		EventsExchange: cfg.EventsExchange,
	})
	return service, loc, nil
}
