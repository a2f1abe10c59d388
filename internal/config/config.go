/**
 * @description
 * This package handles configuration for the fundraising service. It uses Viper
 * to read environment variables, with an optional .env file in the working
 * directory, and normalises the values the rest of the service relies on.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultServerPort             = "8080"
	defaultBusinessTimezone       = "America/Sao_Paulo"
	defaultEventsExchange         = "fundraising.events"
	defaultRedisRateLimitPrefix   = "vaquinha:rate_limit"
	defaultGatewayTimeoutSeconds  = 15
	defaultChargeDueDays          = 3
	defaultReconcileMinAgeMinutes = 10
	defaultReconcileBatchSize     = 50
)

// Config holds all the configuration variables for the fundraising service.
type Config struct {
	ServerPort                    string `mapstructure:"SERVER_PORT"`
	DatabaseURL                   string `mapstructure:"DATABASE_URL"`
	AppEnv                        string `mapstructure:"APP_ENV"`
	AsaasAPIBaseURL               string `mapstructure:"ASAAS_API_BASE_URL"`
	AsaasAPIKey                   string `mapstructure:"ASAAS_API_KEY"`
	AsaasWebhookToken             string `mapstructure:"ASAAS_WEBHOOK_TOKEN"`
	GatewayTimeoutSeconds         int    `mapstructure:"GATEWAY_TIMEOUT_SECONDS"`
	BusinessTimezone              string `mapstructure:"BUSINESS_TIMEZONE"`
	RabbitMQURL                   string `mapstructure:"RABBITMQ_URL"`
	EventsExchange                string `mapstructure:"EVENTS_EXCHANGE"`
	RedisURL                      string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix          string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	PaymentRateLimitPerMinute     int    `mapstructure:"PAYMENT_RATE_LIMIT_PER_MINUTE"`
	PendingReconcileSchedule      string `mapstructure:"PENDING_RECONCILE_SCHEDULE"`
	PendingReconcileMinAgeMinutes int    `mapstructure:"PENDING_RECONCILE_MIN_AGE_MINUTES"`
	PendingReconcileBatchSize     int    `mapstructure:"PENDING_RECONCILE_BATCH_SIZE"`
	CategoryLabelLow              string `mapstructure:"CATEGORY_LABEL_LOW"`
	CategoryLabelMid              string `mapstructure:"CATEGORY_LABEL_MID"`
	CategoryLabelHigh             string `mapstructure:"CATEGORY_LABEL_HIGH"`
	ChargeDueDays                 int    `mapstructure:"CHARGE_DUE_DAYS"`
}

// GatewayTimeout is the bound applied to every payment gateway call.
func (c Config) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutSeconds) * time.Second
}

// PendingReconcileMinAge is how old a pending charge must be before the sweep checks it.
func (c Config) PendingReconcileMinAge() time.Duration {
	return time.Duration(c.PendingReconcileMinAgeMinutes) * time.Minute
}

// IsLocal reports whether development-only endpoints may be exposed.
func (c Config) IsLocal() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "local")
}

// LoadConfig reads configuration from environment variables and an optional
// .env file found in path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", defaultServerPort)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("ASAAS_API_BASE_URL", "https://sandbox.asaas.com/api/v3")
	viper.SetDefault("GATEWAY_TIMEOUT_SECONDS", defaultGatewayTimeoutSeconds)
	viper.SetDefault("BUSINESS_TIMEZONE", defaultBusinessTimezone)
	viper.SetDefault("EVENTS_EXCHANGE", defaultEventsExchange)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", defaultRedisRateLimitPrefix)
	viper.SetDefault("PAYMENT_RATE_LIMIT_PER_MINUTE", 20)
	viper.SetDefault("PENDING_RECONCILE_SCHEDULE", "*/5 * * * *")
	viper.SetDefault("PENDING_RECONCILE_MIN_AGE_MINUTES", defaultReconcileMinAgeMinutes)
	viper.SetDefault("PENDING_RECONCILE_BATCH_SIZE", defaultReconcileBatchSize)
	viper.SetDefault("CATEGORY_LABEL_LOW", "Mão de Vaca")
	viper.SetDefault("CATEGORY_LABEL_MID", "Mão de Vaca Médio")
	viper.SetDefault("CATEGORY_LABEL_HIGH", "Shark Tank")
	viper.SetDefault("CHARGE_DUE_DAYS", defaultChargeDueDays)

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("APP_ENV")
	_ = viper.BindEnv("ASAAS_API_BASE_URL", "ASAAS_API_BASE_URL", "ASAAS_BASE_URL")
	_ = viper.BindEnv("ASAAS_API_KEY")
	_ = viper.BindEnv("ASAAS_WEBHOOK_TOKEN")
	_ = viper.BindEnv("GATEWAY_TIMEOUT_SECONDS")
	_ = viper.BindEnv("BUSINESS_TIMEZONE")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENTS_EXCHANGE")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("PAYMENT_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("PENDING_RECONCILE_SCHEDULE")
	_ = viper.BindEnv("PENDING_RECONCILE_MIN_AGE_MINUTES")
	_ = viper.BindEnv("PENDING_RECONCILE_BATCH_SIZE")
	_ = viper.BindEnv("CATEGORY_LABEL_LOW")
	_ = viper.BindEnv("CATEGORY_LABEL_MID")
	_ = viper.BindEnv("CATEGORY_LABEL_HIGH")
	_ = viper.BindEnv("CHARGE_DUE_DAYS")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("failed to read config file; using environment values", "component", "config", "error", err)
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.AsaasAPIBaseURL = strings.TrimSuffix(strings.TrimSpace(config.AsaasAPIBaseURL), "/")
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = defaultRedisRateLimitPrefix
	}
	if strings.TrimSpace(config.EventsExchange) == "" {
		config.EventsExchange = defaultEventsExchange
	}
	if strings.TrimSpace(config.BusinessTimezone) == "" {
		config.BusinessTimezone = defaultBusinessTimezone
	}

	if config.GatewayTimeoutSeconds <= 0 {
		slog.Warn("GATEWAY_TIMEOUT_SECONDS must be positive; using default", "component", "config", "value", config.GatewayTimeoutSeconds, "default", defaultGatewayTimeoutSeconds)
		config.GatewayTimeoutSeconds = defaultGatewayTimeoutSeconds
	}
	if config.ChargeDueDays <= 0 {
		slog.Warn("CHARGE_DUE_DAYS must be positive; using default", "component", "config", "value", config.ChargeDueDays, "default", defaultChargeDueDays)
		config.ChargeDueDays = defaultChargeDueDays
	}
	if config.PaymentRateLimitPerMinute < 0 {
		slog.Warn("PAYMENT_RATE_LIMIT_PER_MINUTE cannot be negative; disabling", "component", "config", "value", config.PaymentRateLimitPerMinute)
		config.PaymentRateLimitPerMinute = 0
	}
	if config.PendingReconcileMinAgeMinutes < 0 {
		slog.Warn("PENDING_RECONCILE_MIN_AGE_MINUTES cannot be negative; using default", "component", "config", "value", config.PendingReconcileMinAgeMinutes)
		config.PendingReconcileMinAgeMinutes = defaultReconcileMinAgeMinutes
	}
	if config.PendingReconcileBatchSize <= 0 {
		slog.Warn("PENDING_RECONCILE_BATCH_SIZE must be positive; using default", "component", "config", "value", config.PendingReconcileBatchSize)
		config.PendingReconcileBatchSize = defaultReconcileBatchSize
	}

	return
}
