package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, key := range []string{"PORT", "SERVER_PORT", "BUSINESS_TIMEZONE", "GATEWAY_TIMEOUT_SECONDS", "CHARGE_DUE_DAYS", "CATEGORY_LABEL_HIGH", "APP_ENV"} {
		unsetEnvWithCleanup(t, key)
	}

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.BusinessTimezone != "America/Sao_Paulo" {
		t.Fatalf("unexpected default timezone %q", cfg.BusinessTimezone)
	}
	if cfg.GatewayTimeout() != 15*time.Second {
		t.Fatalf("expected 15s gateway timeout, got %s", cfg.GatewayTimeout())
	}
	if cfg.ChargeDueDays != 3 {
		t.Fatalf("expected 3 charge due days, got %d", cfg.ChargeDueDays)
	}
	if cfg.CategoryLabelHigh != "Shark Tank" {
		t.Fatalf("unexpected high tier label %q", cfg.CategoryLabelHigh)
	}
	if cfg.IsLocal() {
		t.Fatal("default environment must not be local")
	}
}

func TestLoadConfig_PortOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "9000")
	setEnvWithCleanup(t, "PORT", "10000")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "10000" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_CoercesInvalidNumbers(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "GATEWAY_TIMEOUT_SECONDS", "-5")
	setEnvWithCleanup(t, "PAYMENT_RATE_LIMIT_PER_MINUTE", "-1")
	setEnvWithCleanup(t, "PENDING_RECONCILE_BATCH_SIZE", "0")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GatewayTimeoutSeconds != 15 {
		t.Fatalf("expected gateway timeout reset to 15, got %d", cfg.GatewayTimeoutSeconds)
	}
	if cfg.PaymentRateLimitPerMinute != 0 {
		t.Fatalf("expected negative rate limit to disable limiting, got %d", cfg.PaymentRateLimitPerMinute)
	}
	if cfg.PendingReconcileBatchSize != 50 {
		t.Fatalf("expected batch size reset to 50, got %d", cfg.PendingReconcileBatchSize)
	}
}

func TestLoadConfig_ReadsDotEnvFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "ASAAS_WEBHOOK_TOKEN")
	unsetEnvWithCleanup(t, "APP_ENV")

	dir := t.TempDir()
	if err := os.WriteFile(dir+"/.env", []byte("ASAAS_WEBHOOK_TOKEN=whk_from_file\nAPP_ENV=local\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AsaasWebhookToken != "whk_from_file" {
		t.Fatalf("expected webhook token from .env, got %q", cfg.AsaasWebhookToken)
	}
	if !cfg.IsLocal() {
		t.Fatal("expected APP_ENV=local from .env")
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
