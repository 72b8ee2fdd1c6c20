package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_DefaultClaimFeeIsTwentySTX(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "CLAIM_FEE_MICROSTX")
	unsetEnvWithCleanup(t, "CLAIM_FEE_STX")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ClaimFeeMicroSTX != 20000000 {
		t.Fatalf("expected default claim fee of 20000000 micro-STX, got %d", cfg.ClaimFeeMicroSTX)
	}
}

func TestLoadConfig_ClaimFeeSTXAliasConverts(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "CLAIM_FEE_MICROSTX")
	setEnvWithCleanup(t, "CLAIM_FEE_STX", "25")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ClaimFeeMicroSTX != 25000000 {
		t.Fatalf("expected 25 STX to convert to 25000000 micro-STX, got %d", cfg.ClaimFeeMicroSTX)
	}
}

func TestLoadConfig_DefaultConfirmationPolling(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "CONFIRMATION_MAX_ATTEMPTS")
	unsetEnvWithCleanup(t, "CONFIRMATION_POLL_INTERVAL_MS")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ConfirmationMaxAttempts != 20 {
		t.Fatalf("expected default of 20 attempts, got %d", cfg.ConfirmationMaxAttempts)
	}
	if cfg.ConfirmationIntervalMs != 15000 {
		t.Fatalf("expected default 15000ms interval, got %d", cfg.ConfirmationIntervalMs)
	}
}

func TestLoadConfig_NonPositivePollingCoercedToDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "CONFIRMATION_MAX_ATTEMPTS", "0")
	setEnvWithCleanup(t, "CONFIRMATION_POLL_INTERVAL_MS", "-5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ConfirmationMaxAttempts != 20 {
		t.Fatalf("expected coerced attempts of 20, got %d", cfg.ConfirmationMaxAttempts)
	}
	if cfg.ConfirmationIntervalMs != 15000 {
		t.Fatalf("expected coerced interval of 15000ms, got %d", cfg.ConfirmationIntervalMs)
	}
}

func TestLoadConfig_PortOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9090")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected PORT to take precedence, got %q", cfg.ServerPort)
	}
}

func TestAllowedOrigins_SplitsAndTrims(t *testing.T) {
	cfg := Config{CORSAllowedOrigins: "https://betterbns.app, https://staging.betterbns.app"}

	origins := cfg.AllowedOrigins()
	if len(origins) != 2 {
		t.Fatalf("expected 2 origins, got %d", len(origins))
	}
	if origins[1] != "https://staging.betterbns.app" {
		t.Fatalf("expected trimmed origin, got %q", origins[1])
	}
}

func TestAllowedOrigins_EmptyFallsBackToWildcard(t *testing.T) {
	cfg := Config{CORSAllowedOrigins: " , "}

	origins := cfg.AllowedOrigins()
	if len(origins) != 1 || origins[0] != "*" {
		t.Fatalf("expected wildcard fallback, got %v", origins)
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
