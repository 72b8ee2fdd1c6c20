/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the domain-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	StacksAPIBaseURL         string `mapstructure:"STACKS_API_BASE_URL"`
	StacksNetwork            string `mapstructure:"STACKS_NETWORK"`
	TreasuryAddress          string `mapstructure:"TREASURY_ADDRESS"`
	ClaimFeeMicroSTX         int64  `mapstructure:"CLAIM_FEE_MICROSTX"`
	ConfirmationMaxAttempts  int    `mapstructure:"CONFIRMATION_MAX_ATTEMPTS"`
	ConfirmationIntervalMs   int    `mapstructure:"CONFIRMATION_POLL_INTERVAL_MS"`
	ContractAddress          string `mapstructure:"CONTRACT_ADDRESS"`
	BNSContractName          string `mapstructure:"BNS_CONTRACT_NAME"`
	SBTContractName          string `mapstructure:"SBT_CONTRACT_NAME"`
	SessionSigningKey        string `mapstructure:"SESSION_SIGNING_KEY"`
	PinataJWT                string `mapstructure:"PINATA_JWT"`
	PinataGateway            string `mapstructure:"PINATA_GATEWAY"`
	CORSAllowedOrigins       string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	ClaimRateLimitPerMinute  int    `mapstructure:"CLAIM_RATE_LIMIT_PER_MINUTE"`
	CheckRateLimitPerMinute  int    `mapstructure:"CHECK_RATE_LIMIT_PER_MINUTE"`
	ReconcileIntervalMinutes int    `mapstructure:"RECONCILE_INTERVAL_MINUTES"`
	ReconcileBatchLimit      int    `mapstructure:"RECONCILE_BATCH_LIMIT"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("STACKS_API_BASE_URL", "https://api.testnet.hiro.so")
	viper.SetDefault("STACKS_NETWORK", "testnet")
	viper.SetDefault("CLAIM_FEE_MICROSTX", 20000000) // 20 STX
	viper.SetDefault("CONFIRMATION_MAX_ATTEMPTS", 20)
	viper.SetDefault("CONFIRMATION_POLL_INTERVAL_MS", 15000)
	viper.SetDefault("BNS_CONTRACT_NAME", "betterbns-registry")
	viper.SetDefault("SBT_CONTRACT_NAME", "betterbns-sbt")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "betterbns:rate_limit")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("CLAIM_RATE_LIMIT_PER_MINUTE", 10)
	viper.SetDefault("CHECK_RATE_LIMIT_PER_MINUTE", 120)
	viper.SetDefault("RECONCILE_INTERVAL_MINUTES", 30)
	viper.SetDefault("RECONCILE_BATCH_LIMIT", 100)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("STACKS_API_BASE_URL")
	_ = viper.BindEnv("STACKS_NETWORK")
	_ = viper.BindEnv("TREASURY_ADDRESS")
	_ = viper.BindEnv("CLAIM_FEE_MICROSTX")
	_ = viper.BindEnv("CLAIM_FEE_STX")
	_ = viper.BindEnv("CONFIRMATION_MAX_ATTEMPTS")
	_ = viper.BindEnv("CONFIRMATION_POLL_INTERVAL_MS")
	_ = viper.BindEnv("CONTRACT_ADDRESS")
	_ = viper.BindEnv("BNS_CONTRACT_NAME")
	_ = viper.BindEnv("SBT_CONTRACT_NAME")
	_ = viper.BindEnv("SESSION_SIGNING_KEY")
	_ = viper.BindEnv("PINATA_JWT")
	_ = viper.BindEnv("PINATA_GATEWAY")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("CLAIM_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("CHECK_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RECONCILE_INTERVAL_MINUTES")
	_ = viper.BindEnv("RECONCILE_BATCH_LIMIT")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.TreasuryAddress = strings.TrimSpace(config.TreasuryAddress)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "betterbns:rate_limit"
	}

	// Allow specifying the claim fee in whole STX via CLAIM_FEE_STX.
	if viper.IsSet("CLAIM_FEE_STX") {
		feeStr := strings.TrimSpace(viper.GetString("CLAIM_FEE_STX"))
		if feeStr != "" {
			feeValue, parseErr := strconv.ParseFloat(feeStr, 64)
			if parseErr != nil {
				log.Printf("level=warn component=config msg=\"invalid CLAIM_FEE_STX\" value=%q err=%v", feeStr, parseErr)
			} else {
				config.ClaimFeeMicroSTX = int64(math.Round(feeValue * 1_000_000))
			}
		}
	}

	if config.ClaimFeeMicroSTX <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive claim fee configured; using default\" fee_microstx=%d", config.ClaimFeeMicroSTX)
		config.ClaimFeeMicroSTX = 20000000
	}

	if config.ConfirmationMaxAttempts <= 0 {
		config.ConfirmationMaxAttempts = 20
	}
	if config.ConfirmationIntervalMs <= 0 {
		config.ConfirmationIntervalMs = 15000
	}
	if config.ClaimRateLimitPerMinute < 0 {
		config.ClaimRateLimitPerMinute = 0
	}
	if config.CheckRateLimitPerMinute < 0 {
		config.CheckRateLimitPerMinute = 0
	}
	if config.ReconcileIntervalMinutes <= 0 {
		config.ReconcileIntervalMinutes = 30
	}
	if config.ReconcileBatchLimit <= 0 {
		config.ReconcileBatchLimit = 100
	}

	return
}

// AllowedOrigins splits the configured CORS origin list.
func (c Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}
