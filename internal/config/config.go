// Package config loads application settings from environment variables, with
// an optional .env file for local development. Viper binds the variables onto
// a single Config struct so the rest of the code never reads the environment
// directly.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every runtime setting for the banking service. Monetary values
// are in kobo.
type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	MetricsPort string `mapstructure:"METRICS_PORT"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	TokenSecret     string `mapstructure:"TOKEN_SECRET"`
	TokenTTLMinutes int    `mapstructure:"TOKEN_TTL_MINUTES"`
	WebhookSecret   string `mapstructure:"WEBHOOK_SECRET"`

	RateLimitPrefix string `mapstructure:"RATE_LIMIT_PREFIX"`

	VFDWalletBaseURL  string `mapstructure:"VFD_WALLET_BASE_URL"`
	VFDCardsBaseURL   string `mapstructure:"VFD_CARDS_BASE_URL"`
	VFDBillsBaseURL   string `mapstructure:"VFD_BILLS_BASE_URL"`
	VFDMandateBaseURL string `mapstructure:"VFD_MANDATE_BASE_URL"`
	VFDTokenURL       string `mapstructure:"VFD_TOKEN_URL"`
	VFDStaticToken    string `mapstructure:"VFD_STATIC_TOKEN"`
	VFDConsumerKey    string `mapstructure:"VFD_CONSUMER_KEY"`
	VFDConsumerSecret string `mapstructure:"VFD_CONSUMER_SECRET"`
	VFDTimeoutSeconds int    `mapstructure:"VFD_TIMEOUT_SECONDS"`

	PaystackBaseURL   string `mapstructure:"PAYSTACK_BASE_URL"`
	PaystackSecretKey string `mapstructure:"PAYSTACK_SECRET_KEY"`

	ReconcileSchedule     string `mapstructure:"RECONCILE_SCHEDULE"`
	ReconcileStaleMinutes int    `mapstructure:"RECONCILE_STALE_MINUTES"`
	ReconcileBatchSize    int    `mapstructure:"RECONCILE_BATCH_SIZE"`
}

// TokenTTL returns the session token lifetime.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// VFDTimeout returns the per-request vendor HTTP timeout.
func (c Config) VFDTimeout() time.Duration {
	return time.Duration(c.VFDTimeoutSeconds) * time.Second
}

// Load reads configuration from the environment, layered over an optional
// .env file in the given path.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("METRICS_PORT", "9091")
	v.SetDefault("TOKEN_TTL_MINUTES", 24*60)
	v.SetDefault("RATE_LIMIT_PREFIX", "ovomonie:attempts")
	v.SetDefault("VFD_TIMEOUT_SECONDS", 30)
	v.SetDefault("RECONCILE_SCHEDULE", "*/5 * * * *")
	v.SetDefault("RECONCILE_STALE_MINUTES", 10)
	v.SetDefault("RECONCILE_BATCH_SIZE", 100)

	for _, key := range []string{
		"SERVER_PORT", "METRICS_PORT",
		"DATABASE_URL", "REDIS_URL", "RABBITMQ_URL",
		"TOKEN_SECRET", "TOKEN_TTL_MINUTES", "WEBHOOK_SECRET",
		"RATE_LIMIT_PREFIX",
		"VFD_WALLET_BASE_URL", "VFD_CARDS_BASE_URL", "VFD_BILLS_BASE_URL",
		"VFD_MANDATE_BASE_URL", "VFD_TOKEN_URL", "VFD_STATIC_TOKEN",
		"VFD_CONSUMER_KEY", "VFD_CONSUMER_SECRET", "VFD_TIMEOUT_SECONDS",
		"PAYSTACK_BASE_URL", "PAYSTACK_SECRET_KEY",
		"RECONCILE_SCHEDULE", "RECONCILE_STALE_MINUTES", "RECONCILE_BATCH_SIZE",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(cfg.TokenSecret) == "" {
		return Config{}, fmt.Errorf("TOKEN_SECRET is required")
	}
	if cfg.TokenTTLMinutes <= 0 {
		cfg.TokenTTLMinutes = 24 * 60
	}
	if cfg.ReconcileStaleMinutes <= 0 {
		cfg.ReconcileStaleMinutes = 10
	}
	if cfg.ReconcileBatchSize <= 0 {
		cfg.ReconcileBatchSize = 100
	}
	return cfg, nil
}
