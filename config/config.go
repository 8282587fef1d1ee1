package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                 string `mapstructure:"PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	GatewayToken         string `mapstructure:"GATEWAY_TOKEN"`
	// Shared with the course, quiz and review services for /internal routes.
	InternalServiceToken string `mapstructure:"INTERNAL_SERVICE_TOKEN"`
	AllowedOrigins       string `mapstructure:"ALLOWED_ORIGINS"`

	RedisURL    string `mapstructure:"REDIS_URL"`
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	CatalogSeedPath        string        `mapstructure:"CATALOG_SEED_PATH"`
	CatalogSeedKey         string        `mapstructure:"CATALOG_SEED_KEY"`
	CatalogRefreshInterval time.Duration `mapstructure:"CATALOG_REFRESH_INTERVAL"`

	CloudflareAccountID string `mapstructure:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID       string `mapstructure:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret   string `mapstructure:"R2_ACCESS_KEY_SECRET"`
	R2BucketName        string `mapstructure:"R2_BUCKET_NAME"`

	LeaderboardCacheTTL time.Duration `mapstructure:"LEADERBOARD_CACHE_TTL"`

	StreakDayMode  string `mapstructure:"STREAK_DAY_MODE"`
	StreakTimezone string `mapstructure:"STREAK_TIMEZONE"`
}

var keys = []string{
	"PORT", "DATABASE_URL", "GATEWAY_TOKEN", "INTERNAL_SERVICE_TOKEN", "ALLOWED_ORIGINS",
	"REDIS_URL", "RABBITMQ_URL",
	"CATALOG_SEED_PATH", "CATALOG_SEED_KEY", "CATALOG_REFRESH_INTERVAL",
	"CLOUDFLARE_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_ACCESS_KEY_SECRET", "R2_BUCKET_NAME",
	"LEADERBOARD_CACHE_TTL",
	"STREAK_DAY_MODE", "STREAK_TIMEZONE",
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	v := viper.New()
	v.SetDefault("PORT", "5200")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("CATALOG_REFRESH_INTERVAL", "5m")
	v.SetDefault("LEADERBOARD_CACHE_TTL", "30s")
	v.SetDefault("STREAK_DAY_MODE", "rolling")
	v.SetDefault("STREAK_TIMEZONE", "UTC")
	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.GatewayToken == "" {
		return fmt.Errorf("GATEWAY_TOKEN is not set, service cannot authenticate Gateway")
	}
	if c.InternalServiceToken != "" && c.InternalServiceToken == c.GatewayToken {
		return fmt.Errorf("INTERNAL_SERVICE_TOKEN must differ from GATEWAY_TOKEN")
	}
	switch c.StreakDayMode {
	case "rolling", "calendar":
	default:
		return fmt.Errorf("STREAK_DAY_MODE must be rolling or calendar, got %q", c.StreakDayMode)
	}
	if _, err := time.LoadLocation(c.StreakTimezone); err != nil {
		return fmt.Errorf("invalid STREAK_TIMEZONE %q: %w", c.StreakTimezone, err)
	}
	if c.CatalogRefreshInterval <= 0 {
		return fmt.Errorf("CATALOG_REFRESH_INTERVAL must be positive")
	}
	return nil
}

// Origins returns ALLOWED_ORIGINS trimmed and re-joined the way Fiber's CORS config expects.
func (c *Config) Origins() string {
	list := strings.Split(c.AllowedOrigins, ",")
	for i, origin := range list {
		list[i] = strings.TrimSpace(origin)
	}
	return strings.Join(list, ",")
}

// R2Enabled reports whether R2 credentials are configured.
func (c *Config) R2Enabled() bool {
	return c.CloudflareAccountID != "" && c.R2AccessKeyID != "" && c.R2BucketName != ""
}
