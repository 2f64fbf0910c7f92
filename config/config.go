package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime configuration sourced from the environment.
type Config struct {
	Port               string        `mapstructure:"PORT"`
	MongoURI           string        `mapstructure:"MONGODB_URI"`
	DatabaseName       string        `mapstructure:"DATABASE_NAME"`
	JWTSecret          string        `mapstructure:"JWT_SECRET"`
	JWTTTLHours        int           `mapstructure:"JWT_TTL_HOURS"`
	CORSOrigins        string        `mapstructure:"CORS_ORIGINS"`
	UploadDir          string        `mapstructure:"UPLOAD_DIR"`
	BackupDir          string        `mapstructure:"BACKUP_DIR"`
	RateLimitMax       int           `mapstructure:"RATE_LIMIT_MAX"`
	RateLimitWindowSec int           `mapstructure:"RATE_LIMIT_WINDOW_SECONDS"`
	AuditRetentionDays int           `mapstructure:"AUDIT_RETENTION_DAYS"`
	ShutdownTimeout    time.Duration `mapstructure:"-"`
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("DATABASE_NAME", "healthcare")
	v.SetDefault("JWT_TTL_HOURS", 24)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("BACKUP_DIR", "backups")
	v.SetDefault("RATE_LIMIT_MAX", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("AUDIT_RETENTION_DAYS", 90)

	// Bind explicitly so Unmarshal sees plain env vars too.
	for _, key := range []string{
		"PORT", "MONGODB_URI", "DATABASE_NAME", "JWT_SECRET", "JWT_TTL_HOURS",
		"CORS_ORIGINS", "UPLOAD_DIR", "BACKUP_DIR", "RATE_LIMIT_MAX",
		"RATE_LIMIT_WINDOW_SECONDS", "AUDIT_RETENTION_DAYS",
	} {
		v.BindEnv(key)
	}

	// A missing .env file is fine; the environment still applies.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ShutdownTimeout = 15 * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate refuses configurations the server cannot safely run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.MongoURI) == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTTTLHours <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be positive, got %d", c.JWTTTLHours)
	}
	if c.AuditRetentionDays <= 0 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be positive, got %d", c.AuditRetentionDays)
	}
	return nil
}

// HTTPAddress returns the host:port pair the HTTP server binds to.
func (c *Config) HTTPAddress() string {
	return ":" + c.Port
}

// JWTTTL returns the token lifetime as a duration.
func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

// RateLimitWindow returns the rate limiter window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSec) * time.Second
}
