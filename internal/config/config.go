// Package config loads server configuration from the environment with an
// optional yaml overlay. Environment variables always win.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Billing   BillingConfig   `yaml:"billing"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Env  string `yaml:"env"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	ExpirationHours int    `yaml:"expiration_hours"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
}

type SensorConfig struct {
	AlertDelaySeconds int `yaml:"alert_delay_seconds"`
}

type BillingConfig struct {
	DueDays int `yaml:"due_days"`
}

// Load reads the optional yaml file at path (empty path skips it), then
// applies .env and process environment overrides and defaults.
func Load(path string) (*Config, error) {
	// .env is optional; ignore absence.
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, err
		}
	}

	overlayEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func overlayEnv(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("PORT"); v != "" { // Cloud Run style override
		cfg.Server.Port = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Server.Env = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := envInt("JWT_EXPIRATION_HOURS"); v > 0 {
		cfg.Auth.ExpirationHours = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := envInt("RATE_LIMIT_PER_MINUTE"); v > 0 {
		cfg.RateLimit.PerMinute = v
	}
	if v := envInt("ALERT_DELAY_SECONDS"); v > 0 {
		cfg.Sensor.AlertDelaySeconds = v
	}
	if v := envInt("BILLING_DUE_DAYS"); v > 0 {
		cfg.Billing.DueDays = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Auth.ExpirationHours == 0 {
		cfg.Auth.ExpirationHours = 24
	}
	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = 120
	}
	if cfg.Sensor.AlertDelaySeconds == 0 {
		cfg.Sensor.AlertDelaySeconds = 60
	}
	if cfg.Billing.DueDays == 0 {
		cfg.Billing.DueDays = 30
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
