package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Env  string // development, production
	Port string

	DatabaseDriver string // postgres, sqlite
	DatabaseURL    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionName   string
	SessionSecret string
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration

	// StorageTimeout bounds every storage call made while serving a request.
	StorageTimeout time.Duration

	SMTP SMTP

	ClientURL string
	LogLevel  string
}

type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (s SMTP) Enabled() bool {
	return s.Host != "" && s.Port != "" && s.Username != "" && s.Password != "" && s.From != ""
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, reading configuration from environment")
	}

	cfg := Config{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "4000"),
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseURL:    getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=creddit port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		SessionName:    getEnv("SESSION_NAME", "qid"),
		SessionSecret:  getEnv("SESSION_SECRET", ""),
		ClientURL:      strings.TrimSuffix(getEnv("CLIENT_URL", "http://localhost:3000"), "/"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("SMTP_FROM"),
		},
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("config: REDIS_DB: %w", err)
	}
	if cfg.SessionTTL, err = time.ParseDuration(getEnv("SESSION_TTL", "336h")); err != nil {
		return Config{}, fmt.Errorf("config: SESSION_TTL: %w", err)
	}
	if cfg.ResetTokenTTL, err = time.ParseDuration(getEnv("RESET_TOKEN_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("config: RESET_TOKEN_TTL: %w", err)
	}
	if cfg.StorageTimeout, err = time.ParseDuration(getEnv("STORAGE_TIMEOUT", "5s")); err != nil {
		return Config{}, fmt.Errorf("config: STORAGE_TIMEOUT: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.SessionSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("config: SESSION_SECRET is required in production")
		}
		c.SessionSecret = "secret_key_change_me"
	}
	if c.StorageTimeout <= 0 {
		return fmt.Errorf("config: STORAGE_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
