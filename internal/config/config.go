package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DB_USERNAME string
	DB_PASSWORD string
	DB_HOST     string
	DB_PORT     string
	DB_NAME     string
	DISABLE_TLS string

	HTTP_ADDR string

	// Token signing
	JWT_SECRET string
	JWT_TTL    time.Duration

	// Session storage backend: "postgres" or "redis"
	SESSION_STORE  string
	REDIS_ADDR     string
	REDIS_PASSWORD string
	REDIS_DB       int

	// Outgoing mail for verification codes
	SMTP_HOST string
	SMTP_PORT int
	SMTP_USER string
	SMTP_PASS string
	MAIL_FROM string

	// Otel
	OTEL_EXPORTER_OTLP_ENDPOINT string
}

func ReadConfig() *Config {
	return &Config{
		DB_USERNAME: os.Getenv("DB_USERNAME"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_NAME:     os.Getenv("DB_NAME"),
		DISABLE_TLS: os.Getenv("DISABLE_TLS"),

		HTTP_ADDR: GetEnvOrDefault("HTTP_ADDR", "0.0.0.0:6060"),

		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_TTL:    getDurationOrDefault("JWT_TTL", 7*24*time.Hour),

		SESSION_STORE:  GetEnvOrDefault("SESSION_STORE", "postgres"),
		REDIS_ADDR:     GetEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),
		REDIS_DB:       getIntOrDefault("REDIS_DB", 0),

		SMTP_HOST: os.Getenv("SMTP_HOST"),
		SMTP_PORT: getIntOrDefault("SMTP_PORT", 587),
		SMTP_USER: os.Getenv("SMTP_USER"),
		SMTP_PASS: os.Getenv("SMTP_PASS"),
		MAIL_FROM: GetEnvOrDefault("MAIL_FROM", "OneFlow <no-reply@oneflow.local>"),

		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return defaultValue
}

// getDurationOrDefault accepts Go duration strings ("24h") or plain seconds.
func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
