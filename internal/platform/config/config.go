// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the gateway binary needs at startup.
type Config struct {
	Addr string

	DatabaseURL string
	RedisURL    string

	KafkaBrokers []string

	// AccessTokenSecret signs citizen/officer session tokens.
	AccessTokenSecret string
	AccessTokenTTL    time.Duration

	// ServiceTokenSecret signs short-lived service credentials for
	// delegation. There is no development default: a gateway that cannot
	// mint credentials must not start.
	ServiceTokenSecret string
	ServiceTokenTTL    time.Duration

	// DelegationTimeout bounds each outbound call to a department endpoint.
	DelegationTimeout time.Duration

	OutboxInterval  time.Duration
	OutboxBatchSize int
}

// FromEnv builds a Config from environment variables. It returns an error for
// the one fatal misconfiguration: a missing service token secret.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:               envOr("NEXUS_ADDR", ":8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		AccessTokenSecret:  envOr("ACCESS_TOKEN_SECRET", "dev-secret-change-in-production"),
		AccessTokenTTL:     envDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		ServiceTokenSecret: os.Getenv("SERVICE_TOKEN_SECRET"),
		ServiceTokenTTL:    envDuration("SERVICE_TOKEN_TTL", 5*time.Minute),
		DelegationTimeout:  envDuration("DELEGATION_TIMEOUT", 10*time.Second),
		OutboxInterval:     envDuration("OUTBOX_INTERVAL", 2*time.Second),
		OutboxBatchSize:    envInt("OUTBOX_BATCH_SIZE", 100),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if cfg.ServiceTokenSecret == "" {
		return Config{}, errors.New("SERVICE_TOKEN_SECRET is required: the gateway cannot mint service credentials without it")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
