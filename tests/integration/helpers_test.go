//go:build integration

package integration

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekmjt/MediQ/internal/infrastructure/clients/postgres"
	"github.com/ekmjt/MediQ/internal/infrastructure/clients/redis"
	"github.com/ekmjt/MediQ/pkg/config"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	cfg := &config.RedisConfig{
		Host:     getEnv("TEST_REDIS_HOST", "localhost"),
		Port:     getEnvAsInt("TEST_REDIS_PORT", 6379),
		Password: getEnv("TEST_REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("TEST_REDIS_DB", 0),
	}

	client, err := redis.NewClient(cfg)
	require.NoError(t, err, "Failed to create redis client")
	return client
}

func newTestPostgresClient(t *testing.T) *postgres.Client {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvAsInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "mediq_test"),
		SSLMode:  "disable",
	}

	client, err := postgres.NewClient(cfg, nil)
	require.NoError(t, err, "Failed to create postgres client")

	ensureQueueSchema(t, client)
	return client
}

func ensureQueueSchema(t *testing.T, client *postgres.Client) {
	t.Helper()

	_, err := client.DB().ExecContext(context.Background(), `
		CREATE TABLE IF NOT EXISTS queue_entries (
			id UUID PRIMARY KEY,
			patient_id TEXT NOT NULL,
			severity_score DOUBLE PRECISION NOT NULL,
			priority_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			category TEXT NOT NULL,
			wait_minutes DOUBLE PRECISION NOT NULL DEFAULT 0,
			position INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'waiting',
			demotion_factor DOUBLE PRECISION NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_checked_at TIMESTAMPTZ
		)
	`)
	require.NoError(t, err, "Failed to ensure queue schema")

	_, err = client.DB().ExecContext(context.Background(), `
		CREATE UNIQUE INDEX IF NOT EXISTS queue_entries_one_waiting_per_patient
		ON queue_entries (patient_id) WHERE status = 'waiting'
	`)
	require.NoError(t, err, "Failed to ensure waiting-entry index")

	_, err = client.DB().ExecContext(context.Background(), `TRUNCATE TABLE queue_entries`)
	require.NoError(t, err, "Failed to truncate queue table")
}
