package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Classifier ClassifierConfig
	Triage     TriageConfig
	CheckIn    CheckInConfig
	OTEL       OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ClassifierConfig holds severity classifier configuration
type ClassifierConfig struct {
	APIKey string
	Model  string
}

// TriageConfig holds priority scoring configuration
type TriageConfig struct {
	SeverityWeight float64
	WaitWeight     float64
	WaitCapMinutes float64
	DampingFactor  float64
}

// CheckInConfig holds periodic check-in configuration
type CheckInConfig struct {
	Interval        time.Duration
	DeliveryTimeout time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "mediq"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Classifier: ClassifierConfig{
			APIKey: getEnv("CLASSIFIER_API_KEY", ""),
			Model:  getEnv("CLASSIFIER_MODEL", "gpt-4o-mini"),
		},
		Triage: TriageConfig{
			SeverityWeight: getEnvAsFloat("TRIAGE_SEVERITY_WEIGHT", 0.7),
			WaitWeight:     getEnvAsFloat("TRIAGE_WAIT_WEIGHT", 0.3),
			WaitCapMinutes: getEnvAsFloat("TRIAGE_WAIT_CAP_MINUTES", 120),
			DampingFactor:  getEnvAsFloat("TRIAGE_DAMPING_FACTOR", 0.8),
		},
		CheckIn: CheckInConfig{
			Interval:        getEnvAsDuration("CHECKIN_INTERVAL", 30*time.Minute),
			DeliveryTimeout: getEnvAsDuration("CHECKIN_DELIVERY_TIMEOUT", 5*time.Second),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "mediq-backend"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Triage.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (t *TriageConfig) validate() error {
	if t.SeverityWeight < 0 || t.WaitWeight < 0 {
		return fmt.Errorf("triage weights must be non-negative")
	}
	if sum := t.SeverityWeight + t.WaitWeight; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("triage weights must sum to 1, got %.3f", sum)
	}
	if t.WaitCapMinutes <= 0 {
		return fmt.Errorf("wait cap must be positive, got %.1f", t.WaitCapMinutes)
	}
	if t.DampingFactor <= 0 || t.DampingFactor > 1 {
		return fmt.Errorf("damping factor must be in (0,1], got %.2f", t.DampingFactor)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
