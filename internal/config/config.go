// Package config reads the JANUS runtime configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
)

type Config struct {
	DatabaseURL string     // JANUS_DATABASE_URL (built from JANUS_DB_* when empty)
	NATSURL     string     // JANUS_NATS_URL (optional, empty = no events)
	LogLevel    slog.Level // JANUS_LOG_LEVEL (default "info")

	// Validator settings
	ChurnConfig string // JANUS_CHURN_CONFIG (optional TOML file)

	// Artifact settings
	ReportsDir        string // JANUS_REPORTS_DIR (default "reports/model_cards")
	ReportsS3Bucket   string // JANUS_REPORTS_S3_BUCKET (enables S3 when set)
	ReportsS3Endpoint string // JANUS_REPORTS_S3_ENDPOINT (custom endpoint for MinIO)
	ReportsS3Region   string // JANUS_REPORTS_S3_REGION (default "us-east-1")
	ReportsS3Prefix   string // JANUS_REPORTS_S3_PREFIX (default "janus/model_cards")
	ReportsGitRepo    string // JANUS_REPORTS_GIT_REPO (enables git when set; path to clone)
	ReportsGitDir     string // JANUS_REPORTS_GIT_DIR (default "model_cards")
	ReportsGitBranch  string // JANUS_REPORTS_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:       os.Getenv("JANUS_DATABASE_URL"),
		NATSURL:           os.Getenv("JANUS_NATS_URL"),
		ChurnConfig:       os.Getenv("JANUS_CHURN_CONFIG"),
		ReportsDir:        envOrDefault("JANUS_REPORTS_DIR", "reports/model_cards"),
		ReportsS3Bucket:   os.Getenv("JANUS_REPORTS_S3_BUCKET"),
		ReportsS3Endpoint: os.Getenv("JANUS_REPORTS_S3_ENDPOINT"),
		ReportsS3Region:   envOrDefault("JANUS_REPORTS_S3_REGION", "us-east-1"),
		ReportsS3Prefix:   envOrDefault("JANUS_REPORTS_S3_PREFIX", "janus/model_cards"),
		ReportsGitRepo:    os.Getenv("JANUS_REPORTS_GIT_REPO"),
		ReportsGitDir:     envOrDefault("JANUS_REPORTS_GIT_DIR", "model_cards"),
		ReportsGitBranch:  envOrDefault("JANUS_REPORTS_GIT_BRANCH", "main"),
	}

	if err := c.LogLevel.UnmarshalText([]byte(envOrDefault("JANUS_LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("JANUS_LOG_LEVEL: %w", err)
	}

	if c.DatabaseURL == "" {
		u, err := databaseURLFromParts()
		if err != nil {
			return nil, err
		}
		c.DatabaseURL = u
	}
	return c, nil
}

// databaseURLFromParts assembles a Postgres URL from JANUS_DB_* variables.
func databaseURLFromParts() (string, error) {
	password := os.Getenv("JANUS_DB_PASSWORD")
	if password == "" {
		return "", fmt.Errorf("JANUS_DB_PASSWORD is required when JANUS_DATABASE_URL is not set")
	}
	port := envOrDefault("JANUS_DB_PORT", "5433")
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Errorf("JANUS_DB_PORT: invalid port %q", port)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(envOrDefault("JANUS_DB_USER", "janus"), password),
		Host:     net.JoinHostPort(envOrDefault("JANUS_DB_HOST", "localhost"), port),
		Path:     "/" + envOrDefault("JANUS_DB_NAME", "airflow"),
		RawQuery: "sslmode=disable",
	}
	return u.String(), nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
