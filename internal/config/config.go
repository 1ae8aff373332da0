// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string

	// GitHub App credentials used to sign upstream assertions.
	GitHubAPIURL    string
	AppClientID     string
	PrivateKeyPath  string
	AssertionTTL    time.Duration
	UpstreamTimeout time.Duration

	// Optional webhook poked on repository selection (fire-and-forget).
	SelectNotifyURL string

	Answer AnswerConfig
}

// AnswerConfig controls the chat answer backend. An empty APIKey
// disables answers; sends then surface an in-band error message.
type AnswerConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		FrontendURL:     getEnv("FRONTEND_URL", ""),
		GitHubAPIURL:    getEnv("GITHUB_API_URL", "https://api.github.com"),
		AppClientID:     getEnv("GITHUB_APP_CLIENT_ID", ""),
		PrivateKeyPath:  getEnv("GITHUB_PRIVATE_KEY_PATH", ""),
		AssertionTTL:    getEnvDuration("GITHUB_ASSERTION_TTL", 10*time.Minute),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		SelectNotifyURL: getEnv("SELECT_NOTIFY_URL", ""),
		Answer: AnswerConfig{
			APIKey:  getEnv("ANSWER_API_KEY", ""),
			Model:   getEnv("ANSWER_MODEL", "mistral-large-latest"),
			BaseURL: getEnv("ANSWER_BASE_URL", "https://api.mistral.ai/v1"),
			Timeout: getEnvDuration("ANSWER_TIMEOUT", 60*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.GitHubAPIURL == "" {
		return fmt.Errorf("GITHUB_API_URL cannot be empty")
	}
	if c.AppClientID == "" {
		return fmt.Errorf("GITHUB_APP_CLIENT_ID cannot be empty")
	}
	if c.PrivateKeyPath == "" {
		return fmt.Errorf("GITHUB_PRIVATE_KEY_PATH cannot be empty")
	}
	if c.AssertionTTL <= 0 {
		return fmt.Errorf("GITHUB_ASSERTION_TTL must be > 0")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be > 0")
	}
	if c.Answer.Timeout <= 0 {
		return fmt.Errorf("ANSWER_TIMEOUT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
