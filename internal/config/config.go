// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIURL is the backend stage used when no API URL is configured.
const DefaultAPIURL = "https://0f8597zelg.execute-api.us-east-1.amazonaws.com/dev"

// Thread store backends.
const (
	ThreadStoreSQLite = "sqlite"
	ThreadStoreFile   = "file"
	ThreadStoreMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	APIURL               string
	Port                 string
	FrontendURL          string
	ThreadStore          string
	DBPath               string
	ThreadsFile          string
	TrainingPollInterval time.Duration
	DefaultAccountID     string
	Backend              string // Agent backend for blueprints: "langgraph" or "agentcore"
	LogLevel             string
	ConversationLog      ConversationLogConfig
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("STUDIO_CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	apiURL := getEnv("STUDIO_API_URL", "")
	if apiURL == "" {
		apiURL = getEnv("NEXT_PUBLIC_API_URL", "")
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	cfg := &Config{
		APIURL:               strings.TrimRight(apiURL, "/"),
		Port:                 getEnv("STUDIO_PORT", "8787"),
		FrontendURL:          getEnv("STUDIO_FRONTEND_URL", ""),
		ThreadStore:          strings.ToLower(getEnv("STUDIO_THREAD_STORE", ThreadStoreSQLite)),
		DBPath:               getEnv("STUDIO_DB_PATH", "./data/studio.db"),
		ThreadsFile:          getEnv("STUDIO_THREADS_FILE", "./data/threads.json"),
		TrainingPollInterval: getEnvDuration("STUDIO_TRAINING_POLL_INTERVAL", 10*time.Second),
		DefaultAccountID:     getEnv("STUDIO_DEFAULT_ACCOUNT", ""),
		Backend:              getEnv("STUDIO_BACKEND", "langgraph"),
		LogLevel:             getEnv("STUDIO_LOG_LEVEL", "info"),
		ConversationLog: ConversationLogConfig{
			Enabled:   getEnvBool("STUDIO_CONVERSATION_LOG_ENABLED", false),
			Dir:       getEnv("STUDIO_CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("STUDIO_API_URL cannot be empty")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("STUDIO_API_URL must be an http(s) URL")
	}
	if c.Port == "" {
		return fmt.Errorf("STUDIO_PORT cannot be empty")
	}
	switch c.ThreadStore {
	case ThreadStoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("STUDIO_DB_PATH cannot be empty")
		}
	case ThreadStoreFile:
		if c.ThreadsFile == "" {
			return fmt.Errorf("STUDIO_THREADS_FILE cannot be empty")
		}
	case ThreadStoreMemory:
	default:
		return fmt.Errorf("STUDIO_THREAD_STORE must be one of sqlite, file, memory")
	}
	if c.TrainingPollInterval <= 0 {
		return fmt.Errorf("STUDIO_TRAINING_POLL_INTERVAL must be > 0")
	}
	if c.Backend != "langgraph" && c.Backend != "agentcore" {
		return fmt.Errorf("STUDIO_BACKEND must be langgraph or agentcore")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("STUDIO_CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("STUDIO_CONVERSATION_LOG_QUEUE_SIZE must be > 0")
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

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("15s") or bare seconds ("15").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
