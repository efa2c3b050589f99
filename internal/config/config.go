package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL        = "https://llm.api.cloud.yandex.net/v1"
	DefaultRequestTimeout = 30 * time.Second
	DefaultSessionTTL     = 24 * time.Hour
	DefaultSweepInterval  = 30 * time.Minute
)

// Config holds application configuration
type Config struct {
	TelegramToken string
	APIKey        string
	FolderID      string

	BaseURL        string
	Model          string
	RequestTimeout time.Duration

	DataDir       string
	StorageDriver string // file, sqlite3 or postgres
	StorageDSN    string

	QuestionBankPath string
	PromptsPath      string
	TeacherContact   string

	SessionTTL    time.Duration
	SweepInterval time.Duration

	LogLevel string
	Debug    bool
}

// MissingError lists the required variables that are not set.
type MissingError struct {
	Names []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Names, ", "))
}

// Load reads .env if present and then the process environment.
func Load() *Config {
	// .env is optional; the real environment wins
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from environment variables with defaults.
func FromEnv() *Config {
	cfg := &Config{
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		APIKey:           os.Getenv("YA_API_KEY"),
		FolderID:         os.Getenv("YA_FOLDER_ID"),
		BaseURL:          getEnv("YA_BASE_URL", DefaultBaseURL),
		Model:            os.Getenv("YA_MODEL"),
		RequestTimeout:   getDuration("REQUEST_TIMEOUT", DefaultRequestTimeout),
		DataDir:          getEnv("DATA_DIR", "data"),
		StorageDriver:    getEnv("STORAGE_DRIVER", "file"),
		StorageDSN:       os.Getenv("STORAGE_DSN"),
		QuestionBankPath: os.Getenv("QUESTION_BANK_PATH"),
		PromptsPath:      os.Getenv("PROMPTS_PATH"),
		TeacherContact:   os.Getenv("TEACHER_CONTACT"),
		SessionTTL:       getDuration("SESSION_TTL", DefaultSessionTTL),
		SweepInterval:    getDuration("SWEEP_INTERVAL", DefaultSweepInterval),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Debug:            getBool("DEBUG", false),
	}
	if cfg.Model == "" && cfg.FolderID != "" {
		cfg.Model = fmt.Sprintf("gpt://%s/yandexgpt-lite", cfg.FolderID)
	}
	return cfg
}

// Validate checks that every required value is present.
func (c *Config) Validate() error {
	var missing []string
	if c.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.APIKey == "" {
		missing = append(missing, "YA_API_KEY")
	}
	if c.FolderID == "" {
		missing = append(missing, "YA_FOLDER_ID")
	}
	if len(missing) > 0 {
		return &MissingError{Names: missing}
	}

	switch c.StorageDriver {
	case "file", "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.StorageDriver == "postgres" && c.StorageDSN == "" {
		return &MissingError{Names: []string{"STORAGE_DSN"}}
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	// plain seconds
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
