package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_BOT_TOKEN", "YA_API_KEY", "YA_FOLDER_ID", "YA_BASE_URL", "YA_MODEL",
		"REQUEST_TIMEOUT", "DATA_DIR", "STORAGE_DRIVER", "STORAGE_DSN", "SESSION_TTL",
		"SWEEP_INTERVAL", "LOG_LEVEL", "DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestValidateListsEveryMissingName(t *testing.T) {
	clearEnv(t)

	err := FromEnv().Validate()

	var missing *MissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"TELEGRAM_BOT_TOKEN", "YA_API_KEY", "YA_FOLDER_ID"}, missing.Names)
	assert.Contains(t, err.Error(), "YA_FOLDER_ID")
}

func TestValidatePartiallyMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("YA_FOLDER_ID", "folder")

	err := FromEnv().Validate()

	var missing *MissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"YA_API_KEY"}, missing.Names)
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("YA_API_KEY", "key")
	t.Setenv("YA_FOLDER_ID", "b1g")

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "gpt://b1g/yandexgpt-lite", cfg.Model)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "file", cfg.StorageDriver)
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL)
}

func TestDurationParsing(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", DefaultRequestTimeout},
		{"10s", 10 * time.Second},
		{"45", 45 * time.Second},
		{"nonsense", DefaultRequestTimeout},
		{"-5s", DefaultRequestTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("REQUEST_TIMEOUT", tt.value)
			assert.Equal(t, tt.want, getDuration("REQUEST_TIMEOUT", DefaultRequestTimeout))
		})
	}
}

func TestValidateStorageDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("YA_API_KEY", "key")
	t.Setenv("YA_FOLDER_ID", "b1g")
	t.Setenv("STORAGE_DRIVER", "mongo")

	assert.Error(t, FromEnv().Validate())

	t.Setenv("STORAGE_DRIVER", "postgres")
	var missing *MissingError
	require.True(t, errors.As(FromEnv().Validate(), &missing))
	assert.Equal(t, []string{"STORAGE_DSN"}, missing.Names)
}
