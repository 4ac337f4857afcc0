package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "gemini-1.5-flash", cfg.Extraction.Model)
	assert.Equal(t, 3, cfg.Extraction.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Extraction.Timeout)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DB_URL", "postgres://app@localhost/invoices")
	t.Setenv("USE_MOCK_AI", "true")
	t.Setenv("EXTRACTION_MAX_ATTEMPTS", "5")
	t.Setenv("EXTRACTION_BASE_DELAY", "250ms")

	cfg := LoadConfig()
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.True(t, cfg.Extraction.UseMock)
	assert.Equal(t, 5, cfg.Extraction.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Extraction.BaseDelay)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("EXTRACTION_MAX_ATTEMPTS", "many")
	t.Setenv("EXTRACTION_BASE_DELAY", "soon")

	cfg := LoadConfig()
	assert.Equal(t, 3, cfg.Extraction.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Extraction.BaseDelay)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	base := func() *Config { return LoadConfig() }

	cfg := base()
	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.DSN = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Backend = "tape"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Backend = "minio"
	assert.Error(t, cfg.Validate(), "minio requires endpoint and credentials")

	cfg = base()
	cfg.Extraction.MaxAttempts = 0
	assert.Error(t, cfg.Validate())
}

func TestAppErrorWrapping(t *testing.T) {
	err := NewAppError("DB_ERROR", "insert failed", ErrInternal)
	assert.Contains(t, err.Error(), "DB_ERROR")
	assert.ErrorIs(t, err, ErrInternal)

	assert.NoError(t, WrapError(nil, "context"))
	wrapped := WrapError(ErrNotFound, "loading document")
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.Contains(t, wrapped.Error(), "loading document")
}
