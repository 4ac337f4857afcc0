package extract

import (
	"log/slog"
	"time"

	"invoiceparser/internal/extract/gemini"
)

// Config selects and tunes the extraction variant.
type Config struct {
	UseMock bool

	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32

	Timeout     time.Duration // per-attempt timeout
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// New chooses the live variant iff an API key is configured and the mock
// override is off; otherwise the deterministic mock. The choice is made once
// at construction time: callers receive a single Extractor and never branch
// on which variant is behind it. The live variant always comes wrapped in the
// retry decorator; the mock never does.
func New(cfg Config, logger *slog.Logger) Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UseMock || cfg.APIKey == "" {
		logger.Info("extract.variant", "variant", "mock", "forced", cfg.UseMock)
		return NewMockExtractor(logger)
	}

	client := gemini.NewClient(gemini.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	}, logger)

	logger.Info("extract.variant", "variant", "gemini", "model", client.Model())
	return NewRetryExtractor(NewGeminiExtractor(client, logger), RetryPolicy{
		MaxAttempts:    cfg.MaxAttempts,
		BaseDelay:      cfg.BaseDelay,
		MaxDelay:       cfg.MaxDelay,
		AttemptTimeout: cfg.Timeout,
	}, logger)
}
