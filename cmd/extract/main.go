// Command extract runs a single document through extraction and
// normalization without the server or database, printing the structured
// invoice to stdout. Useful for prompt tuning and smoke-testing credentials.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"invoiceparser/constants"
	"invoiceparser/internal/common"
	"invoiceparser/internal/extract"
	"invoiceparser/internal/invoice"
)

func main() {
	var (
		file    = flag.String("file", "", "path to the invoice document (pdf/jpeg/png/webp)")
		mime    = flag.String("mime", "", "content type override (default: derived from extension)")
		useMock = flag.Bool("mock", false, "force the deterministic mock extractor")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall deadline")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: extract -file invoice.pdf [-mime application/pdf] [-mock]")
		os.Exit(2)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", *file, err)
		os.Exit(1)
	}

	contentType := *mime
	if contentType == "" {
		contentType = constants.ContentTypeForExt(filepath.Ext(*file))
	}
	if !constants.IsSupportedContentType(contentType) {
		fmt.Fprintf(os.Stderr, "unsupported content type %q\n", contentType)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	extractor := extract.New(extract.Config{
		UseMock:     *useMock || cfg.Extraction.UseMock,
		APIKey:      cfg.Extraction.APIKey,
		BaseURL:     cfg.Extraction.BaseURL,
		Model:       cfg.Extraction.Model,
		Temperature: cfg.Extraction.Temperature,
		Timeout:     cfg.Extraction.Timeout,
		MaxAttempts: cfg.Extraction.MaxAttempts,
		BaseDelay:   cfg.Extraction.BaseDelay,
		MaxDelay:    cfg.Extraction.MaxDelay,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := extractor.Extract(ctx, data, contentType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extraction failed after %d attempt(s): %v\n", res.Attempts, err)
		os.Exit(1)
	}

	inv, warnings, err := invoice.Normalize(res.RawJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "normalization failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if res.ModelName != "" {
		fmt.Fprintf(os.Stderr, "model: %s, attempts: %d\n", res.ModelName, res.Attempts)
	}
}
