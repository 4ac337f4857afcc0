package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"invoiceparser/internal/invoice"
)

// APIError is a non-2xx response from the Gemini endpoint. Callers classify
// it by status code (429/5xx retryable, other 4xx not).
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini status %d: %s", e.StatusCode, e.Body)
}

// GenerateInvoice sends the document inline (base64) together with the target
// schema as output-format instructions and returns the model's JSON payload.
// The returned bytes are the model's claim; schema validation happens in the
// caller.
func (c *Client) GenerateInvoice(ctx context.Context, data []byte, contentType string) (json.RawMessage, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"doc_bytes", len(data),
		"content_type", contentType,
	)

	body := map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{
				{"text": buildPrompt()},
				{"inline_data": map[string]any{
					"mime_type": contentType,
					"data":      base64.StdEncoding.EncodeToString(data),
				}},
			},
		}},
		"generationConfig": map[string]any{
			"temperature":      c.cfg.Temperature,
			"maxOutputTokens":  c.cfg.MaxOutputTokens,
			"responseMimeType": "application/json",
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var gc struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &gc); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gc.Candidates) == 0 || len(gc.Candidates[0].Content.Parts) == 0 {
		c.logger.Error("llm.extract.no_candidates",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("no candidates in gemini response")
	}

	content := stripFences(strings.TrimSpace(gc.Candidates[0].Content.Parts[0].Text))
	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"content_bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return json.RawMessage(content), nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini http error: %w", err)
	}
	defer func(rc io.ReadCloser) {
		if cerr := rc.Close(); cerr != nil {
			c.logger.Warn("gemini response body close error", "error", cerr)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: buf.String()}
	}
	return buf.Bytes(), nil
}

func buildPrompt() string {
	parts := []string{
		"You are an expert invoice data extractor.",
		"Extract all relevant information from the attached invoice document.",
		"Be precise and accurate. If a field is not present, omit it.",
		"For dates, always use YYYY-MM-DD format.",
		"For currency, use standard 3-letter codes (USD, EUR, etc.).",
		"Extract ALL line items with their details.",
		"Return ONLY JSON that matches this JSON Schema:\n" + mustJSON(invoice.BuildInvoiceJSONSchema()),
	}
	return strings.Join(parts, " ")
}

// stripFences removes a ```json ... ``` wrapper some models insist on adding
// even when asked for bare JSON.
func stripFences(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
