package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceparser/internal/extract/gemini"
	"invoiceparser/internal/invoice"
)

func geminiStub(t *testing.T, status int, modelText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("x-goog-api-key"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"stubbed failure"}}`)
			return
		}
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": modelText}},
				},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newStubbedGemini(t *testing.T, baseURL string) *GeminiExtractor {
	t.Helper()
	client := gemini.NewClient(gemini.Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "gemini-test",
	}, nil)
	return NewGeminiExtractor(client, nil)
}

func TestGeminiExtractorSuccess(t *testing.T) {
	srv := geminiStub(t, http.StatusOK, "```json\n{\"vendor_name\": \"Acme Corp\", \"total_amount\": 42.5}\n```")
	defer srv.Close()

	g := newStubbedGemini(t, srv.URL)
	res, err := g.Extract(context.Background(), []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "gemini-test", res.ModelName)
	assert.Equal(t, 1, res.Attempts)
	assert.JSONEq(t, `{"vendor_name": "Acme Corp", "total_amount": 42.5}`, string(res.RawJSON))
}

func TestGeminiExtractorClassifiesHTTPErrors(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		transient bool
	}{
		{"rate limit is transient", http.StatusTooManyRequests, true},
		{"server error is transient", http.StatusInternalServerError, true},
		{"bad gateway is transient", http.StatusBadGateway, true},
		{"bad credentials are permanent", http.StatusUnauthorized, false},
		{"bad request is permanent", http.StatusBadRequest, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := geminiStub(t, tc.status, "")
			defer srv.Close()

			_, err := newStubbedGemini(t, srv.URL).Extract(context.Background(), []byte("x"), "application/pdf")
			require.Error(t, err)
			assert.Equal(t, tc.transient, IsTransient(err))
			assert.Equal(t, !tc.transient, IsPermanent(err))

			var apiErr *gemini.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.StatusCode)
		})
	}
}

func TestGeminiExtractorAcceptsMalformedOptionalDate(t *testing.T) {
	// A partial extraction with one badly formatted optional field is still a
	// usable invoice: the adapter must pass it through and leave the warning
	// to normalization, not burn retries on it.
	srv := geminiStub(t, http.StatusOK, `{"vendor_name": "Acme Corp", "invoice_date": "March 15, 2026"}`)
	defer srv.Close()

	res, err := newStubbedGemini(t, srv.URL).Extract(context.Background(), []byte("%PDF"), "application/pdf")
	require.NoError(t, err)

	inv, warnings, err := invoice.Normalize(res.RawJSON)
	require.NoError(t, err)
	require.NotNil(t, inv.VendorName)
	assert.Equal(t, "Acme Corp", *inv.VendorName)
	require.NotNil(t, inv.InvoiceDate)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "invoice_date")
}

func TestGeminiExtractorDropsHopelessOptionalsInsteadOfFailing(t *testing.T) {
	srv := geminiStub(t, http.StatusOK, `{"vendor_name": "Acme Corp", "subtotal": true, "customer_name": null}`)
	defer srv.Close()

	res, err := newStubbedGemini(t, srv.URL).Extract(context.Background(), []byte("%PDF"), "application/pdf")
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(res.RawJSON, &m))
	assert.Equal(t, "Acme Corp", m["vendor_name"])
	assert.NotContains(t, m, "subtotal")
}

func TestGeminiExtractorSchemaInvalidOutputIsTransient(t *testing.T) {
	// Structural defects survive sanitization; a fresh sample may parse.
	srv := geminiStub(t, http.StatusOK, `{"items": {"description": "widget"}}`)
	defer srv.Close()

	_, err := newStubbedGemini(t, srv.URL).Extract(context.Background(), []byte("x"), "application/pdf")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestGeminiExtractorNonObjectOutputIsTransient(t *testing.T) {
	srv := geminiStub(t, http.StatusOK, `"sorry, I cannot read this document"`)
	defer srv.Close()

	_, err := newStubbedGemini(t, srv.URL).Extract(context.Background(), []byte("x"), "application/pdf")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestGeminiExtractorRejectsBadInputBeforeCalling(t *testing.T) {
	// No server: the request must never leave the adapter.
	g := newStubbedGemini(t, "http://127.0.0.1:1")

	_, err := g.Extract(context.Background(), nil, "application/pdf")
	assert.True(t, IsPermanent(err))

	_, err = g.Extract(context.Background(), []byte("x"), "text/plain")
	assert.True(t, IsPermanent(err))
}

func TestGeminiExtractorNetworkErrorIsTransient(t *testing.T) {
	srv := geminiStub(t, http.StatusOK, "{}")
	srv.Close() // refuse connections

	_, err := newStubbedGemini(t, srv.URL).Extract(context.Background(), []byte("x"), "application/pdf")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestFactorySelectsVariant(t *testing.T) {
	ext := New(Config{UseMock: true, APIKey: "key"}, nil)
	_, ok := ext.(*MockExtractor)
	assert.True(t, ok, "UseMock forces the mock even with a key")

	ext = New(Config{}, nil)
	_, ok = ext.(*MockExtractor)
	assert.True(t, ok, "missing key falls back to the mock")

	ext = New(Config{APIKey: "key"}, nil)
	_, ok = ext.(*RetryExtractor)
	assert.True(t, ok, "live variant is always retry-wrapped")
}
