package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lherron/boardq/internal/domain"
)

const defaultHTTPTimeout = 500 * time.Millisecond

// HTTP posts order tuples to a PostgREST style endpoint. Conflicting ids
// are merged by the server; the version column is expected to guard
// against stale rows.
type HTTP struct {
	client *http.Client
	base   string
	apiKey string
	log    *zap.Logger
}

// NewHTTP validates baseURL and returns a sink posting under it.
func NewHTTP(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) (*HTTP, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !isValidBaseURL(base) {
		return nil, fmt.Errorf("http sink: invalid base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTP{
		client: &http.Client{Timeout: timeout},
		base:   base,
		apiKey: apiKey,
		log:    nopIfNil(log).Named("http"),
	}, nil
}

func (h *HTTP) UpsertItemOrder(ctx context.Context, rec domain.ItemOrder) error {
	return h.post(ctx, "/items/order", []domain.ItemOrder{rec})
}

func (h *HTTP) UpsertBucketPosition(ctx context.Context, rec domain.BucketPosition) error {
	return h.post(ctx, "/buckets/position", []domain.BucketPosition{rec})
}

// Close releases idle connections.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

func (h *HTTP) post(ctx context.Context, path string, rows interface{}) error {
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	endpoint := h.base + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request %q: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates")
	if h.apiKey != "" {
		req.Header.Set("apikey", h.apiKey)
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %q: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request to %q: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	h.log.Debug("posted", zap.String("path", path))
	return nil
}

func isValidBaseURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if parsed.Host == "" {
		return false
	}
	return true
}
