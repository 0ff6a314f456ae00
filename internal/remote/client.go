// Package remote provides the HTTP client for the financial advisor
// backend service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/financeguru/advisor/internal/domain"
)

var (
	errUnexpectedStatus = errors.New("unexpected status code")
	errMalformedReply   = errors.New("malformed chat response")
)

// maxResponseBodySize caps how much of a backend response is read (1MB).
const maxResponseBodySize = 1 << 20

// Config holds configuration for the backend client.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://127.0.0.1:5000",
		RequestTimeout: 10 * time.Second,
	}
}

// Client talks HTTP+JSON to the advisor backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a backend client. The per-request deadline comes
// from the caller's context; RequestTimeout is the transport-level cap.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// HealthResponse is the payload of GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// OK reports whether the backend considers itself fully healthy.
func (h *HealthResponse) OK() bool {
	return h.Status == "ok"
}

// ChatRequest is the payload of POST /api/chat.
type ChatRequest struct {
	UserInput           string           `json:"user_input"`
	UserID              string           `json:"user_id"`
	ConversationHistory []domain.Message `json:"conversation_history,omitempty"`
}

// SentimentAnalysis carries the backend's sentiment annotation.
type SentimentAnalysis struct {
	Sentiment string `json:"sentiment"`
}

// ChatResponse is the payload returned by POST /api/chat.
type ChatResponse struct {
	Response           string             `json:"response"`
	DemoMode           bool               `json:"demo_mode"`
	MarketDataIncluded bool               `json:"market_data_included"`
	SentimentAnalysis  *SentimentAnalysis `json:"sentiment_analysis"`
}

// Source returns the message source the response should be tagged with.
func (r *ChatResponse) Source() domain.Source {
	if r.DemoMode {
		return domain.SourceRemoteDemo
	}
	return domain.SourceRemoteAI
}

// Health checks backend health via GET /api/health. A non-200 status or
// transport error is returned as an error; payload interpretation is
// left to the caller.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check: %w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&health); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &health, nil
}

// Chat sends a user message to the backend. Any non-200 status,
// transport error, or payload without a response text is an error; the
// caller falls back to the local rule engine.
func (c *Client) Chat(ctx context.Context, chatReq ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat: %w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if chatResp.Response == "" {
		return nil, errMalformedReply
	}
	return &chatResp, nil
}

// drainAndClose consumes the rest of the body so the connection can be
// reused, then closes it.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxResponseBodySize))
	_ = body.Close()
}
