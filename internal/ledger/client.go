package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service defines the interface for talking to the ledger API.
// This interface is implemented by *Client and can be used for testing.
type Service interface {
	FetchOrders(ctx context.Context, period Period) (*OrdersResponse, error)
	FetchHealth(ctx context.Context) (*HealthResponse, error)
	PersistExclusions(ctx context.Context, period Period, channel string, items []ExclusionItem) error
	PreparePrint(ctx context.Context, period Period, channel string) (*PrepareResult, error)
	RunBulkPrint(ctx context.Context, period Period, channel string) (*RunResult, error)
	CompletePrint(ctx context.Context, period Period, channel string) (*CompleteResult, error)
}

// Ensure Client implements Service at compile time.
var _ Service = (*Client)(nil)

// Client talks to the ledger HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	token     string
	log       *slog.Logger
}

const (
	defaultServerAddr = "127.0.0.1:8787"
	defaultUserAgent  = "platen/0.1"
	requestTimeout    = 15 * time.Second
)

// NewClient builds a Client for the given server address. The token may be
// empty; when set it is sent as a bearer credential on every request.
func NewClient(serverAddr, token string, log *slog.Logger) (*Client, error) {
	base, err := parseBaseURL(serverAddr)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		token:     strings.TrimSpace(token),
		log:       log,
	}, nil
}

// WithTimeout overrides the default request timeout and returns the same
// client for chaining.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if c != nil && d > 0 {
		c.http.Timeout = d
	}
	return c
}

// FetchOrders retrieves the order rows for every channel in the period,
// including the stored exclusion flags and batch hints.
func (c *Client) FetchOrders(ctx context.Context, period Period) (*OrdersResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("period", period.String())
	rel := &url.URL{Path: "/api/orders", RawQuery: values.Encode()}
	var payload OrdersResponse
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchHealth retrieves the service health report.
func (c *Client) FetchHealth(ctx context.Context) (*HealthResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// PersistExclusions replaces the stored exclusion set for the channel and
// period with the given items. An empty slice clears every exclusion.
func (c *Client) PersistExclusions(ctx context.Context, period Period, channel string, items []ExclusionItem) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if items == nil {
		items = []ExclusionItem{}
	}
	body := exclusionsRequest{Period: period.String(), Source: channel, Items: items}
	return c.do(ctx, http.MethodPost, "/api/exclusions", body, nil)
}

// PreparePrint builds a fresh print batch from the persisted exclusions.
func (c *Client) PreparePrint(ctx context.Context, period Period, channel string) (*PrepareResult, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload PrepareResult
	body := printRequest{Period: period.String(), Source: channel}
	if err := c.do(ctx, http.MethodPost, "/api/print/prepare", body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// RunBulkPrint sends the prepared batch to the printer.
func (c *Client) RunBulkPrint(ctx context.Context, period Period, channel string) (*RunResult, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload RunResult
	body := printRequest{Period: period.String(), Source: channel}
	if err := c.do(ctx, http.MethodPost, "/api/print/run", body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CompletePrint marks the prepared batch as printed.
func (c *Client) CompletePrint(ctx context.Context, period Period, channel string) (*CompleteResult, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload CompleteResult
	body := printRequest{Period: period.String(), Source: channel}
	if err := c.do(ctx, http.MethodPost, "/api/print/complete", body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("ledger request failed",
			"method", method,
			"path", rel.Path,
			"request_id", requestID,
			"error", err)
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.log.Debug("ledger request",
		"method", method,
		"path", rel.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Status:    resp.StatusCode,
			Path:      rel.Path,
			Detail:    decodeDetail(resp.Body),
			RequestID: requestID,
		}
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeDetail pulls the optional detail message out of an error body.
func decodeDetail(r io.Reader) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 1<<16)).Decode(&payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Detail)
}

func parseBaseURL(serverAddr string) (*url.URL, error) {
	trimmed := strings.TrimSpace(serverAddr)
	if trimmed == "" {
		trimmed = defaultServerAddr
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server %q: %w", serverAddr, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
