// Package client talks to the remote backtest service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/quantview/internal/core"
	"go.uber.org/zap"
)

// DefaultTimeout is the ceiling for every call to the backtest service.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes bounds decoded responses; chart payloads are inline PNGs.
const maxResponseBytes = 64 << 20

// Recorder receives call outcomes. *metrics.Registry satisfies it.
type Recorder interface {
	RecordBacktest(status string, duration float64)
	RecordStrategyFallback()
}

type nopRecorder struct{}

func (nopRecorder) RecordBacktest(string, float64) {}
func (nopRecorder) RecordStrategyFallback()        {}

// Client is a stateless wrapper over the backtest service HTTP API.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// New creates a client for the service rooted at baseURL (e.g. http://host:8081/api).
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns the underlying HTTP client, shared with image fetches.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// ListStrategies fetches the strategy list without any fallback.
func (c *Client) ListStrategies(ctx context.Context) ([]core.Strategy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/strategies", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var strategies []core.Strategy
	if err := c.do(req, &strategies); err != nil {
		return nil, fmt.Errorf("fetching strategies: %w", err)
	}
	return strategies, nil
}

// FetchStrategies returns the service's strategy list in response order. When the
// service cannot be reached the built-in sample list is returned instead, so the
// picker always has something to show.
func (c *Client) FetchStrategies(ctx context.Context) []core.Strategy {
	strategies, err := c.ListStrategies(ctx)
	if err != nil {
		c.logger.Warn("strategy list unavailable, using built-in list",
			zap.String("base_url", c.baseURL),
			zap.Error(core.WrapError(core.ErrStrategiesUnavailable, err)),
		)
		c.recorder.RecordStrategyFallback()
		return FallbackStrategies()
	}
	return strategies
}

// RunBacktest runs one backtest. Every failure (transport, timeout, non-2xx,
// undecodable body) is reported as core.ErrBacktestFailed; the cause is kept
// for logs only.
func (c *Client) RunBacktest(ctx context.Context, br core.BacktestRequest) (*core.BacktestResult, error) {
	start := time.Now()
	result, err := c.runBacktest(ctx, br)
	elapsed := time.Since(start)

	if err != nil {
		c.recorder.RecordBacktest("failure", elapsed.Seconds())
		c.logger.Error("backtest failed",
			zap.Int("strategy_id", br.StrategyID),
			zap.String("stock_code", br.StockCode),
			zap.String("start_date", br.StartDate),
			zap.String("end_date", br.EndDate),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, core.WrapError(core.ErrBacktestFailed, err)
	}

	c.recorder.RecordBacktest("success", elapsed.Seconds())
	c.logger.Info("backtest completed",
		zap.Int("strategy_id", br.StrategyID),
		zap.String("stock_code", br.StockCode),
		zap.Int("metrics", len(result.Metrics)),
		zap.Int("charts", len(result.Charts)),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

func (c *Client) runBacktest(ctx context.Context, br core.BacktestRequest) (*core.BacktestResult, error) {
	body, err := json.Marshal(br)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/backtest", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var result core.BacktestResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks the service health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := c.do(req, &status); err != nil {
		return err
	}
	if status.Status != "ok" {
		return fmt.Errorf("service status %q", status.Status)
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := readDetail(resp.Body)
		if detail != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, detail)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// readDetail extracts the "detail" field of an error envelope, if any.
func readDetail(r io.Reader) string {
	var envelope struct {
		Detail any `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&envelope); err != nil {
		return ""
	}
	switch d := envelope.Detail.(type) {
	case string:
		return d
	case nil:
		return ""
	default:
		return fmt.Sprint(d)
	}
}
