// Package bitfinex fetches lending rates and candles from the Bitfinex REST
// API and streams funding tickers over its websocket API.
package bitfinex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"lending-interest-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultV1URL       = "https://api.bitfinex.com/v1"
	DefaultV2URL       = "https://api.bitfinex.com/v2"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultPageLimit   = 1000
	DefaultPageDelay   = 60 * time.Second
	DefaultLendsLimit  = 1000
	DefaultBackoffMult = 2.0
)

// Client is a Bitfinex REST client with retries and paged candle history.
type Client struct {
	v1URL      string
	v2URL      string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
	pageLimit  int
	pageDelay  time.Duration
	lendsLimit int
	metrics    *observability.Metrics
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithBaseURLs overrides the v1 and v2 API roots.
func WithBaseURLs(v1, v2 string) ClientOption {
	return func(c *Client) {
		c.v1URL = strings.TrimRight(v1, "/")
		c.v2URL = strings.TrimRight(v2, "/")
	}
}

// WithPageLimit sets the number of candles requested per page.
func WithPageLimit(n int) ClientOption {
	return func(c *Client) {
		c.pageLimit = n
	}
}

// WithPageDelay sets the pause between candle pages. The public API rate
// limits history requests, so long ranges are fetched slowly.
func WithPageDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.pageDelay = d
	}
}

// WithLendsLimit sets limit_lends for the lends endpoint.
func WithLendsLimit(n int) ClientOption {
	return func(c *Client) {
		c.lendsLimit = n
	}
}

// WithMetrics records call latencies.
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a new Bitfinex REST client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		v1URL:      DefaultV1URL,
		v2URL:      DefaultV2URL,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
		pageLimit:  DefaultPageLimit,
		pageDelay:  DefaultPageDelay,
		lendsLimit: DefaultLendsLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// getJSON performs a GET with retries and exponential backoff and decodes
// the body into out. 429 and 5xx responses and transport errors are
// retried; other statuses and decode errors are not.
func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, out interface{}) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryDelay
	b.MaxInterval = c.maxDelay
	b.Multiplier = DefaultBackoffMult
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	attempt := func() error {
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("http request: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.metrics.RecordHTTPLatency(endpoint, time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			serr := &StatusError{Code: resp.StatusCode, Body: string(body)}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return serr
			}
			return backoff.Permanent(serr)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
		return nil
	}

	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx))
	if err == nil {
		return nil
	}
	var serr *StatusError
	if errors.As(err, &serr) && serr.Code != http.StatusTooManyRequests && serr.Code < 500 {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s: %w", endpoint, err)
}

// Lend is one entry of the v1 lends history.
type Lend struct {
	Rate       string `json:"rate"` // annual percentage, decimal string
	AmountLent string `json:"amount_lent"`
	AmountUsed string `json:"amount_used"`
	Timestamp  int64  `json:"timestamp"` // Unix seconds
}

// FetchLends returns the lends history of a currency with timestamps in
// [from, to]. The endpoint returns at most the lends limit, newest first,
// starting at from.
func (c *Client) FetchLends(ctx context.Context, currency string, from, to int64) ([]Lend, error) {
	q := url.Values{}
	q.Set("timestamp", strconv.FormatInt(from, 10))
	q.Set("limit_lends", strconv.Itoa(c.lendsLimit))
	u := fmt.Sprintf("%s/lends/%s?%s", c.v1URL, url.PathEscape(strings.ToUpper(currency)), q.Encode())

	var raw []Lend
	if err := c.getJSON(ctx, "lends", u, &raw); err != nil {
		return nil, err
	}

	result := make([]Lend, 0, len(raw))
	for _, l := range raw {
		if l.Timestamp >= from && l.Timestamp <= to {
			result = append(result, l)
		}
	}
	return result, nil
}

// Candle is one v2 candle: [MTS, OPEN, CLOSE, HIGH, LOW, VOLUME].
type Candle struct {
	MTS    int64 // milliseconds
	Open   float64
	Close  float64
	High   float64
	Low    float64
	Volume float64
}

// FetchCandles returns candles of symbol (e.g. "tXMRBTC") for timeframe
// (e.g. "15m") with open times in [from, to] (Unix seconds). History is
// paged backward from to, pageLimit candles per request, pausing pageDelay
// between requests. The result is in API order, newest first.
func (c *Client) FetchCandles(ctx context.Context, symbol, timeframe string, from, to int64) ([]Candle, error) {
	step, err := TimeframeDuration(timeframe)
	if err != nil {
		return nil, err
	}
	startMs := from * 1000
	endMs := to * 1000

	var result []Candle
	for page := 0; endMs >= startMs; page++ {
		if page > 0 && c.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.pageDelay):
			}
		}

		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.pageLimit))
		q.Set("start", strconv.FormatInt(startMs, 10))
		q.Set("end", strconv.FormatInt(endMs, 10))
		u := fmt.Sprintf("%s/candles/trade:%s:%s/hist?%s", c.v2URL, timeframe, symbol, q.Encode())

		var raw [][]float64
		if err := c.getJSON(ctx, "candles", u, &raw); err != nil {
			return nil, err
		}

		var oldest int64 = -1
		for _, row := range raw {
			if len(row) < 6 {
				return nil, fmt.Errorf("candle row has %d fields, want 6", len(row))
			}
			cd := Candle{MTS: int64(row[0]), Open: row[1], Close: row[2], High: row[3], Low: row[4], Volume: row[5]}
			if cd.MTS < startMs || cd.MTS > endMs {
				continue
			}
			result = append(result, cd)
			if oldest < 0 || cd.MTS < oldest {
				oldest = cd.MTS
			}
		}

		if len(raw) < c.pageLimit || oldest < 0 {
			break
		}
		endMs = oldest - step.Milliseconds()
	}
	return result, nil
}

var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"3h":  3 * time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"1D":  24 * time.Hour,
	"1W":  7 * 24 * time.Hour,
	"14D": 14 * 24 * time.Hour,
}

// TimeframeDuration returns the candle width of a Bitfinex timeframe.
func TimeframeDuration(tf string) (time.Duration, error) {
	d, ok := timeframes[tf]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe %q", tf)
	}
	return d, nil
}
