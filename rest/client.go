// Package rest is a thin request builder over the HTTP API. Every request
// flows through the shared rate limiter: per-route buckets are re-synced
// from response headers, 429 responses are retried after the indicated
// delay up to a bounded count, and a global rate limit pauses all routes.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/LimeProgramming/defectio"
	"github.com/LimeProgramming/defectio/internal/ratelimit"
)

const defaultUserAgent = "defectio (github.com/LimeProgramming/defectio)"

// Config configures the REST client.
type Config struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string
	// Credential supplies the x-bot-token or x-session-token header.
	Credential defectio.Credential
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	// MaxRetries bounds rate-limit retries per request (default 3).
	MaxRetries int
	// UserAgent overrides the default user agent.
	UserAgent string
	// Logger defaults to the logrus standard logger.
	Logger *logrus.Logger
}

// Client issues rate-limited API requests.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *ratelimit.Limiter
	log     *logrus.Entry
}

// New builds a REST client from cfg.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: ratelimit.New(),
		log:     logger.WithField("api", cfg.BaseURL),
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return "rest: api returned status " + strconv.Itoa(e.Status)
}

// do runs one request through the rate limiter. POST bodies get a nonce
// stamped in for server-side deduplication. A 429 re-syncs the bucket and
// retries after the indicated delay; exhausting the retry budget surfaces
// ErrRateLimitExhausted to this caller only.
func (c *Client) do(ctx context.Context, method, path, bucket string, body map[string]interface{}, out interface{}) error {
	if method == http.MethodPost {
		if body == nil {
			body = map[string]interface{}{}
		}
		body["nonce"] = uuid.New().String()
	}

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Acquire(ctx, bucket); err != nil {
			return errors.Wrap(err, "rest: waiting for rate limit permit")
		}

		retryAfter, err := c.doOnce(ctx, method, path, bucket, body, out)
		if err != nil || retryAfter == 0 {
			return err
		}

		c.log.WithFields(logrus.Fields{"bucket": bucket, "retryAfter": retryAfter, "attempt": attempt + 1}).
			Warn("Rate limited, retrying")
		timer := time.NewTimer(retryAfter)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return defectio.ErrRateLimitExhausted
}

// doOnce executes a single attempt. A positive retryAfter with a nil error
// means the request was rate limited and should be retried.
func (c *Client) doOnce(ctx context.Context, method, path, bucket string, body map[string]interface{}, out interface{}) (retryAfter time.Duration, err error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, errors.Wrap(err, "rest: encoding request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, errors.Wrapf(err, "rest: building %s %s", method, path)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Credential.IsBot() {
		req.Header.Set("x-bot-token", c.cfg.Credential.BotToken)
	} else {
		req.Header.Set("x-session-token", c.cfg.Credential.SessionToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "rest: %s %s", method, path)
	}
	defer resp.Body.Close()

	c.syncBucket(bucket, resp.Header)

	if resp.StatusCode == http.StatusTooManyRequests {
		return c.retryDelay(resp.Header), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, errors.Wrapf(&APIError{Status: resp.StatusCode, Body: string(data)}, "rest: %s %s", method, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, errors.Wrapf(err, "rest: decoding %s %s response", method, path)
		}
	}
	return 0, nil
}

// syncBucket feeds server-provided quota headers back into the limiter.
func (c *Client) syncBucket(bucket string, h http.Header) {
	limit, err1 := strconv.Atoi(h.Get("X-RateLimit-Limit"))
	remaining, err2 := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	resetAfter, err3 := strconv.ParseFloat(h.Get("X-RateLimit-Reset-After"), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return
	}

	key := bucket
	if h.Get("X-RateLimit-Global") == "true" {
		key = ratelimit.GlobalBucket
	}
	c.limiter.Update(key, limit, remaining, time.Duration(resetAfter*float64(time.Second)))
}

func (c *Client) retryDelay(h http.Header) time.Duration {
	if v, err := strconv.ParseFloat(h.Get("Retry-After"), 64); err == nil && v > 0 {
		return time.Duration(v * float64(time.Second))
	}
	if v, err := strconv.ParseFloat(h.Get("X-RateLimit-Reset-After"), 64); err == nil && v > 0 {
		return time.Duration(v * float64(time.Second))
	}
	return time.Second
}
