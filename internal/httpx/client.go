// Package httpx is the shared retrying HTTP substrate used to talk to the
// remote job-graph service (spec 4.10), grounded in
// original_source/src/services/comfyui_client.py's _request: bounded
// attempts, linear backoff (base x attempt) with jitter, 5xx/transport-error
// retry, 4xx terminal, Connection: close.
//
// No third-party HTTP client library in the retrieval pack offers this
// retry shape (the pack's HTTP dependencies are server-side routers), so
// this substrate is built directly on net/http.
package httpx

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/bobarin/adinsert/internal/logging"
)

const (
	defaultAttempts    = 5
	defaultTimeout     = 30 * time.Second
	defaultBaseBackoff = 1 * time.Second
	jitterMax          = 500 * time.Millisecond
)

// Client wraps net/http.Client with the retry policy.
type Client struct {
	http        *http.Client
	attempts    int
	baseBackoff time.Duration
	log         *logging.Logger
}

func New(log *logging.Logger) *Client {
	return &Client{
		http:        &http.Client{Timeout: defaultTimeout},
		attempts:    defaultAttempts,
		baseBackoff: defaultBaseBackoff,
		log:         log,
	}
}

// Do issues req with retry: 5xx responses and transport errors are
// retried up to attempts times with backoff = baseBackoff*attempt +
// uniform(0, jitterMax); 4xx responses are returned immediately as
// terminal (caller inspects StatusCode).
func (c *Client) Do(ctx context.Context, newRequest func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.attempts; attempt++ {
		req, err := newRequest(ctx)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Connection", "close")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt == c.attempts {
				break
			}
			if err := c.sleepBackoff(ctx, attempt, fmt.Sprintf("transport error: %v", err)); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
			resp.Body.Close()
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, body)
			if attempt == c.attempts {
				break
			}
			if err := c.sleepBackoff(ctx, attempt, lastErr.Error()); err != nil {
				return nil, err
			}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.attempts, lastErr)
}

func (c *Client) sleepBackoff(ctx context.Context, attempt int, reason string) error {
	sleep := c.baseBackoff*time.Duration(attempt) + time.Duration(rand.Float64()*float64(jitterMax))
	if c.log != nil {
		c.log.Warn("request attempt %d failed (%s), retrying in %s", attempt, reason, sleep.Round(time.Millisecond))
	}
	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
