// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client paces requests to one remote API and retries on HTTP 429.
type Client struct {
	HTTP       *http.Client
	Limiter    *rate.Limiter
	UserAgent  string
	MaxRetries int
	Logger     *zap.Logger
}

// NewClient returns a Client allowing perSecond requests per second with a
// burst of one. A non-positive perSecond disables pacing.
func NewClient(hc *http.Client, perSecond float64, userAgent string, log *zap.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{HTTP: hc, UserAgent: userAgent, Logger: log}
	if perSecond > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return c
}

// Do waits for the limiter, sets the User-Agent when the request has none,
// and sends req through DoWithRetry.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	resp, err := DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
	if err != nil {
		return nil, err
	}
	if Retryable(resp.StatusCode) {
		c.Logger.Warn("throttling persisted after retries", zap.String("url", req.URL.String()), zap.Int("status", resp.StatusCode))
	}
	return resp, nil
}
