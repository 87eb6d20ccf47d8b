// Package http provides HTTP client utilities with connection pooling and request pacing.
package http

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"video-dubber/internal/config"
)

// Doer sends HTTP requests. *http.Client and *LimitedClient satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures the HTTP client behavior.
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultClientConfig returns the default HTTP client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             config.HTTPTimeout,
		MaxIdleConns:        config.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: config.HTTPMaxIdleConnsPerHost,
		IdleConnTimeout:     config.HTTPIdleConnTimeout,
	}
}

// NewPooledClient creates an HTTP client with connection pooling.
// This should be reused across requests to the same host for efficiency.
func NewPooledClient(cfg ClientConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		},
	}
}

// LimitedClient paces outgoing requests with a token bucket so a long video
// split into many chunks does not burst the public translation endpoints.
type LimitedClient struct {
	client  Doer
	limiter *rate.Limiter
}

// NewLimitedClient wraps client with a limiter allowing rps requests per second.
func NewLimitedClient(client Doer, rps float64, burst int) *LimitedClient {
	if burst < 1 {
		burst = 1
	}
	return &LimitedClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Do waits for a token, honoring the request context, then sends req.
func (c *LimitedClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.client.Do(req)
}
