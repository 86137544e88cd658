package http

import (
	"fmt"
	"net/http"
	"time"

	"OpenClaw/backend/go/internal/config"
	"OpenClaw/backend/go/pkg/circuitbreaker"
)

// Client is a custom HTTP client that wraps the standard http.Client
// and provides built-in support for circuit breaking. Every outbound call
// the dispatcher makes (WordPress REST, CLI bridge, tool runner, Telegram)
// goes through it.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
}

// NewClient creates a new Client with a circuit breaker configured.
// timeout applies per request; the dispatcher passes its own per-tool deadline
// via the request context on top of this.
func NewClient(cfg config.CircuitBreakerConfig, timeout time.Duration) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}

	if !cfg.Enabled {
		// Without a breaker the client is a plain timeout-bounded http.Client.
		return &Client{httpClient: httpClient, breaker: nil}, nil
	}

	bTimeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	breaker := circuitbreaker.New(cfg.FailureThreshold, cfg.SuccessThreshold, bTimeout)

	return &Client{
		httpClient: httpClient,
		breaker:    breaker,
	}, nil
}

// Do executes an HTTP request with circuit breaker protection.
// It considers status codes >= 500 as failures.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	var err error

	// The breaker's Execute function returns its own error, which might be ErrCircuitOpen
	// or the error from the operation itself.
	_, breakerErr := c.breaker.Execute(func() (interface{}, error) {
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		// Treat server-side errors as failures for the circuit breaker
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("server error: received status code %d", resp.StatusCode)
		}

		return resp, nil
	})

	if breakerErr != nil {
		return nil, breakerErr
	}

	return resp, nil
}
