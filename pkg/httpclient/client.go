// Copyright 2025 Mekan Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpclient provides a retrying HTTP client shared by the
// embedding, generation, and capability backends.
package httpclient

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryStrategy classifies how a failed response should be retried.
type RetryStrategy int

const (
	// NoRetry returns the response immediately.
	NoRetry RetryStrategy = iota
	// ConservativeRetry retries up to twice with short fixed delays.
	ConservativeRetry
	// BackoffRetry retries with Retry-After or exponential backoff.
	BackoffRetry
)

// RetryStrategyFunc maps an HTTP status code to a retry strategy.
type RetryStrategyFunc func(statusCode int) RetryStrategy

// Client wraps http.Client with retry and backoff behavior.
type Client struct {
	client       *http.Client
	maxRetries   int
	baseDelay    time.Duration
	strategyFunc RetryStrategyFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(max int) Option {
	return func(c *Client) { c.maxRetries = max }
}

// WithBaseDelay sets the base delay for exponential backoff.
func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) { c.baseDelay = delay }
}

// WithRetryStrategy overrides the status-code classification.
func WithRetryStrategy(strategyFunc RetryStrategyFunc) Option {
	return func(c *Client) { c.strategyFunc = strategyFunc }
}

// New creates a retrying client with sensible defaults.
func New(opts ...Option) *Client {
	client := &Client{
		client:       &http.Client{Timeout: 60 * time.Second},
		maxRetries:   3,
		baseDelay:    2 * time.Second,
		strategyFunc: DefaultRetryStrategy,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// DefaultRetryStrategy retries rate limits and transient server errors.
func DefaultRetryStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return BackoffRetry
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout:
		return ConservativeRetry
	default:
		return NoRetry
	}
}

// Do executes the request, retrying per the configured strategy.
// Requests with a body must set req.GetBody so retries can replay it
// (http.NewRequest does this for common body types).
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, fmt.Errorf("failed to recreate request body for retry: %w", bodyErr)
			}
			req.Body = body
		}

		resp, err = c.client.Do(req)
		if err != nil {
			// Transport errors are not retried here; callers decide.
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		strategy := c.strategyFunc(resp.StatusCode)
		if strategy == NoRetry || attempt >= c.maxRetries {
			return resp, nil
		}

		delay := c.calculateDelay(strategy, attempt, resp)
		if delay <= 0 {
			return resp, nil
		}

		resp.Body.Close()
		slog.Debug("retrying HTTP request",
			"url", req.URL.String(),
			"status", resp.StatusCode,
			"delay", delay,
			"attempt", attempt+1)
		time.Sleep(delay)
	}

	return resp, err
}

func (c *Client) calculateDelay(strategy RetryStrategy, attempt int, resp *http.Response) time.Duration {
	switch strategy {
	case BackoffRetry:
		if after := parseRetryAfter(resp.Header); after > 0 {
			return after
		}
		exponential := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
		jitter := time.Duration(float64(exponential) * 0.1)
		return exponential + jitter

	case ConservativeRetry:
		if attempt >= 2 {
			return 0
		}
		return time.Duration(2+attempt) * time.Second

	default:
		return 0
	}
}

// parseRetryAfter reads the Retry-After header, seconds form only.
func parseRetryAfter(header http.Header) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
