// Package generator is the adapter for the external AI content service. The
// core holds no conversation state: each call carries everything the service
// needs, and the caller decides whether to thread a conversation id through.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/buzzboard/backend/internal/v1/logging"
	"github.com/buzzboard/backend/internal/v1/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// OutputFormat selects the shape of the generator's reply.
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatText OutputFormat = "text"
)

// Request is the single operation the generator service exposes.
type Request struct {
	ConversationID     string       `json:"conversation_id,omitempty"`
	SystemInstructions string       `json:"system_instructions"`
	UserPrompt         string       `json:"user_prompt"`
	OutputFormat       OutputFormat `json:"output_format"`
	OptionalTools      []string     `json:"optional_tools,omitempty"`
}

// Response carries the generator's reply and the conversation handle for
// follow-up requests.
type Response struct {
	ConversationID string `json:"conversation_id"`
	OutputText     string `json:"output_text"`
}

// Client calls the generator service over HTTP with a circuit breaker in
// front: a misbehaving upstream degrades into fast failures instead of
// tying up request goroutines.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker
}

// NewClient builds a generator client for the given endpoint.
func NewClient(endpoint, apiKey string) *Client {
	st := gobreaker.Settings{
		Name:        "generator",
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			var stateVal float64
			switch to {
			case gobreaker.StateClosed:
				stateVal = 0
			case gobreaker.StateOpen:
				stateVal = 1
			case gobreaker.StateHalfOpen:
				stateVal = 2
			}
			metrics.CircuitBreakerState.WithLabelValues("generator").Set(stateVal)
		},
	}

	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 90 * time.Second},
		cb:       gobreaker.NewCircuitBreaker(st),
	}
}

// Complete performs one generation request.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("generator endpoint is not configured")
	}

	result, err := c.cb.Execute(func() (any, error) {
		return c.doRequest(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			metrics.CircuitBreakerRejections.WithLabelValues("generator").Inc()
			logging.Warn(ctx, "Generator circuit breaker open, rejecting request")
			return nil, fmt.Errorf("generator temporarily unavailable")
		}
		return nil, err
	}

	return result.(*Response), nil
}

func (c *Client) doRequest(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generator request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build generator request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generator request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read generator response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logging.Error(ctx, "Generator returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.Int("bodyBytes", len(data)))
		return nil, fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode generator response: %w", err)
	}
	return &out, nil
}
