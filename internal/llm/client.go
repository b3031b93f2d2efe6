// Package llm wraps an OpenAI-compatible chat completion endpoint behind a
// small capability interface: one blocking, potentially slow network call
// with an explicit per-attempt timeout and a bounded retry policy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/opsgrid/triagekit/internal/metrics"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "llama3.1:8b"
	// DefaultTimeout bounds a single completion attempt.
	DefaultTimeout = 25 * time.Second
	// DefaultMaxAttempts bounds the retry loop, first attempt included.
	DefaultMaxAttempts = 3
	// DefaultMaxTokens caps generated output length.
	DefaultMaxTokens = 2048

	retryBackoff = time.Second
)

var (
	// ErrUnavailable is returned after network, timeout or 5xx failures
	// exhaust the retry budget.
	ErrUnavailable = errors.New("llm endpoint unavailable")
	// ErrRejected is returned for 4xx-class failures; retrying cannot fix
	// a request-shape problem, so these are never retried.
	ErrRejected = errors.New("llm request rejected")
	// ErrEmptyResponse is returned when the endpoint answers with no
	// choices.
	ErrEmptyResponse = errors.New("llm returned no choices")
)

// Request is a single chat-style completion request.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	ForceJSON   bool
}

// ModelInfo identifies the endpoint and model a response came from.
type ModelInfo struct {
	Host string `json:"host"`
	Name string `json:"name"`
}

// ChatAPI is the part of the OpenAI SDK client this package uses.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds client configuration. BaseURL may point at any
// OpenAI-compatible server, including a local inference host.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
}

// Client is a retrying chat-completion client.
type Client struct {
	api     ChatAPI
	cfg     Config
	host    string
	metrics *metrics.Metrics
}

// NewClient creates a Client backed by the OpenAI SDK.
func NewClient(cfg Config, m *metrics.Metrics) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return NewClientWithAPI(openai.NewClientWithConfig(apiCfg), cfg, m)
}

// NewClientWithAPI creates a Client over an explicit ChatAPI, for tests and
// alternative transports.
func NewClientWithAPI(api ChatAPI, cfg Config, m *metrics.Metrics) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Client{
		api:     api,
		cfg:     cfg,
		host:    hostOf(cfg.BaseURL),
		metrics: m,
	}
}

// Model returns the endpoint host and model name for response envelopes.
func (c *Client) Model() ModelInfo {
	return ModelInfo{Host: c.host, Name: c.cfg.Model}
}

// Complete runs one chat completion with the configured retry policy: each
// attempt gets its own timeout, and only timeouts, network errors and
// 5xx-class responses are retried, with a linear backoff between attempts.
// A timed-out final attempt surfaces as ErrUnavailable, never as a hang.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	chatReq := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ForceJSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			c.metrics.ObserveLLMRetry()
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(time.Duration(attempt-1) * retryBackoff):
			}
		}

		text, err := c.attempt(ctx, chatReq)
		if err == nil {
			return text, nil
		}
		if !retryable(err) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("%w: %d attempts failed: %v", ErrUnavailable, c.cfg.MaxAttempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(attemptCtx, req)
	c.metrics.ObserveLLMDuration(time.Since(start).Seconds())

	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps SDK errors onto this package's sentinels so callers can
// decide retryability with errors.Is.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}

	if errors.Is(err, context.Canceled) {
		// Caller gave up; not our retry loop's problem.
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: timeout: %v", ErrUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Anything else from the transport layer is treated as unavailable.
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func retryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

func hostOf(baseURL string) string {
	if baseURL == "" {
		return "api.openai.com"
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	return u.Host
}
