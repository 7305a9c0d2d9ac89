// Package llm provides the text-generation capability consumed by the
// comment pipeline.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/metrics"
)

// Request is one text-generation call
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Generator produces text from a prompt. Implementations may fail with
// *ProviderError or a timeout; both are transient for retry purposes.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Config holds provider connection settings
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client is a chat-completions Generator over HTTP
type Client struct {
	http   *httpclient.Client
	config Config
	logger ectologger.Logger
}

// NewClient creates a new generation client
func NewClient(cfg Config, http *httpclient.Client, logger ectologger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &Client{
		http:   http,
		config: cfg,
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate implements Generator
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	payload := chatRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.http.Do(ctx, httpReq)
	metrics.CapabilityCallDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CapabilityCallsTotal.WithLabelValues("generate", "error").Inc()
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		metrics.CapabilityCallsTotal.WithLabelValues("generate", "error").Inc()
		message := string(resp.Body)
		var parsed chatResponse
		if json.Unmarshal(resp.Body, &parsed) == nil && parsed.Error != nil {
			message = parsed.Error.Message
		}
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: message}
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		metrics.CapabilityCallsTotal.WithLabelValues("generate", "error").Inc()
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		metrics.CapabilityCallsTotal.WithLabelValues("generate", "error").Inc()
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		metrics.CapabilityCallsTotal.WithLabelValues("generate", "error").Inc()
		return "", ErrEmptyCompletion
	}

	metrics.CapabilityCallsTotal.WithLabelValues("generate", "success").Inc()
	return text, nil
}
