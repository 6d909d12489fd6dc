// Package anthropic provides a streaming answer generator using the
// Anthropic Messages API.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/warraq-labs/warraq/internal/core/ports/driven"
)

// Ensure Generator implements the interface.
var _ driven.Generator = (*Generator)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-sonnet-4-5"
	DefaultTimeout   = 5 * time.Minute
	DefaultMaxTokens = 2048
)

// anthropicVersion is the API version header required by Anthropic.
const anthropicVersion = "2023-06-01"

const (
	tokenBuffer = 16
	scanBuffer  = 256 * 1024
)

// Config holds configuration for the Anthropic generator.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the model to use (default: claude-sonnet-4-5).
	Model string

	// Timeout bounds the whole streamed response (default: 5m).
	Timeout time.Duration

	// MaxTokens caps the answer length (default: 2048).
	MaxTokens int
}

// Generator streams answers from the Anthropic Messages API.
type Generator struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Stream    bool          `json:"stream"`
}

// chatMessage is the Anthropic message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamEvent is one SSE data payload from the Messages stream.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewGenerator creates a new Anthropic generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	return &Generator{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Stream sends the system instruction and user message to the Messages
// API and relays text deltas as they arrive.
func (g *Generator) Stream(ctx context.Context, system, user string) (<-chan string, <-chan error, error) {
	reqBody := messagesRequest{
		Model:     g.model,
		Messages:  []chatMessage{{Role: "user", Content: user}},
		MaxTokens: g.maxTokens,
		System:    system,
		Stream:    true,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.baseURL+"/v1/messages",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		var apiErr streamEvent
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
			return nil, nil, fmt.Errorf("anthropic error: %s", apiErr.Error.Message)
		}
		return nil, nil, fmt.Errorf("anthropic error (status %d): %s", resp.StatusCode, string(body))
	}

	tokens := make(chan string, tokenBuffer)
	errs := make(chan error, 1)
	go g.consume(ctx, resp.Body, tokens, errs)
	return tokens, errs, nil
}

// consume reads the SSE body and forwards text deltas until the stream
// stops, errors, or the context is cancelled.
func (g *Generator) consume(ctx context.Context, body io.ReadCloser, tokens chan<- string, errs chan<- error) {
	defer close(errs)
	defer close(tokens)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, scanBuffer), scanBuffer)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Type != "text_delta" || ev.Delta.Text == "" {
				continue
			}
			select {
			case tokens <- ev.Delta.Text:
			case <-ctx.Done():
				return
			}
		case "error":
			msg := "stream aborted"
			if ev.Error != nil {
				msg = ev.Error.Message
			}
			errs <- fmt.Errorf("anthropic error: %s", msg)
			return
		case "message_stop":
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		errs <- fmt.Errorf("read stream: %w", err)
	}
}

// ModelName returns the backend model identifier.
func (g *Generator) ModelName() string {
	return g.model
}

// Ping validates the API key by listing models.
// This is a lightweight check that doesn't run inference.
func (g *Generator) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("anthropic: API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (g *Generator) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
