// Package genai provides GenAI-enhanced operations using the OpenAI API.
//
// DraftPipe uses two client profiles mirroring the drafting pipeline's
// needs: a deterministic profile (low temperature) for parsing,
// classification, validation, and memory merging, and a creative profile
// (higher temperature) for drafting email text.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default sampling temperatures for the two client profiles.
const (
	DeterministicTemperature = 0.2
	CreativeTemperature      = 0.7
)

// ClientInterface defines the generation operations agent nodes depend on.
type ClientInterface interface {
	// GenerateWithMessages produces a completion for the given messages.
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	hasTemp     bool
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the API key (overrides $OPENAI_API_KEY).
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL sets a custom API endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) {
		o.Temperature = t
		o.hasTemp = true
	}
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewClient initializes a GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable when not provided via options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		slog.Error("GenAI client API key not set")
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	temperature := DeterministicTemperature
	if cfg.hasTemp {
		temperature = cfg.Temperature
	}

	slog.Debug("GenAI client created", "model", model, "temperature", temperature, "base_url_set", cfg.BaseURL != "")
	return &Client{
		client:      openai.NewClient(reqOpts...),
		model:       model,
		temperature: temperature,
	}, nil
}

// GenerateWithMessages produces a completion for the given messages.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		slog.Error("GenAI completion failed", "error", err, "model", c.model)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("GenAI completion returned no choices", "model", c.model)
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
