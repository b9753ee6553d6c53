// Package anthropic streams blueprints from Claude models.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/dori/buebu/internal/generation"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

// Config holds provider settings.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// Provider implements generation.Provider on the Messages API.
type Provider struct {
	client    anthropic.Client
	apiKey    string
	model     string
	maxTokens int64
}

// NewProvider creates a provider. A missing API key is reported when a
// request is made, not here, so the rest of the application can start.
func NewProvider(cfg Config) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL), option.WithMaxRetries(0))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 16000
	}

	return &Provider{
		client:    anthropic.NewClient(opts...),
		apiKey:    cfg.APIKey,
		model:     model,
		maxTokens: maxTokens,
	}
}

func (p *Provider) Name() string {
	return "anthropic"
}

// Stream starts a streaming message for req.
func (p *Provider) Stream(ctx context.Context, req generation.Request) (generation.Stream, error) {
	if err := p.checkKey(); err != nil {
		return nil, err
	}
	events := p.client.Messages.NewStreaming(ctx, p.params(req))
	return &stream{events: events}, nil
}

// Complete sends req and returns the text of the reply.
func (p *Provider) Complete(ctx context.Context, req generation.Request) (string, error) {
	if err := p.checkKey(); err != nil {
		return "", err
	}

	message, err := p.client.Messages.New(ctx, p.params(req))
	if err != nil {
		return "", wrapError(err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func (p *Provider) checkKey() error {
	if p.apiKey == "" {
		return fmt.Errorf("%w: anthropic api key is not set", generation.ErrCredentials)
	}
	return nil
}

func (p *Provider) params(req generation.Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	return params
}

// wrapError marks rejected credentials so callers can tell them apart.
func wrapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", generation.ErrCredentials, err)
		}
	}
	return fmt.Errorf("anthropic: %w", err)
}

// eventStream is the part of the SDK's SSE stream we consume.
type eventStream interface {
	Next() bool
	Current() anthropic.MessageStreamEventUnion
	Err() error
	Close() error
}

type stream struct {
	events eventStream
	chunk  string
}

// Next skips events that carry no text.
func (s *stream) Next() bool {
	for s.events.Next() {
		event, ok := s.events.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok || event.Delta.Type != "text_delta" || event.Delta.Text == "" {
			continue
		}
		s.chunk = event.Delta.Text
		return true
	}
	return false
}

func (s *stream) Chunk() string {
	return s.chunk
}

func (s *stream) Err() error {
	if err := s.events.Err(); err != nil {
		return wrapError(err)
	}
	return nil
}

func (s *stream) Close() error {
	return s.events.Close()
}
