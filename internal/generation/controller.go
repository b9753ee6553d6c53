package generation

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
)

// MaxImprovedLength is the longest improved prompt the caller should accept.
const MaxImprovedLength = 2000

// Outcome is how a session ended.
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeFailed
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeFailed:
		return "failed"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Callbacks receive a session's output. OnChunk fires for every chunk in
// arrival order. OnDone fires once with the full text when the session
// finishes on its own. OnError fires once with a user-safe message when the
// provider fails. A canceled session calls neither OnDone nor OnError.
type Callbacks struct {
	OnChunk func(chunk string)
	OnDone  func(text string)
	OnError func(message string)
}

type session struct {
	cancel context.CancelFunc
}

// Controller runs at most one generation at a time. Starting a new one
// cancels the one in flight.
type Controller struct {
	provider Provider
	logger   *zap.Logger

	mu      sync.Mutex
	current *session
}

// NewController creates a controller for provider.
func NewController(provider Provider, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{provider: provider, logger: logger}
}

// Provider returns the provider the controller talks to.
func (c *Controller) Provider() Provider {
	return c.provider
}

// Generate streams a blueprint for prompt and blocks until the session ends.
func (c *Controller) Generate(ctx context.Context, prompt string, cb Callbacks) Outcome {
	sessCtx, cancel := context.WithCancel(ctx)
	s := &session{cancel: cancel}

	c.mu.Lock()
	if c.current != nil {
		c.current.cancel()
	}
	c.current = s
	c.mu.Unlock()
	defer c.finish(s)

	stream, err := c.provider.Stream(sessCtx, Request{System: SystemInstruction, Prompt: prompt})
	if err != nil {
		return c.fail(sessCtx, err, cb)
	}
	defer stream.Close()

	var acc strings.Builder
	chunks := 0
	for stream.Next() {
		chunk := stream.Chunk()
		acc.WriteString(chunk)
		chunks++
		if cb.OnChunk != nil {
			cb.OnChunk(chunk)
		}
	}

	if sessCtx.Err() != nil {
		c.logger.Debug("generation canceled", zap.Int("chunks", chunks))
		return OutcomeCanceled
	}
	if err := stream.Err(); err != nil {
		return c.fail(sessCtx, err, cb)
	}

	c.logger.Info("generation finished",
		zap.String("provider", c.provider.Name()),
		zap.Int("chunks", chunks),
		zap.Int("bytes", acc.Len()))
	if cb.OnDone != nil {
		cb.OnDone(acc.String())
	}
	return OutcomeDone
}

// Cancel stops the session in flight, if any.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.cancel()
	}
}

// Active reports whether a session is in flight.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Improve asks the provider to rewrite prompt. A blank prompt is returned
// unchanged. Errors are *ProviderError values. The result is not capped; see
// CapImproved.
func (c *Controller) Improve(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return prompt, nil
	}

	text, err := c.provider.Complete(ctx, Request{System: ImproveInstruction, Prompt: prompt})
	if err != nil {
		c.logger.Error("prompt improvement failed",
			zap.String("provider", c.provider.Name()), zap.Error(err))
		return "", newProviderError(err)
	}
	return text, nil
}

// CapImproved trims text to MaxImprovedLength characters, ending in "..."
// when it had to cut.
func CapImproved(text string) string {
	if utf8.RuneCountInString(text) <= MaxImprovedLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxImprovedLength-3]) + "..."
}

func (c *Controller) fail(sessCtx context.Context, err error, cb Callbacks) Outcome {
	if sessCtx.Err() != nil {
		return OutcomeCanceled
	}

	c.logger.Error("generation failed",
		zap.String("provider", c.provider.Name()), zap.Error(err))
	if cb.OnError != nil {
		cb.OnError(Classify(err))
	}
	return OutcomeFailed
}

// finish releases the session. A superseded session must not clear its
// successor.
func (c *Controller) finish(s *session) {
	s.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == s {
		c.current = nil
	}
}
