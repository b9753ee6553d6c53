// Package lorem is an offline provider that streams placeholder blueprints.
// It needs no API key and is used for demos and tests.
package lorem

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/dori/buebu/internal/generation"
)

// DefaultDelay is the pause between streamed words.
const DefaultDelay = 30 * time.Millisecond

// Provider generates lorem ipsum documents shaped like real blueprints.
type Provider struct {
	delay time.Duration

	mu        sync.Mutex
	generator *loremgen.Lorem
}

// NewProvider creates a provider that pauses delay between words. A zero
// delay streams as fast as the consumer reads.
func NewProvider(delay time.Duration) *Provider {
	return &Provider{
		delay:     delay,
		generator: loremgen.New(),
	}
}

func (p *Provider) Name() string {
	return "lorem"
}

// Stream emits a blueprint word by word.
func (p *Provider) Stream(ctx context.Context, req generation.Request) (generation.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := p.blueprint()
	return &stream{
		ctx:    ctx,
		delay:  p.delay,
		chunks: strings.SplitAfter(text, " "),
	}, nil
}

// Complete returns a rewritten prompt in the improver's format.
func (p *Provider) Complete(ctx context.Context, req generation.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("%s for %s. Features: %s. Tech: %s.",
		strings.TrimSuffix(p.generator.Sentence(4, 8), "."),
		p.generator.Word(4, 10),
		p.list(4),
		p.list(3),
	), nil
}

// blueprint builds a whole document: name line, tree block, then one section
// per specification part.
func (p *Provider) blueprint() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	name := title(p.generator.Word(4, 8)) + title(p.generator.Word(3, 6))
	b.WriteString(name)
	b.WriteString("\n\n```tree\n")
	b.WriteString("├── README.md\n├── package.json\n├── src/\n")
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, "│   ├── %s/\n", p.generator.Word(4, 9))
	}
	b.WriteString("│   └── main.ts\n```\n")

	for i, section := range generation.Sections {
		fmt.Fprintf(&b, "\n## %d. %s\n\n%s\n", i+1, section, p.generator.Paragraph(2, 4))
	}
	return b.String()
}

func (p *Provider) list(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = p.generator.Word(4, 10)
	}
	return strings.Join(words, ", ")
}

func title(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

type stream struct {
	ctx    context.Context
	delay  time.Duration
	chunks []string

	i     int
	chunk string
	err   error
}

func (s *stream) Next() bool {
	if s.err != nil || s.i >= len(s.chunks) {
		return false
	}

	if s.delay > 0 && s.i > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			s.err = s.ctx.Err()
			return false
		case <-timer.C:
		}
	} else if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}

	s.chunk = s.chunks[s.i]
	s.i++
	return true
}

func (s *stream) Chunk() string { return s.chunk }
func (s *stream) Err() error    { return s.err }
func (s *stream) Close() error  { return nil }
