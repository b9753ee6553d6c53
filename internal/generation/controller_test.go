package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStream replays chunks, optionally blocking until canceled.
type scriptedStream struct {
	ctx     context.Context
	chunks  []string
	err     error
	block   bool
	started chan struct{}
	onNext  func(i int)

	i      int
	chunk  string
	closed bool
}

func (s *scriptedStream) Next() bool {
	if s.block {
		if s.started != nil {
			close(s.started)
			s.started = nil
		}
		<-s.ctx.Done()
		s.err = s.ctx.Err()
		return false
	}
	if s.onNext != nil {
		s.onNext(s.i)
	}
	if s.i >= len(s.chunks) {
		return false
	}
	s.chunk = s.chunks[s.i]
	s.i++
	return true
}

func (s *scriptedStream) Chunk() string { return s.chunk }
func (s *scriptedStream) Err() error {
	if s.i < len(s.chunks) {
		return nil
	}
	return s.err
}
func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

// fakeProvider hands out streams built by the test, keyed by prompt.
type fakeProvider struct {
	mu        sync.Mutex
	streams   map[string]func(ctx context.Context) *scriptedStream
	streamErr error
	complete  func(ctx context.Context, req Request) (string, error)
	requests  []Request
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	build := p.streams[req.Prompt]
	p.mu.Unlock()

	if p.streamErr != nil {
		return nil, p.streamErr
	}
	return build(ctx), nil
}

func (p *fakeProvider) Complete(ctx context.Context, req Request) (string, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	return p.complete(ctx, req)
}

type recorder struct {
	mu     sync.Mutex
	chunks []string
	done   []string
	errs   []string
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnChunk: func(c string) { r.mu.Lock(); r.chunks = append(r.chunks, c); r.mu.Unlock() },
		OnDone:  func(t string) { r.mu.Lock(); r.done = append(r.done, t); r.mu.Unlock() },
		OnError: func(m string) { r.mu.Lock(); r.errs = append(r.errs, m); r.mu.Unlock() },
	}
}

func chunksOf(chunks ...string) func(ctx context.Context) *scriptedStream {
	return func(ctx context.Context) *scriptedStream {
		return &scriptedStream{ctx: ctx, chunks: chunks}
	}
}

func TestGenerateStreamsAndCompletes(t *testing.T) {
	p := &fakeProvider{streams: map[string]func(context.Context) *scriptedStream{
		"Build a todo app": chunksOf("# TodoApp", "\n\n## Overview..."),
	}}
	c := NewController(p, nil)
	rec := &recorder{}

	outcome := c.Generate(context.Background(), "Build a todo app", rec.callbacks())

	assert.Equal(t, OutcomeDone, outcome)
	assert.Equal(t, []string{"# TodoApp", "\n\n## Overview..."}, rec.chunks)
	assert.Equal(t, []string{"# TodoApp\n\n## Overview..."}, rec.done)
	assert.Empty(t, rec.errs)
	assert.False(t, c.Active())

	require.Len(t, p.requests, 1)
	assert.Equal(t, SystemInstruction, p.requests[0].System)
}

func TestGenerateSupersedesRunningSession(t *testing.T) {
	started := make(chan struct{})
	p := &fakeProvider{streams: map[string]func(context.Context) *scriptedStream{
		"p1": func(ctx context.Context) *scriptedStream {
			return &scriptedStream{ctx: ctx, block: true, started: started}
		},
		"p2": chunksOf("second ", "result"),
	}}
	c := NewController(p, nil)
	first, second := &recorder{}, &recorder{}

	firstOutcome := make(chan Outcome, 1)
	go func() {
		firstOutcome <- c.Generate(context.Background(), "p1", first.callbacks())
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first session never started streaming")
	}

	outcome := c.Generate(context.Background(), "p2", second.callbacks())
	assert.Equal(t, OutcomeDone, outcome)

	select {
	case o := <-firstOutcome:
		assert.Equal(t, OutcomeCanceled, o)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded session did not return")
	}

	assert.Empty(t, first.done)
	assert.Empty(t, first.errs)
	assert.Equal(t, []string{"second result"}, second.done)
	assert.False(t, c.Active())
}

func TestCancelDeliversLateChunksButNoCompletion(t *testing.T) {
	var c *Controller
	p := &fakeProvider{streams: map[string]func(context.Context) *scriptedStream{
		"p": func(ctx context.Context) *scriptedStream {
			return &scriptedStream{
				ctx:    ctx,
				chunks: []string{"already in flight"},
				onNext: func(i int) {
					if i == 0 {
						c.Cancel()
					}
				},
			}
		},
	}}
	c = NewController(p, nil)
	rec := &recorder{}

	outcome := c.Generate(context.Background(), "p", rec.callbacks())

	assert.Equal(t, OutcomeCanceled, outcome)
	assert.Equal(t, []string{"already in flight"}, rec.chunks)
	assert.Empty(t, rec.done)
	assert.Empty(t, rec.errs)
}

func TestCancelWithoutSessionIsNoop(t *testing.T) {
	c := NewController(&fakeProvider{}, nil)
	c.Cancel()
	assert.False(t, c.Active())
}

func TestGenerateClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"credential sentinel", ErrCredentials, MessageCredentials},
		{"wrapped sentinel", errors.Join(errors.New("401"), ErrCredentials), MessageCredentials},
		{"api key in text", errors.New("API key not valid. Please pass a valid API key."), MessageCredentials},
		{"network", errors.New("dial tcp: connection refused"), MessageCommunication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{streamErr: tt.err}
			rec := &recorder{}

			outcome := NewController(p, nil).Generate(context.Background(), "prompt", rec.callbacks())

			assert.Equal(t, OutcomeFailed, outcome)
			assert.Equal(t, []string{tt.want}, rec.errs)
			assert.Empty(t, rec.done)
		})
	}
}

func TestGenerateMidStreamFailure(t *testing.T) {
	p := &fakeProvider{streams: map[string]func(context.Context) *scriptedStream{
		"p": func(ctx context.Context) *scriptedStream {
			return &scriptedStream{ctx: ctx, chunks: []string{"partial"}, err: errors.New("stream reset")}
		},
	}}
	rec := &recorder{}

	outcome := NewController(p, nil).Generate(context.Background(), "p", rec.callbacks())

	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, []string{"partial"}, rec.chunks)
	assert.Equal(t, []string{MessageCommunication}, rec.errs)
	assert.Empty(t, rec.done)
}

func TestImprove(t *testing.T) {
	p := &fakeProvider{complete: func(_ context.Context, req Request) (string, error) {
		return "Improved: " + req.Prompt, nil
	}}
	c := NewController(p, nil)

	got, err := c.Improve(context.Background(), "A workout app")
	require.NoError(t, err)
	assert.Equal(t, "Improved: A workout app", got)
	assert.Equal(t, ImproveInstruction, p.requests[0].System)

	blank, err := c.Improve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, "   ", blank)
	assert.Len(t, p.requests, 1)
}

func TestImproveError(t *testing.T) {
	raw := errors.New("missing api key")
	p := &fakeProvider{complete: func(context.Context, Request) (string, error) { return "", raw }}

	_, err := NewController(p, nil).Improve(context.Background(), "A workout app")

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, MessageCredentials, perr.Error())
	assert.ErrorIs(t, err, raw)
}

func TestCapImproved(t *testing.T) {
	short := strings.Repeat("a", MaxImprovedLength)
	assert.Equal(t, short, CapImproved(short))

	long := strings.Repeat("é", MaxImprovedLength+50)
	capped := CapImproved(long)
	assert.Equal(t, MaxImprovedLength, len([]rune(capped)))
	assert.True(t, strings.HasSuffix(capped, "..."))
}

func TestSystemInstructionListsEverySection(t *testing.T) {
	for i, section := range Sections {
		assert.Contains(t, SystemInstruction, section, "section %d", i+1)
	}
	assert.Contains(t, SystemInstruction, `"tree"`)
}
