package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dori/buebu/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sseBody = `event: message_start
data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5","content":[],"stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":12,"output_tokens":1}}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"# TodoApp"}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"\n\n## Overview..."}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":9}}

event: message_stop
data: {"type":"message_stop"}

`

func TestStreamYieldsTextDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseBody)
	}))
	defer srv.Close()

	p := NewProvider(Config{APIKey: "test-key", BaseURL: srv.URL})
	c := generation.NewController(p, nil)

	var chunks []string
	var done string
	outcome := c.Generate(context.Background(), "Build a todo app", generation.Callbacks{
		OnChunk: func(s string) { chunks = append(chunks, s) },
		OnDone:  func(s string) { done = s },
	})

	assert.Equal(t, generation.OutcomeDone, outcome)
	assert.Equal(t, []string{"# TodoApp", "\n\n## Overview..."}, chunks)
	assert.Equal(t, "# TodoApp\n\n## Overview...", done)
}

func TestCompleteJoinsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_2","type":"message","role":"assistant","model":"claude-sonnet-4-5",
			"content":[{"type":"text","text":"  Fitness tracker for gym goers.  "}],
			"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":5,"output_tokens":7}}`)
	}))
	defer srv.Close()

	got, err := NewProvider(Config{APIKey: "test-key", BaseURL: srv.URL}).
		Complete(context.Background(), generation.Request{Prompt: "A workout app"})
	require.NoError(t, err)
	assert.Equal(t, "Fitness tracker for gym goers.", got)
}

func TestRejectedKeyIsCredentialError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	_, err := NewProvider(Config{APIKey: "bad", BaseURL: srv.URL}).
		Complete(context.Background(), generation.Request{Prompt: "A workout app"})
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrCredentials)
	assert.Equal(t, generation.MessageCredentials, generation.Classify(err))
}

func TestServerErrorIsCommunicationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"type":"error","error":{"type":"api_error","message":"internal"}}`)
	}))
	defer srv.Close()

	_, err := NewProvider(Config{APIKey: "k", BaseURL: srv.URL}).
		Complete(context.Background(), generation.Request{Prompt: "A workout app"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, generation.ErrCredentials)
	assert.Equal(t, generation.MessageCommunication, generation.Classify(err))
}

func TestMissingKeyFailsAtCallTime(t *testing.T) {
	p := NewProvider(Config{})

	_, err := p.Stream(context.Background(), generation.Request{Prompt: "p"})
	assert.ErrorIs(t, err, generation.ErrCredentials)
	assert.Equal(t, generation.MessageCredentials, generation.Classify(err))

	_, err = p.Complete(context.Background(), generation.Request{Prompt: "p"})
	assert.ErrorIs(t, err, generation.ErrCredentials)
}
