// Package generation runs blueprint generations against an AI provider, one
// streaming session at a time.
package generation

import "context"

// Request is a single prompt paired with the system instruction that frames it.
type Request struct {
	System string
	Prompt string
}

// Provider is an AI text service. Stream and Complete must honor ctx: once it
// is canceled the stream stops yielding and Complete returns.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) (Stream, error)
	Complete(ctx context.Context, req Request) (string, error)
}

// Stream yields text chunks in arrival order. It is consumed once.
//
//	for s.Next() {
//		use(s.Chunk())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream interface {
	Next() bool
	Chunk() string
	Err() error
	Close() error
}
