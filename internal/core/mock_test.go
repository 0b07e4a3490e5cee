package core

import (
	"context"
	"sync/atomic"
)

type MockEmbedder struct {
	Vector []float32
	Err    error
	// Block waits for the context to end before answering.
	Block bool
	Panic bool
	Calls atomic.Int32
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.Calls.Add(1)
	if m.Panic {
		panic("embedder exploded")
	}
	if m.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Vector, nil
}
