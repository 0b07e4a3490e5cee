package common

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// Workers resolves a configured worker count. Zero or negative means one
// worker per available CPU.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	if p := runtime.GOMAXPROCS(0); p > 0 {
		return p
	}
	return 1
}

// Chunk splits items into at most n contiguous chunks of near-equal size.
func Chunk[T any](items []T, n int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if n <= 0 {
		n = 1
	}
	size := (len(items) + n - 1) / n
	chunks := make([][]T, 0, n)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// RunChunks partitions items across workers goroutines and applies fn to each
// chunk. Results come back in chunk order, so merging them yields the same
// output for any worker count. A panic inside fn is recovered and returned as
// an error; the first error cancels the remaining chunks.
func RunChunks[T, R any](ctx context.Context, items []T, workers int, fn func(ctx context.Context, chunk []T) (R, error)) ([]R, error) {
	chunks := Chunk(items, Workers(workers))
	if len(chunks) == 0 {
		return nil, nil
	}

	results := make([]R, len(chunks))
	g, gCtx := errgroup.WithContext(ctx)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("worker panic: %v\n%s", r, debug.Stack())
				}
			}()
			if err := gCtx.Err(); err != nil {
				return err
			}
			res, err := fn(gCtx, chunk)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Go runs fn on its own goroutine through g, converting a panic into an error.
func Go(g *errgroup.Group, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
			}
		}()
		return fn()
	})
}
