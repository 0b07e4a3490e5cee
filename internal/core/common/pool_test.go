package common

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func sum(_ context.Context, chunk []int) (int, error) {
	total := 0
	for _, v := range chunk {
		total += v
	}
	return total, nil
}

func TestChunk(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	chunks := Chunk(items, 3)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{1, 2, 3}, chunks[0])
	assert.Equal(t, []int{7}, chunks[2])

	assert.Nil(t, Chunk([]int{}, 4))
	assert.Len(t, Chunk(items, 100), 7)
	assert.Len(t, Chunk(items, 0), 1)
}

func TestRunChunks_ResultIndependentOfWorkers(t *testing.T) {
	items := make([]int, 101)
	for i := range items {
		items[i] = i
	}

	for _, workers := range []int{1, 2, 3, 8, 200} {
		results, err := RunChunks(context.Background(), items, workers, sum)
		require.NoError(t, err)
		total := 0
		for _, r := range results {
			total += r
		}
		assert.Equal(t, 5050, total, "workers=%d", workers)
	}
}

func TestRunChunks_Empty(t *testing.T) {
	results, err := RunChunks(context.Background(), []int{}, 4, sum)
	assert.NoError(t, err)
	assert.Nil(t, results)
}

func TestRunChunks_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := RunChunks(context.Background(), []int{1, 2, 3, 4}, 2, func(_ context.Context, chunk []int) (int, error) {
		if chunk[0] == 3 {
			return 0, boom
		}
		return 1, nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunChunks_RecoversPanic(t *testing.T) {
	_, err := RunChunks(context.Background(), []int{1, 2}, 2, func(_ context.Context, chunk []int) (int, error) {
		if chunk[0] == 2 {
			panic("bad data")
		}
		return 0, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad data")
}

func TestRunChunks_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunChunks(ctx, []int{1, 2, 3}, 3, sum)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGo_RecoversPanic(t *testing.T) {
	var g errgroup.Group
	Go(&g, func() error { panic("oops") })
	err := g.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 3, Workers(3))
	assert.GreaterOrEqual(t, Workers(0), 1)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.305, Round(0.30512, 3))
	assert.Equal(t, 0.1, Round(0.0999999, 3))
	assert.Equal(t, 1.0, Round(0.9996, 3))
	assert.Equal(t, -0.5, Round(-0.4996, 3))
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
	assert.Empty(t, SortedKeys(map[string]bool{}))
}
