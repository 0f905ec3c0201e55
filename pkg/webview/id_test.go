package webview

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestIDGenerator_StartsAtOneAndIncreases(t *testing.T) {
	var g IDGenerator

	prev := uint64(0)
	for i := 0; i < 100; i++ {
		id := g.Next()
		require.Greater(t, id, prev)
		prev = id
	}
	assert.Equal(t, uint64(100), prev)
}

func TestIDGenerator_ConcurrentCallsAreUnique(t *testing.T) {
	var (
		g    IDGenerator
		mu   sync.Mutex
		seen = make(map[uint64]bool)
		eg   errgroup.Group
	)

	for w := 0; w < 8; w++ {
		eg.Go(func() error {
			local := make([]uint64, 0, 500)
			for i := 0; i < 500; i++ {
				local = append(local, g.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				seen[id] = true
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	assert.Len(t, seen, 8*500)
}

func TestNextID_ProcessWide(t *testing.T) {
	a := NextID()
	b := NextID()
	assert.Greater(t, b, a)
}
