/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package playlist

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poolOf(n int) []Song {
	pool := make([]Song, n)
	for i := range pool {
		pool[i] = Song{Year: 1950 + i, URI: fmt.Sprintf("uri-%d", i)}
	}
	return pool
}

func TestManagerDrainsWithoutRepeats(t *testing.T) {
	pool := poolOf(10)
	m := NewManager(pool)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		assert.Equal(t, 10-i, m.RemainingCount())
		assert.Equal(t, 10-i+len(seen), m.PoolSize(), "remaining + played = pool")

		song, ok := m.Next()
		require.True(t, ok)
		require.False(t, seen[song.URI], "song %s drawn twice", song.URI)
		seen[song.URI] = true
	}

	assert.True(t, m.IsExhausted())
	assert.Zero(t, m.RemainingCount())

	_, ok := m.Next()
	assert.False(t, ok)
}

func TestManagerReset(t *testing.T) {
	m := NewManager(poolOf(3))

	for i := 0; i < 3; i++ {
		_, ok := m.Next()
		require.True(t, ok)
	}
	require.True(t, m.IsExhausted())

	m.Reset()
	assert.False(t, m.IsExhausted())
	assert.Equal(t, 3, m.RemainingCount())

	_, ok := m.Next()
	assert.True(t, ok)
}

func TestManagerCopiesPool(t *testing.T) {
	pool := poolOf(2)
	m := NewManager(pool)

	pool[0].URI = "mutated"

	// Draining still yields the original URIs.
	uris := make(map[string]bool)
	for {
		song, ok := m.Next()
		if !ok {
			break
		}
		uris[song.URI] = true
	}
	assert.True(t, uris["uri-0"] && uris["uri-1"], "manager must hold its own copy")
}

func TestManagerEmptyPool(t *testing.T) {
	m := NewManager(nil)

	assert.True(t, m.IsExhausted())
	_, ok := m.Next()
	assert.False(t, ok)
}
