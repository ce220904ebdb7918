/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package playlist

import (
	"crypto/rand"
	"encoding/binary"
)

// Manager draws unplayed songs uniformly at random from a fixed pool and
// tracks exhaustion. The input slice is copied; the caller's pool is
// never mutated.
type Manager struct {
	pool   []Song
	played map[string]bool
}

func NewManager(pool []Song) *Manager {
	return &Manager{
		pool:   append([]Song(nil), pool...),
		played: make(map[string]bool, len(pool)),
	}
}

// Next draws a random unplayed song, marks it played, and returns it.
// The second return is false once the pool is exhausted.
func (m *Manager) Next() (Song, bool) {
	remaining := make([]int, 0, len(m.pool))
	for i, s := range m.pool {
		if !m.played[s.URI] {
			remaining = append(remaining, i)
		}
	}

	if len(remaining) == 0 {
		return Song{}, false
	}

	idx := remaining[randomIndex(len(remaining))]
	song := m.pool[idx]
	m.played[song.URI] = true

	return song, true
}

// IsExhausted reports whether every pooled song has been played.
func (m *Manager) IsExhausted() bool {
	return len(m.played) == len(m.pool)
}

// RemainingCount returns how many songs are still unplayed.
func (m *Manager) RemainingCount() int {
	return len(m.pool) - len(m.played)
}

// PoolSize returns the total pool size.
func (m *Manager) PoolSize() int {
	return len(m.pool)
}

// Reset clears the played set so every song may be drawn again.
func (m *Manager) Reset() {
	m.played = make(map[string]bool, len(m.pool))
}

// randomIndex returns a uniform index in [0, n) from crypto/rand.
func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}

	return int(binary.BigEndian.Uint64(buf[:]) % uint64(n))
}
