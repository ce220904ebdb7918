/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package store persists analytics and all-time stats as single versioned
// JSON files, written atomically (temp file + rename) and saved from a
// background worker so game handlers never block on disk.
package store

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

// saver serializes writes behind a single background worker. Schedule
// never blocks: a save is either queued or already pending.
type saver struct {
	save   func() error
	logger zerolog.Logger

	requests chan struct{}
	done     chan struct{}
}

func newSaver(save func() error, logger zerolog.Logger) *saver {
	s := &saver{
		save:     save,
		logger:   logger,
		requests: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *saver) run() {
	defer close(s.done)

	for range s.requests {
		if err := s.save(); err != nil {
			// Discard: the next successful write heals the file.
			s.logger.Error().Err(err).Msg("background save failed")
		}
	}
}

// Schedule queues a save and returns immediately. A pending request
// coalesces with the new one.
func (s *saver) Schedule() {
	select {
	case s.requests <- struct{}{}:
	default:
	}
}

// Close drains pending saves, bounded by the context deadline.
func (s *saver) Close(ctx context.Context) error {
	close(s.requests)

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("store save worker did not drain: %w", ctx.Err())
	}
}

// writeJSON marshals v and atomically replaces path, leaving no temp
// sibling behind on success.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	return writeBytes(path, data)
}

func writeBytes(path string, data []byte) error {
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
