/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package playlist

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch invalidates the loader's discovery cache whenever the playlist
// directory changes, so the admin listing always reflects the files on
// disk. Events are debounced: editors tend to fire several writes per
// save.
func Watch(ctx context.Context, l *Loader, logger zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create playlist watcher: %w", err)
	}

	if err := watcher.Add(l.Dir()); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", l.Dir(), err)
	}

	log := logger.With().Str("component", "playlist-watch").Logger()

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Op.Has(fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename) {
					continue
				}

				log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("playlist dir changed")

				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(250*time.Millisecond, l.Invalidate)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("playlist watcher error")
			}
		}
	}()

	return nil
}
