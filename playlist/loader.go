/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package playlist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Entry describes one discovered playlist file for the admin listing.
// Invalid playlists still appear here, carrying their errors, but only
// valid ones may be selected for a game.
type Entry struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Count  int      `json:"count"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Loader discovers and parses playlist documents from a single well-known
// directory, caching results until the directory changes.
type Loader struct {
	dir    string
	logger zerolog.Logger

	mu      sync.Mutex
	entries []Entry
	byName  map[string]Playlist
	fresh   bool
}

func NewLoader(dir string, logger zerolog.Logger) *Loader {
	return &Loader{
		dir:    dir,
		logger: logger.With().Str("component", "playlist").Logger(),
		byName: make(map[string]Playlist),
	}
}

// Dir returns the discovery directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Invalidate drops the discovery cache; the next Discover call rescans.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.fresh = false
}

// Discover scans the playlist directory, parsing and validating every
// *.json document. Invalid documents are not fatal.
func (l *Loader) Discover() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fresh {
		return append([]Entry(nil), l.entries...), nil
	}

	names, err := filepath.Glob(filepath.Join(l.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan playlist dir: %w", err)
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	byName := make(map[string]Playlist, len(names))

	for _, path := range names {
		entry := l.loadOne(path)
		if entry.Valid {
			if _, dup := byName[entry.Name]; dup {
				entry.Valid = false
				entry.Errors = append(entry.Errors, fmt.Sprintf("duplicate playlist name %q", entry.Name))
			}
		}
		if entry.Valid {
			pl, err := parseFile(path)
			if err == nil {
				byName[entry.Name] = pl
			}
		}
		entries = append(entries, entry)
	}

	l.entries = entries
	l.byName = byName
	l.fresh = true

	l.logger.Debug().Int("files", len(names)).Int("valid", len(byName)).Msg("playlist discovery")

	return append([]Entry(nil), entries...), nil
}

// Get returns a previously discovered valid playlist by name.
func (l *Loader) Get(name string) (Playlist, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pl, ok := l.byName[name]
	return pl, ok
}

// Select resolves the named playlists into a merged, de-duplicated song
// pool. Unknown or invalid names fail the whole selection.
func (l *Loader) Select(names []string) ([]Song, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no playlists selected")
	}

	if _, err := l.Discover(); err != nil {
		return nil, err
	}

	playlists := make([]Playlist, 0, len(names))
	for _, name := range names {
		pl, ok := l.Get(name)
		if !ok {
			return nil, fmt.Errorf("playlist %q not found or invalid", name)
		}
		playlists = append(playlists, pl)
	}

	pool := Merge(playlists...)
	if len(pool) == 0 {
		return nil, fmt.Errorf("selected playlists contain no songs")
	}

	return pool, nil
}

func (l *Loader) loadOne(path string) Entry {
	entry := Entry{
		Name: strings.TrimSuffix(filepath.Base(path), ".json"),
		Path: path,
	}

	pl, err := parseFile(path)
	if err != nil {
		entry.Errors = []string{err.Error()}
		l.logger.Warn().Err(err).Str("path", path).Msg("unreadable playlist")
		return entry
	}

	if pl.Name != "" {
		entry.Name = pl.Name
	}
	entry.Count = len(pl.Songs)
	entry.Errors = pl.Validate()
	entry.Valid = len(entry.Errors) == 0

	return entry
}

func parseFile(path string) (Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Playlist{}, fmt.Errorf("read playlist: %w", err)
	}

	var pl Playlist
	if err := json.Unmarshal(data, &pl); err != nil {
		return Playlist{}, fmt.Errorf("parse playlist %s: %w", filepath.Base(path), err)
	}

	return pl, nil
}
