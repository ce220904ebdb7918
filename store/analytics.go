/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Seednode/beatify/clock"
)

const (
	analyticsVersion = 1

	// RetentionDays bounds how long detailed game and error rows are
	// kept before folding into monthly summaries.
	RetentionDays = 180

	// PruneInterval is how many appended games pass between retention
	// sweeps.
	PruneInterval = 50

	// MaxDetailedRecords disables pruning entirely while the detailed
	// list is small.
	MaxDetailedRecords = 500

	maxErrorMessageLen = 500
)

// GameRecord is one completed game, appended at END.
type GameRecord struct {
	GameID          string    `json:"game_id"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	PlayerCount     int       `json:"player_count"`
	PlaylistNames   []string  `json:"playlist_names"`
	RoundsPlayed    int       `json:"rounds_played"`
	AverageScore    float64   `json:"average_score"`
	Difficulty      string    `json:"difficulty"`
	ErrorCount      int       `json:"error_count"`
	Streak3Count    int       `json:"streak_3_count"`
	Streak5Count    int       `json:"streak_5_count"`
	Streak7Count    int       `json:"streak_7_count"`
	TotalBets       int       `json:"total_bets"`
	BetsWon         int       `json:"bets_won"`
}

// ErrorType classifies an ErrorEvent.
type ErrorType string

const (
	ErrWSDisconnect    ErrorType = "WS_DISCONNECT"
	ErrMediaPlayer     ErrorType = "MEDIA_PLAYER_ERROR"
	ErrPlaybackFailure ErrorType = "PLAYBACK_FAILURE"
	ErrStateTransition ErrorType = "STATE_TRANSITION_ERROR"
)

// ErrorEvent is one recorded runtime error.
type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
}

// MonthlySummary is the rolled-up replacement for pruned game rows.
type MonthlySummary struct {
	Month             string  `json:"month"` // YYYY-MM
	GamesCount        int     `json:"games_count"`
	TotalPlayers      int     `json:"total_players"`
	AvgPlayersPerGame float64 `json:"avg_players_per_game"`
	TotalRounds       int     `json:"total_rounds"`
	AvgRoundsPerGame  float64 `json:"avg_rounds_per_game"`
	TotalErrors       int     `json:"total_errors"`
	ErrorRate         float64 `json:"error_rate"`
}

type analyticsFile struct {
	Version          int              `json:"version"`
	Games            []GameRecord     `json:"games"`
	Errors           []ErrorEvent     `json:"errors"`
	MonthlySummaries []MonthlySummary `json:"monthly_summaries"`
}

// Analytics is the append-only game/error store backed by one JSON file.
type Analytics struct {
	path   string
	clk    clock.Clock
	logger zerolog.Logger

	mu      sync.Mutex
	data    analyticsFile
	appends int

	saver *saver
}

// OpenAnalytics loads (or initializes) the analytics file and starts the
// save worker. A corrupt file is replaced with an empty store.
func OpenAnalytics(path string, clk clock.Clock, logger zerolog.Logger) (*Analytics, error) {
	a := &Analytics{
		path:   path,
		clk:    clk,
		logger: logger.With().Str("component", "analytics").Logger(),
	}

	if err := a.load(); err != nil {
		return nil, err
	}

	a.saver = newSaver(a.Save, a.logger)

	return a, nil
}

func (a *Analytics) load() error {
	data, err := os.ReadFile(a.path)
	switch {
	case os.IsNotExist(err):
		a.data = analyticsFile{Version: analyticsVersion}
		return a.Save()
	case err != nil:
		return fmt.Errorf("read analytics: %w", err)
	}

	if err := json.Unmarshal(data, &a.data); err != nil {
		a.logger.Warn().Err(err).Msg("corrupt analytics file, starting empty")
		a.data = analyticsFile{Version: analyticsVersion}
		return a.Save()
	}

	if a.data.Version == 0 {
		a.data.Version = analyticsVersion
	}

	return nil
}

// Save writes the store synchronously and atomically.
func (a *Analytics) Save() error {
	a.mu.Lock()
	snapshot := a.data
	snapshot.Games = append([]GameRecord(nil), a.data.Games...)
	snapshot.Errors = append([]ErrorEvent(nil), a.data.Errors...)
	snapshot.MonthlySummaries = append([]MonthlySummary(nil), a.data.MonthlySummaries...)
	a.mu.Unlock()

	return writeJSON(a.path, snapshot)
}

// ScheduleSave queues a background save and returns immediately.
func (a *Analytics) ScheduleSave() {
	a.saver.Schedule()
}

// Close drains pending saves and writes a final snapshot.
func (a *Analytics) Close(ctx context.Context) error {
	a.saver.Schedule()
	return a.saver.Close(ctx)
}

// AppendGame records a completed game and triggers a retention sweep
// every PruneInterval appends.
func (a *Analytics) AppendGame(rec GameRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.data.Games = append(a.data.Games, rec)
	a.appends++

	if a.appends%PruneInterval == 0 {
		a.pruneLocked()
	}
}

// RecordError appends an error event, truncating the message to the
// wire cap.
func (a *Analytics) RecordError(typ ErrorType, message string) {
	if len(message) > maxErrorMessageLen {
		cut := maxErrorMessageLen
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = message[:cut]
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.data.Errors = append(a.data.Errors, ErrorEvent{
		Timestamp: a.clk.Now(),
		Type:      typ,
		Message:   message,
	})
}

// Games returns a copy of the detailed game rows.
func (a *Analytics) Games() []GameRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]GameRecord(nil), a.data.Games...)
}

// Errors returns a copy of the error events.
func (a *Analytics) Errors() []ErrorEvent {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]ErrorEvent(nil), a.data.Errors...)
}

// Summaries returns a copy of the monthly summaries.
func (a *Analytics) Summaries() []MonthlySummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]MonthlySummary(nil), a.data.MonthlySummaries...)
}

// Prune runs a retention sweep immediately.
func (a *Analytics) Prune() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pruneLocked()
}

// pruneLocked folds games older than the retention cutoff into monthly
// summaries and drops old error rows. No-ops while the detailed list is
// small.
func (a *Analytics) pruneLocked() {
	if len(a.data.Games) <= MaxDetailedRecords {
		return
	}

	cutoff := a.clk.Now().AddDate(0, 0, -RetentionDays)

	// Fold into the map only; the summary slice is rebuilt afterwards so
	// no update ever writes through a pointer into a reallocated slice.
	byMonth := make(map[string]*MonthlySummary, len(a.data.MonthlySummaries))
	for _, s := range a.data.MonthlySummaries {
		s := s
		byMonth[s.Month] = &s
	}

	kept := a.data.Games[:0]
	for _, g := range a.data.Games {
		if !g.EndedAt.Before(cutoff) {
			kept = append(kept, g)
			continue
		}

		month := g.EndedAt.Format("2006-01")
		s, ok := byMonth[month]
		if !ok {
			s = &MonthlySummary{Month: month}
			byMonth[month] = s
		}

		s.GamesCount++
		s.TotalPlayers += g.PlayerCount
		s.TotalRounds += g.RoundsPlayed
		s.TotalErrors += g.ErrorCount
		s.AvgPlayersPerGame = float64(s.TotalPlayers) / float64(s.GamesCount)
		s.AvgRoundsPerGame = float64(s.TotalRounds) / float64(s.GamesCount)
		if s.TotalRounds > 0 {
			s.ErrorRate = float64(s.TotalErrors) / float64(s.TotalRounds)
		}
	}
	a.data.Games = kept

	summaries := make([]MonthlySummary, 0, len(byMonth))
	for _, s := range byMonth {
		summaries = append(summaries, *s)
	}
	a.data.MonthlySummaries = summaries

	keptErrors := a.data.Errors[:0]
	for _, e := range a.data.Errors {
		if !e.Timestamp.Before(cutoff) {
			keptErrors = append(keptErrors, e)
		}
	}
	a.data.Errors = keptErrors

	sort.Slice(a.data.MonthlySummaries, func(i, j int) bool {
		return a.data.MonthlySummaries[i].Month < a.data.MonthlySummaries[j].Month
	})
}
