/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Seednode/beatify/clock"
	"github.com/Seednode/beatify/playlist"
	"github.com/Seednode/beatify/scoring"
)

const (
	statsVersion = 1

	// MinPlaysForDifficulty is how often a song must have been played
	// before its difficulty rating is meaningful.
	MinPlaysForDifficulty = 3

	// CorrectGuessThreshold is the years-off bound for a guess to count
	// as "correct" in song stats, independent of game difficulty.
	CorrectGuessThreshold = 5
)

// StatsGameRecord is the brief per-game row kept in the stats file.
type StatsGameRecord struct {
	GameID        string    `json:"game_id"`
	EndedAt       time.Time `json:"ended_at"`
	PlayerCount   int       `json:"player_count"`
	RoundsPlayed  int       `json:"rounds_played"`
	AverageScore  float64   `json:"average_score"`
	PlaylistNames []string  `json:"playlist_names"`
}

// AllTime is the weighted rolling average across every recorded game.
// Each game weighs rounds x players, so long full games dominate short
// duo sessions.
type AllTime struct {
	TotalGames   int     `json:"total_games"`
	TotalRounds  int     `json:"total_rounds"`
	TotalPlayers int     `json:"total_players"`
	AvgScore     float64 `json:"avg_score"`
	TotalWeight  float64 `json:"total_weight"`
}

// SongStats tracks how players handle one song across games.
type SongStats struct {
	TimesPlayed    int            `json:"times_played"`
	ExactMatches   int            `json:"exact_matches"`
	CloseMatches   int            `json:"close_matches"`
	CorrectGuesses int            `json:"correct_guesses"`
	TotalGuesses   int            `json:"total_guesses"`
	TotalYearsOff  int            `json:"total_years_off"`
	Playlists      map[string]int `json:"playlists"`
	Artist         string         `json:"artist"`
	Title          string         `json:"title"`
	Year           int            `json:"year"`
	LastPlayed     time.Time      `json:"last_played"`
}

type statsFile struct {
	Version   int                   `json:"version"`
	Games     []StatsGameRecord     `json:"games"`
	Playlists map[string]int        `json:"playlists"`
	AllTime   AllTime               `json:"all_time"`
	Songs     map[string]*SongStats `json:"songs"`
}

// Stats is the all-time stats store backed by one JSON file.
type Stats struct {
	path   string
	clk    clock.Clock
	logger zerolog.Logger

	mu   sync.Mutex
	data statsFile

	saver *saver
}

// OpenStats loads (or initializes) the stats file and starts its save
// worker. A corrupt file is replaced with an empty store.
func OpenStats(path string, clk clock.Clock, logger zerolog.Logger) (*Stats, error) {
	s := &Stats{
		path:   path,
		clk:    clk,
		logger: logger.With().Str("component", "stats").Logger(),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	s.saver = newSaver(s.Save, s.logger)

	return s, nil
}

func (s *Stats) load() error {
	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		s.data = emptyStatsFile()
		return s.Save()
	case err != nil:
		return fmt.Errorf("read stats: %w", err)
	}

	if err := json.Unmarshal(data, &s.data); err != nil {
		s.logger.Warn().Err(err).Msg("corrupt stats file, starting empty")
		s.data = emptyStatsFile()
		return s.Save()
	}

	if s.data.Playlists == nil {
		s.data.Playlists = make(map[string]int)
	}
	if s.data.Songs == nil {
		s.data.Songs = make(map[string]*SongStats)
	}
	if s.data.Version == 0 {
		s.data.Version = statsVersion
	}

	return nil
}

func emptyStatsFile() statsFile {
	return statsFile{
		Version:   statsVersion,
		Playlists: make(map[string]int),
		Songs:     make(map[string]*SongStats),
	}
}

// Save writes the store synchronously and atomically.
func (s *Stats) Save() error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	return writeBytes(s.path, data)
}

// ScheduleSave queues a background save and returns immediately.
func (s *Stats) ScheduleSave() {
	s.saver.Schedule()
}

// Close drains pending saves.
func (s *Stats) Close(ctx context.Context) error {
	s.saver.Schedule()
	return s.saver.Close(ctx)
}

// RecordGame folds a completed game into the per-playlist counters and
// the weighted all-time averages. Games with zero players are skipped.
func (s *Stats) RecordGame(rec StatsGameRecord) {
	if rec.PlayerCount == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Games = append(s.data.Games, rec)

	for _, name := range rec.PlaylistNames {
		s.data.Playlists[name]++
	}

	at := &s.data.AllTime
	at.TotalGames++
	at.TotalRounds += rec.RoundsPlayed
	at.TotalPlayers += rec.PlayerCount

	weight := float64(rec.RoundsPlayed * rec.PlayerCount)
	if weight > 0 {
		at.AvgScore = (at.AvgScore*at.TotalWeight + rec.AverageScore*weight) / (at.TotalWeight + weight)
		at.TotalWeight += weight
	}
}

// GuessResult is one player's year guess against a song.
type GuessResult struct {
	Guess    int
	YearsOff int
}

// RecordSongResult updates per-song counters after a reveal.
func (s *Stats) RecordSongResult(song playlist.Song, playlistNames []string, guesses []GuessResult, difficulty scoring.Difficulty) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss, ok := s.data.Songs[song.URI]
	if !ok {
		ss = &SongStats{Playlists: make(map[string]int)}
		s.data.Songs[song.URI] = ss
	}

	ss.Artist = song.Artist
	ss.Title = song.Title
	ss.Year = song.Year
	ss.TimesPlayed++
	ss.LastPlayed = s.clk.Now()

	for _, name := range playlistNames {
		ss.Playlists[name]++
	}

	closeRange := scoring.CloseRange(difficulty)
	for _, g := range guesses {
		ss.TotalGuesses++
		ss.TotalYearsOff += g.YearsOff

		switch {
		case g.YearsOff == 0:
			ss.ExactMatches++
		case g.YearsOff <= closeRange:
			ss.CloseMatches++
		}
		if g.YearsOff <= CorrectGuessThreshold {
			ss.CorrectGuesses++
		}
	}
}

// Song returns a copy of one song's stats.
func (s *Stats) Song(uri string) (SongStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss, ok := s.data.Songs[uri]
	if !ok {
		return SongStats{}, false
	}
	out := *ss
	return out, true
}

// AllTimeStats returns a copy of the rolled-up averages.
func (s *Stats) AllTimeStats() AllTime {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.data.AllTime
}

// PlaylistCounts returns a copy of the per-playlist game counters.
func (s *Stats) PlaylistCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.data.Playlists))
	for k, v := range s.data.Playlists {
		out[k] = v
	}
	return out
}

// SongDifficulty rates a song from 1 (easy) to 4 (hard) stars based on
// accumulated guess accuracy. Songs under MinPlaysForDifficulty plays
// are unrated.
func (s *Stats) SongDifficulty(uri string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss, ok := s.data.Songs[uri]
	if !ok || ss.TimesPlayed < MinPlaysForDifficulty || ss.TotalGuesses == 0 {
		return 0, false
	}

	accuracy := float64(ss.ExactMatches+ss.CloseMatches) / float64(ss.TotalGuesses)

	switch {
	case accuracy >= 0.75:
		return 1, true
	case accuracy >= 0.50:
		return 2, true
	case accuracy >= 0.25:
		return 3, true
	default:
		return 4, true
	}
}
