/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Seednode/beatify/scoring"
)

const (
	MinNameLen = 2
	MaxNameLen = 20

	DefaultMaxPlayers = 16
)

// PlayerSession is everything the server tracks for one named player.
// Cumulative totals survive for the life of the game; round-local fields
// are wiped by ResetRound at the top of every round.
type PlayerSession struct {
	Name       string
	SessionID  string
	IsAdmin    bool
	Connected  bool
	JoinedAt   time.Time
	JoinedLate bool

	// Cumulative, never reset mid-game.
	Score             int
	Streak            int
	BestStreak        int
	RoundsPlayed      int
	BetsPlaced        int
	BetsWon           int
	CloseCalls        int
	MovieBonusTotal   int
	IntroSpeedBonuses int
	RoundScores       []int
	SubmissionTimes   []float64

	// Round-local.
	Submitted       bool
	CurrentGuess    int
	SubmissionTime  float64 // seconds after round start
	Bet             bool
	HasArtistGuess  bool
	RoundScore      int
	BaseScore       int
	SpeedMultiplier float64
	YearsOff        int
	StreakBonus     int
	ArtistBonus     int
	MovieBonus      int
	IntroBonus      int
	MissedRound     bool
	BetOutcome      scoring.BetOutcome
	PreviousStreak  int
}

// ResetRound clears the round-local fields ahead of a new round.
func (p *PlayerSession) ResetRound() {
	p.Submitted = false
	p.CurrentGuess = 0
	p.SubmissionTime = 0
	p.Bet = false
	p.HasArtistGuess = false
	p.RoundScore = 0
	p.BaseScore = 0
	p.SpeedMultiplier = 0
	p.YearsOff = 0
	p.StreakBonus = 0
	p.ArtistBonus = 0
	p.MovieBonus = 0
	p.IntroBonus = 0
	p.MissedRound = false
	p.BetOutcome = scoring.BetNone
	p.PreviousStreak = 0
}

// Registry owns the ordered set of player sessions. Names are unique
// under case-insensitive comparison; at most one session is admin.
type Registry struct {
	players    []*PlayerSession
	maxPlayers int
}

func NewRegistry(maxPlayers int) *Registry {
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	return &Registry{maxPlayers: maxPlayers}
}

// Add admits a new player, enforcing the join rules in order: name shape,
// game-over, capacity, uniqueness. Joins outside the lobby are admitted
// but flagged late.
func (r *Registry) Add(name string, isAdmin bool, phase Phase, now time.Time) (*PlayerSession, *Error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < MinNameLen || n > MaxNameLen {
		return nil, newError(CodeNameInvalid, "name must be %d-%d characters", MinNameLen, MaxNameLen)
	}

	if phase == PhaseEnd {
		return nil, newError(CodeGameEnded, "this game has ended")
	}

	if len(r.players) >= r.maxPlayers {
		return nil, newError(CodeGameFull, "game is full (%d players)", r.maxPlayers)
	}

	if r.Get(name) != nil {
		return nil, newError(CodeNameTaken, "the name %q is already taken", name)
	}

	p := &PlayerSession{
		Name:       name,
		SessionID:  uuid.NewString(),
		IsAdmin:    isAdmin,
		Connected:  true,
		JoinedAt:   now,
		JoinedLate: phase != PhaseLobby,
		BetOutcome: scoring.BetNone,
	}
	r.players = append(r.players, p)

	return p, nil
}

// Get looks a player up by case-insensitive name.
func (r *Registry) Get(name string) *PlayerSession {
	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// Remove drops a player by name.
func (r *Registry) Remove(name string) bool {
	dst := r.players[:0]
	removed := false

	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			removed = true
			continue
		}
		dst = append(dst, p)
	}
	r.players = dst

	return removed
}

// Players returns the ordered session list. Callers must not mutate the
// slice itself.
func (r *Registry) Players() []*PlayerSession {
	return r.players
}

// Admin returns the session holding admin, or nil.
func (r *Registry) Admin() *PlayerSession {
	for _, p := range r.players {
		if p.IsAdmin {
			return p
		}
	}
	return nil
}

// Count returns the number of sessions.
func (r *Registry) Count() int {
	return len(r.players)
}

// ConnectedCount returns how many sessions are currently connected.
func (r *Registry) ConnectedCount() int {
	n := 0
	for _, p := range r.players {
		if p.Connected {
			n++
		}
	}
	return n
}

// Clear drops every session (game teardown).
func (r *Registry) Clear() {
	r.players = nil
}
