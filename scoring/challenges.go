/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package scoring

import (
	"sort"
	"strings"
)

const (
	// ArtistBonusPoints is paid to the first player naming the artist.
	ArtistBonusPoints = 5

	// MovieBonusPoints is paid to the first player naming the movie;
	// later correct answers earn the participation bonus.
	MovieBonusPoints         = 5
	MovieParticipationPoints = 2

	// IntroDurationSeconds is the window after round start in which a
	// submission counts as an intro-round answer.
	IntroDurationSeconds = 10

	// IntroRoundChance is the probability a round is flagged as an
	// intro round when the mode is enabled.
	IntroRoundChance = 0.25
)

// IntroBonusTiers pays by submission rank inside the intro window.
var IntroBonusTiers = [3]int{5, 3, 1}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ArtistChallenge tracks one round's artist side challenge. The first
// correct answer wins; everyone else gets nothing.
type ArtistChallenge struct {
	Correct string
	Options []string

	guesses map[string]string
	winner  string
}

// NewArtistChallenge builds a challenge with the correct artist and the
// decoy options shuffled in by the caller.
func NewArtistChallenge(correct string, options []string) *ArtistChallenge {
	return &ArtistChallenge{
		Correct: correct,
		Options: options,
		guesses: make(map[string]string),
	}
}

// Submit records a player's artist guess. It returns whether the guess
// was correct and whether this player is the (first) winner. Repeat
// submissions by the same player are ignored.
func (a *ArtistChallenge) Submit(player, artist string) (correct, won bool) {
	if _, dup := a.guesses[player]; dup {
		return false, false
	}
	a.guesses[player] = artist

	correct = normalizeAnswer(artist) == normalizeAnswer(a.Correct)
	if correct && a.winner == "" {
		a.winner = player
		won = true
	}

	return correct, won
}

// HasGuess reports whether a player has submitted an artist guess.
func (a *ArtistChallenge) HasGuess(player string) bool {
	_, ok := a.guesses[player]
	return ok
}

// Winner returns the first correct submitter, or "".
func (a *ArtistChallenge) Winner() string {
	return a.winner
}

// PlayerBonus returns the artist bonus owed to a player this round.
func (a *ArtistChallenge) PlayerBonus(player string) int {
	if a.winner == player {
		return ArtistBonusPoints
	}
	return 0
}

// MovieChallenge is a multiple-choice "which movie featured this song"
// side challenge. First correct answer takes the full bonus, later
// correct answers take the participation bonus.
type MovieChallenge struct {
	Correct string
	Choices []string

	guesses map[string]string
	winner  string
}

func NewMovieChallenge(correct string, choices []string) *MovieChallenge {
	return &MovieChallenge{
		Correct: correct,
		Choices: choices,
		guesses: make(map[string]string),
	}
}

// Submit records a player's movie pick.
func (m *MovieChallenge) Submit(player, movie string) (correct, won bool) {
	if _, dup := m.guesses[player]; dup {
		return false, false
	}
	m.guesses[player] = movie

	correct = normalizeAnswer(movie) == normalizeAnswer(m.Correct)
	if correct && m.winner == "" {
		m.winner = player
		won = true
	}

	return correct, won
}

func (m *MovieChallenge) Winner() string {
	return m.winner
}

// PlayerBonus returns the movie bonus owed to a player this round.
func (m *MovieChallenge) PlayerBonus(player string) int {
	guess, ok := m.guesses[player]
	if !ok || normalizeAnswer(guess) != normalizeAnswer(m.Correct) {
		return 0
	}
	if m.winner == player {
		return MovieBonusPoints
	}
	return MovieParticipationPoints
}

// IntroRound pays tiered bonuses to the fastest submitters inside the
// intro window, by submission rank.
type IntroRound struct {
	StartMs int64

	entries []introEntry
}

type introEntry struct {
	player string
	atMs   int64
}

func NewIntroRound(startMs int64) *IntroRound {
	return &IntroRound{StartMs: startMs}
}

// Record notes a submission time. Submissions outside the intro window
// are discarded.
func (ir *IntroRound) Record(player string, atMs int64) {
	if atMs-ir.StartMs > IntroDurationSeconds*1000 {
		return
	}
	for _, e := range ir.entries {
		if e.player == player {
			return
		}
	}
	ir.entries = append(ir.entries, introEntry{player: player, atMs: atMs})
}

// PlayerBonus returns the tier bonus for a player's intro rank, or 0.
func (ir *IntroRound) PlayerBonus(player string) int {
	ranked := make([]introEntry, len(ir.entries))
	copy(ranked, ir.entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].atMs < ranked[j].atMs
	})

	for i, e := range ranked {
		if e.player != player {
			continue
		}
		if i < len(IntroBonusTiers) {
			return IntroBonusTiers[i]
		}
		return 0
	}

	return 0
}
