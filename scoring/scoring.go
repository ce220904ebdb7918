/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package scoring implements the deterministic scoring rules: accuracy
// tiers scaled by difficulty, speed multipliers, double-or-nothing bets,
// streak milestones, and the side-challenge bonuses. Every function is
// pure; all inputs are explicit.
package scoring

// Difficulty selects the accuracy tier table.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Normal Difficulty = "normal"
	Hard   Difficulty = "hard"
)

// ParseDifficulty maps a wire string to a Difficulty, defaulting to Normal.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case Easy, Hard:
		return Difficulty(s)
	default:
		return Normal
	}
}

// accuracyTier holds the non-exact tiers for one difficulty. An exact
// guess is always worth exactScore regardless of difficulty.
type accuracyTier struct {
	closeRange int // |guess-actual| <= closeRange -> closeScore
	closeScore int
	nearRange  int // |guess-actual| <= nearRange -> nearScore; 0 disables
	nearScore  int
}

const exactScore = 10

var tiers = map[Difficulty]accuracyTier{
	Easy:   {closeRange: 7, closeScore: 5, nearRange: 10, nearScore: 1},
	Normal: {closeRange: 3, closeScore: 5, nearRange: 5, nearScore: 1},
	Hard:   {closeRange: 2, closeScore: 3},
}

// CloseRange returns the "close guess" distance for a difficulty, used by
// the stats store to bucket per-song guess quality.
func CloseRange(d Difficulty) int {
	return tiers[d].closeRange
}

// AccuracyScore returns the base score for a year guess.
func AccuracyScore(guess, actual int, d Difficulty) int {
	diff := guess - actual
	if diff < 0 {
		diff = -diff
	}

	if diff == 0 {
		return exactScore
	}

	tier, ok := tiers[d]
	if !ok {
		tier = tiers[Normal]
	}

	switch {
	case diff <= tier.closeRange:
		return tier.closeScore
	case tier.nearRange > 0 && diff <= tier.nearRange:
		return tier.nearScore
	default:
		return 0
	}
}

// SpeedMultiplier rewards fast submissions: 2.0 at t=0 decaying linearly
// to 1.0 at the deadline, clamped to [1.0, 2.0].
func SpeedMultiplier(elapsedSeconds, roundDurationSeconds float64) float64 {
	if roundDurationSeconds <= 0 {
		return 1.0
	}

	m := 2.0 - elapsedSeconds/roundDurationSeconds

	switch {
	case m < 1.0:
		return 1.0
	case m > 2.0:
		return 2.0
	default:
		return m
	}
}

// RoundScore combines accuracy and speed. Truncation is deliberate: the
// score is the integer part of accuracy x speed, never rounded up.
func RoundScore(accuracy int, speed float64) int {
	return int(float64(accuracy) * speed)
}

// BetOutcome is the wire representation of a resolved bet.
type BetOutcome string

const (
	BetNone BetOutcome = "none"
	BetWon  BetOutcome = "won"
	BetLost BetOutcome = "lost"
)

// ApplyBet resolves a double-or-nothing bet against a round score.
func ApplyBet(roundScore int, placed bool) (int, BetOutcome) {
	if !placed {
		return roundScore, BetNone
	}
	if roundScore > 0 {
		return roundScore * 2, BetWon
	}
	return 0, BetLost
}

// Streak milestone bonuses, paid once when the streak hits the exact value.
var streakMilestones = map[int]int{
	3:  20,
	5:  50,
	10: 100,
}

// StreakBonus returns the milestone bonus for reaching exactly streak
// consecutive scoring rounds, or 0.
func StreakBonus(streak int) int {
	return streakMilestones[streak]
}
