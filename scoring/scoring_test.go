/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccuracyScoreExact(t *testing.T) {
	for _, d := range []Difficulty{Easy, Normal, Hard} {
		for _, year := range []int{1900, 1985, 2030} {
			assert.Equal(t, 10, AccuracyScore(year, year, d), "difficulty %s year %d", d, year)
		}
	}
}

func TestAccuracyScoreTiers(t *testing.T) {
	cases := []struct {
		name   string
		d      Difficulty
		guess  int
		actual int
		want   int
	}{
		{"easy close edge", Easy, 1992, 1985, 5},
		{"easy near edge", Easy, 1995, 1985, 1},
		{"easy beyond", Easy, 1996, 1985, 0},
		{"normal close edge", Normal, 1988, 1985, 5},
		{"normal near edge", Normal, 1990, 1985, 1},
		{"normal beyond", Normal, 1991, 1985, 0},
		{"hard close edge", Hard, 1987, 1985, 3},
		{"hard has no near tier", Hard, 1988, 1985, 0},
		{"negative diff symmetric", Normal, 1982, 1985, 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AccuracyScore(tc.guess, tc.actual, tc.d))
		})
	}
}

func TestSpeedMultiplierLaws(t *testing.T) {
	const d = 30.0

	assert.Equal(t, 2.0, SpeedMultiplier(0, d))
	assert.Equal(t, 1.0, SpeedMultiplier(d, d))
	assert.Equal(t, 1.0, SpeedMultiplier(d*2, d), "clamped past deadline")
	assert.Equal(t, 2.0, SpeedMultiplier(-1, d), "clamped below zero elapsed")
	assert.Equal(t, 1.0, SpeedMultiplier(5, 0), "zero duration")

	// Monotonically decreasing in elapsed.
	prev := 2.0
	for e := 0.0; e <= d; e += 0.5 {
		m := SpeedMultiplier(e, d)
		require.LessOrEqual(t, m, prev)
		prev = m
	}
}

func TestRoundScoreTruncates(t *testing.T) {
	// 10 * 1.9667 = 19.667 -> 19, never rounded up.
	assert.Equal(t, 19, RoundScore(10, SpeedMultiplier(1, 30)))
	assert.Equal(t, 20, RoundScore(10, 2.0))
	assert.Equal(t, 0, RoundScore(0, 2.0))
}

func TestApplyBet(t *testing.T) {
	score, outcome := ApplyBet(19, false)
	assert.Equal(t, 19, score)
	assert.Equal(t, BetNone, outcome)

	score, outcome = ApplyBet(20, true)
	assert.Equal(t, 40, score)
	assert.Equal(t, BetWon, outcome)

	score, outcome = ApplyBet(0, true)
	assert.Equal(t, 0, score)
	assert.Equal(t, BetLost, outcome)
}

func TestStreakBonusMilestones(t *testing.T) {
	want := map[int]int{1: 0, 2: 0, 3: 20, 4: 0, 5: 50, 6: 0, 10: 100, 11: 0}
	for streak, bonus := range want {
		assert.Equal(t, bonus, StreakBonus(streak), "streak %d", streak)
	}
}

func TestParseDifficulty(t *testing.T) {
	assert.Equal(t, Easy, ParseDifficulty("easy"))
	assert.Equal(t, Hard, ParseDifficulty("hard"))
	assert.Equal(t, Normal, ParseDifficulty("normal"))
	assert.Equal(t, Normal, ParseDifficulty(""))
	assert.Equal(t, Normal, ParseDifficulty("impossible"))
}

func TestCloseRange(t *testing.T) {
	assert.Equal(t, 7, CloseRange(Easy))
	assert.Equal(t, 3, CloseRange(Normal))
	assert.Equal(t, 2, CloseRange(Hard))
}
