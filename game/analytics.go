/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"fmt"
	"sort"
)

// GuessSummary is one player's reveal-time guess line, ordered by
// distance from the true year.
type GuessSummary struct {
	Name     string  `json:"name"`
	Guess    int     `json:"guess"`
	YearsOff int     `json:"years_off"`
	Seconds  float64 `json:"seconds"`
}

// RoundAnalytics is computed once per reveal and carried on REVEAL and
// END state frames.
type RoundAnalytics struct {
	Guesses       []GuessSummary `json:"guesses"`
	MeanGuess     float64        `json:"mean_guess"`
	MedianGuess   float64        `json:"median_guess"`
	Closest       []string       `json:"closest,omitempty"`
	Furthest      []string       `json:"furthest,omitempty"`
	ExactCount    int            `json:"exact_count"`
	AccuracyPct   float64        `json:"accuracy_pct"`
	SpeedChampion string         `json:"speed_champion,omitempty"`
	Decades       map[string]int `json:"decades"`
	CorrectDecade string         `json:"correct_decade"`
}

func decadeLabel(year int) string {
	return fmt.Sprintf("%ds", year/10*10)
}

func computeRoundAnalytics(g *Game) *RoundAnalytics {
	ra := &RoundAnalytics{
		Decades:       make(map[string]int),
		CorrectDecade: decadeLabel(g.CurrentSong.Year),
	}

	var (
		guessSum   int
		guessVals  []int
		scored     int
		fastest    float64
		fastestSet bool
	)

	for _, p := range g.Registry.Players() {
		if !p.Submitted {
			continue
		}

		ra.Guesses = append(ra.Guesses, GuessSummary{
			Name:     p.Name,
			Guess:    p.CurrentGuess,
			YearsOff: p.YearsOff,
			Seconds:  p.SubmissionTime,
		})

		guessSum += p.CurrentGuess
		guessVals = append(guessVals, p.CurrentGuess)
		ra.Decades[decadeLabel(p.CurrentGuess)]++

		if p.YearsOff == 0 {
			ra.ExactCount++
		}
		if p.RoundScore > 0 {
			scored++
		}
		if !fastestSet || p.SubmissionTime < fastest {
			fastest = p.SubmissionTime
			fastestSet = true
			ra.SpeedChampion = p.Name
		}
	}

	if len(ra.Guesses) == 0 {
		return ra
	}

	sort.SliceStable(ra.Guesses, func(i, j int) bool {
		return ra.Guesses[i].YearsOff < ra.Guesses[j].YearsOff
	})

	ra.MeanGuess = float64(guessSum) / float64(len(guessVals))
	ra.MedianGuess = median(guessVals)
	ra.AccuracyPct = 100.0 * float64(scored) / float64(len(ra.Guesses))

	best := ra.Guesses[0].YearsOff
	worst := ra.Guesses[len(ra.Guesses)-1].YearsOff
	for _, gs := range ra.Guesses {
		if gs.YearsOff == best {
			ra.Closest = append(ra.Closest, gs.Name)
		}
		if gs.YearsOff == worst && worst != best {
			ra.Furthest = append(ra.Furthest, gs.Name)
		}
	}

	return ra
}

func median(vals []int) float64 {
	sorted := append([]int(nil), vals...)
	sort.Ints(sorted)

	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2.0
}

// Superlative is one end-of-game callout.
type Superlative struct {
	Title  string `json:"title"`
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// computeSuperlatives builds the end-of-game callouts from cumulative
// session totals.
func computeSuperlatives(g *Game) []Superlative {
	var out []Superlative

	var (
		bestStreak *PlayerSession
		mostBets   *PlayerSession
		fastest    *PlayerSession
		fastestAvg float64
		mostClose  *PlayerSession
	)

	for _, p := range g.Registry.Players() {
		if p.BestStreak > 0 && (bestStreak == nil || p.BestStreak > bestStreak.BestStreak) {
			bestStreak = p
		}
		if p.BetsPlaced > 0 && (mostBets == nil || p.BetsPlaced > mostBets.BetsPlaced) {
			mostBets = p
		}
		if p.CloseCalls > 0 && (mostClose == nil || p.CloseCalls > mostClose.CloseCalls) {
			mostClose = p
		}
		if len(p.SubmissionTimes) > 0 {
			sum := 0.0
			for _, t := range p.SubmissionTimes {
				sum += t
			}
			avg := sum / float64(len(p.SubmissionTimes))
			if fastest == nil || avg < fastestAvg {
				fastest = p
				fastestAvg = avg
			}
		}
	}

	if bestStreak != nil {
		out = append(out, Superlative{
			Title:  "On Fire",
			Name:   bestStreak.Name,
			Detail: fmt.Sprintf("best streak of %d", bestStreak.BestStreak),
		})
	}
	if fastest != nil {
		out = append(out, Superlative{
			Title:  "Quick Draw",
			Name:   fastest.Name,
			Detail: fmt.Sprintf("averaged %.1fs per answer", fastestAvg),
		})
	}
	if mostBets != nil {
		out = append(out, Superlative{
			Title:  "High Roller",
			Name:   mostBets.Name,
			Detail: fmt.Sprintf("placed %d bets, won %d", mostBets.BetsPlaced, mostBets.BetsWon),
		})
	}
	if mostClose != nil {
		out = append(out, Superlative{
			Title:  "Almost Famous",
			Name:   mostClose.Name,
			Detail: fmt.Sprintf("%d close calls", mostClose.CloseCalls),
		})
	}

	return out
}
