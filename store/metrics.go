/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"sort"
	"time"
)

// Period selects the metrics window.
type Period string

const (
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"
	PeriodAll Period = "all"
)

// ParsePeriod maps a query string to a Period, defaulting to 7d.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case Period30d, Period90d, PeriodAll:
		return Period(s)
	default:
		return Period7d
	}
}

// PlaylistShare is one row of the top-playlists table.
type PlaylistShare struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ChartData is a bucketed game-count series for the dashboard.
type ChartData struct {
	Labels      []string `json:"labels"`
	Values      []int    `json:"values"`
	Granularity string   `json:"granularity"`
}

// ErrorStats summarizes error pressure over the window.
type ErrorStats struct {
	ErrorRate    float64      `json:"error_rate"`
	ErrorCount   int          `json:"error_count"`
	TotalEvents  int          `json:"total_events"`
	Status       string       `json:"status"`
	RecentErrors []ErrorEvent `json:"recent_errors"`
}

// Metrics is the derived dashboard payload for one period.
type Metrics struct {
	Period            Period             `json:"period"`
	TotalGames        int                `json:"total_games"`
	AvgPlayersPerGame float64            `json:"avg_players_per_game"`
	AvgScore          float64            `json:"avg_score"`
	ErrorRate         float64            `json:"error_rate"`
	PeakPlayers       int                `json:"peak_players"`
	AvgRounds         float64            `json:"avg_rounds"`
	Streak3Count      int                `json:"streak_3_count"`
	Streak5Count      int                `json:"streak_5_count"`
	Streak7Count      int                `json:"streak_7_count"`
	TotalBets         int                `json:"total_bets"`
	BetsWon           int                `json:"bets_won"`
	Trends            map[string]float64 `json:"trends"`
	Playlists         []PlaylistShare    `json:"playlists"`
	ChartData         ChartData          `json:"chart_data"`
	ErrorStats        ErrorStats         `json:"error_stats"`
}

func periodDays(p Period) int {
	switch p {
	case Period30d:
		return 30
	case Period90d:
		return 90
	case PeriodAll:
		return 0
	default:
		return 7
	}
}

type windowAggregates struct {
	totalGames  int
	avgPlayers  float64
	avgScore    float64
	errorRate   float64
	peakPlayers int
	avgRounds   float64
	streak3     int
	streak5     int
	streak7     int
	totalBets   int
	betsWon     int
}

func aggregate(games []GameRecord) windowAggregates {
	var agg windowAggregates
	agg.totalGames = len(games)
	if len(games) == 0 {
		return agg
	}

	var (
		players     int
		rounds      int
		errorCount  int
		scoreWeight float64
		scoreSum    float64
	)

	for _, g := range games {
		players += g.PlayerCount
		rounds += g.RoundsPlayed
		errorCount += g.ErrorCount
		agg.streak3 += g.Streak3Count
		agg.streak5 += g.Streak5Count
		agg.streak7 += g.Streak7Count
		agg.totalBets += g.TotalBets
		agg.betsWon += g.BetsWon

		if g.PlayerCount > agg.peakPlayers {
			agg.peakPlayers = g.PlayerCount
		}

		// Average score weighted by player count, so a packed game
		// counts for more than a duo.
		scoreWeight += float64(g.PlayerCount)
		scoreSum += g.AverageScore * float64(g.PlayerCount)
	}

	agg.avgPlayers = float64(players) / float64(len(games))
	agg.avgRounds = float64(rounds) / float64(len(games))
	if scoreWeight > 0 {
		agg.avgScore = scoreSum / scoreWeight
	}
	if rounds > 0 {
		agg.errorRate = float64(errorCount) / float64(rounds)
	}

	return agg
}

// trend is the fractional change vs the previous window. A zero previous
// maps to 1.0 when the current value is positive, 0.0 otherwise.
func trend(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 1.0
		}
		return 0.0
	}
	return (current - previous) / previous
}

func gamesBetween(games []GameRecord, from, to time.Time) []GameRecord {
	var out []GameRecord
	for _, g := range games {
		if g.EndedAt.Before(from) || !g.EndedAt.Before(to) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// ComputeMetrics derives the dashboard metrics for a period, including
// trends against the immediately preceding window of equal length.
func (a *Analytics) ComputeMetrics(p Period) Metrics {
	games := a.Games()
	errors := a.Errors()
	now := a.clk.Now()

	days := periodDays(p)

	var current, previous []GameRecord
	var windowErrors []ErrorEvent

	if days == 0 {
		current = games
		windowErrors = errors
	} else {
		from := now.AddDate(0, 0, -days)
		prevFrom := now.AddDate(0, 0, -2*days)
		current = gamesBetween(games, from, now.Add(time.Second))
		previous = gamesBetween(games, prevFrom, from)

		for _, e := range errors {
			if !e.Timestamp.Before(from) {
				windowErrors = append(windowErrors, e)
			}
		}
	}

	cur := aggregate(current)
	prev := aggregate(previous)

	m := Metrics{
		Period:            p,
		TotalGames:        cur.totalGames,
		AvgPlayersPerGame: cur.avgPlayers,
		AvgScore:          cur.avgScore,
		ErrorRate:         cur.errorRate,
		PeakPlayers:       cur.peakPlayers,
		AvgRounds:         cur.avgRounds,
		Streak3Count:      cur.streak3,
		Streak5Count:      cur.streak5,
		Streak7Count:      cur.streak7,
		TotalBets:         cur.totalBets,
		BetsWon:           cur.betsWon,
		Trends: map[string]float64{
			"total_games":          trend(float64(cur.totalGames), float64(prev.totalGames)),
			"avg_players_per_game": trend(cur.avgPlayers, prev.avgPlayers),
			"avg_score":            trend(cur.avgScore, prev.avgScore),
			"error_rate":           trend(cur.errorRate, prev.errorRate),
			"avg_rounds":           trend(cur.avgRounds, prev.avgRounds),
		},
		Playlists: topPlaylists(current, 5),
		ChartData: chartData(current, p, now),
	}
	m.ErrorStats = errorStats(current, windowErrors)

	return m
}

// ComputePlaylistStats counts games per playlist over a set of records.
func ComputePlaylistStats(games []GameRecord) map[string]int {
	counts := make(map[string]int)
	for _, g := range games {
		for _, name := range g.PlaylistNames {
			counts[name]++
		}
	}
	return counts
}

func topPlaylists(games []GameRecord, limit int) []PlaylistShare {
	counts := ComputePlaylistStats(games)

	total := 0
	for _, c := range counts {
		total += c
	}

	shares := make([]PlaylistShare, 0, len(counts))
	for name, c := range counts {
		share := PlaylistShare{Name: name, Count: c}
		if total > 0 {
			share.Percentage = 100.0 * float64(c) / float64(total)
		}
		shares = append(shares, share)
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Name < shares[j].Name
	})

	if len(shares) > limit {
		shares = shares[:limit]
	}

	return shares
}

func chartData(games []GameRecord, p Period, now time.Time) ChartData {
	switch p {
	case Period7d:
		return bucketDaily(games, now, 7)
	case Period30d:
		return bucketWeekly(games, now, 30)
	case Period90d:
		return bucketWeekly(games, now, 90)
	default:
		return bucketMonthly(games)
	}
}

func bucketDaily(games []GameRecord, now time.Time, days int) ChartData {
	cd := ChartData{Granularity: "daily"}

	counts := make(map[string]int)
	for _, g := range games {
		counts[g.EndedAt.Format("2006-01-02")]++
	}

	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		key := day.Format("2006-01-02")
		cd.Labels = append(cd.Labels, day.Format("Jan 2"))
		cd.Values = append(cd.Values, counts[key])
	}

	return cd
}

func bucketWeekly(games []GameRecord, now time.Time, days int) ChartData {
	cd := ChartData{Granularity: "weekly"}

	weeks := days / 7
	for i := weeks - 1; i >= 0; i-- {
		start := now.AddDate(0, 0, -(i+1)*7)
		end := now.AddDate(0, 0, -i*7)

		n := 0
		for _, g := range games {
			if !g.EndedAt.Before(start) && g.EndedAt.Before(end.Add(time.Second)) {
				n++
			}
		}

		cd.Labels = append(cd.Labels, start.Format("Jan 2"))
		cd.Values = append(cd.Values, n)
	}

	return cd
}

func bucketMonthly(games []GameRecord) ChartData {
	cd := ChartData{Granularity: "monthly"}

	counts := make(map[string]int)
	for _, g := range games {
		counts[g.EndedAt.Format("2006-01")]++
	}

	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Strings(months)

	for _, m := range months {
		cd.Labels = append(cd.Labels, m)
		cd.Values = append(cd.Values, counts[m])
	}

	return cd
}

func errorStats(games []GameRecord, errors []ErrorEvent) ErrorStats {
	es := ErrorStats{
		TotalEvents:  len(errors),
		RecentErrors: []ErrorEvent{},
	}

	rounds := 0
	errorCount := 0
	for _, g := range games {
		rounds += g.RoundsPlayed
		errorCount += g.ErrorCount
	}
	es.ErrorCount = errorCount
	if rounds > 0 {
		es.ErrorRate = float64(errorCount) / float64(rounds)
	}

	switch {
	case es.ErrorRate < 0.01:
		es.Status = "healthy"
	case es.ErrorRate < 0.05:
		es.Status = "warning"
	default:
		es.Status = "critical"
	}

	sorted := append([]ErrorEvent(nil), errors...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if len(sorted) > 10 {
		sorted = sorted[:10]
	}
	es.RecentErrors = sorted

	return es
}
