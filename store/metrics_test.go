/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/beatify/clock"
)

func TestParsePeriod(t *testing.T) {
	assert.Equal(t, Period7d, ParsePeriod(""))
	assert.Equal(t, Period7d, ParsePeriod("bogus"))
	assert.Equal(t, Period30d, ParsePeriod("30d"))
	assert.Equal(t, Period90d, ParsePeriod("90d"))
	assert.Equal(t, PeriodAll, ParsePeriod("all"))
}

func TestTrendLaws(t *testing.T) {
	assert.Equal(t, 1.0, trend(5, 0), "growth from nothing")
	assert.Equal(t, 0.0, trend(0, 0))
	assert.Equal(t, 0.5, trend(15, 10))
	assert.Equal(t, -0.5, trend(5, 10))
}

func newMetricsFixture(t *testing.T, now time.Time) *Analytics {
	t.Helper()

	clk := clock.NewFake(now)
	a, err := OpenAnalytics(filepath.Join(t.TempDir(), "analytics.json"), clk, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	return a
}

func TestComputeMetricsWindowsAndTrends(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	a := newMetricsFixture(t, now)

	// Current window: two games in the last 7 days.
	for i, players := range []int{2, 6} {
		rec := testRecord("current", now.AddDate(0, 0, -1-i))
		rec.PlayerCount = players
		rec.AverageScore = 100
		rec.PlaylistNames = []string{"eighties"}
		a.AppendGame(rec)
	}

	// Previous window: one game between 7 and 14 days ago.
	prev := testRecord("previous", now.AddDate(0, 0, -10))
	prev.PlaylistNames = []string{"nineties"}
	a.AppendGame(prev)

	// Outside both windows: ignored entirely.
	a.AppendGame(testRecord("ancient", now.AddDate(0, 0, -60)))

	m := a.ComputeMetrics(Period7d)

	assert.Equal(t, Period7d, m.Period)
	assert.Equal(t, 2, m.TotalGames)
	assert.Equal(t, 4.0, m.AvgPlayersPerGame)
	assert.Equal(t, 100.0, m.AvgScore)
	assert.Equal(t, 6, m.PeakPlayers)
	assert.Equal(t, 10.0, m.AvgRounds)

	assert.Equal(t, 1.0, m.Trends["total_games"], "(2-1)/1")
	assert.Equal(t, 0.0, m.Trends["avg_rounds"], "both windows averaged 10")

	require.Len(t, m.Playlists, 1)
	assert.Equal(t, "eighties", m.Playlists[0].Name)
	assert.Equal(t, 100.0, m.Playlists[0].Percentage)

	assert.Equal(t, "daily", m.ChartData.Granularity)
	assert.Len(t, m.ChartData.Labels, 7)

	total := 0
	for _, v := range m.ChartData.Values {
		total += v
	}
	assert.Equal(t, 2, total, "only current-window games charted")
}

func TestComputeMetricsAllHasNoTrendBaseline(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	a := newMetricsFixture(t, now)

	a.AppendGame(testRecord("one", now.AddDate(0, 0, -400)))
	a.AppendGame(testRecord("two", now.AddDate(0, 0, -1)))

	m := a.ComputeMetrics(PeriodAll)

	assert.Equal(t, 2, m.TotalGames, "all means all, no cutoff")
	assert.Equal(t, 1.0, m.Trends["total_games"], "no previous window to compare against")
	assert.Equal(t, "monthly", m.ChartData.Granularity)
}

func TestComputeMetricsWeightsScoreByPlayers(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	a := newMetricsFixture(t, now)

	big := testRecord("big", now.AddDate(0, 0, -1))
	big.PlayerCount = 8
	big.AverageScore = 200
	a.AppendGame(big)

	small := testRecord("small", now.AddDate(0, 0, -2))
	small.PlayerCount = 2
	small.AverageScore = 100
	a.AppendGame(small)

	m := a.ComputeMetrics(Period7d)
	assert.Equal(t, 180.0, m.AvgScore, "(200*8 + 100*2) / 10")
}

func TestTopPlaylistsOrderingAndLimit(t *testing.T) {
	var games []GameRecord
	add := func(name string, n int) {
		for i := 0; i < n; i++ {
			games = append(games, GameRecord{PlaylistNames: []string{name}})
		}
	}

	add("alpha", 3)
	add("bravo", 5)
	add("charlie", 3)
	add("delta", 1)
	add("echo", 2)
	add("foxtrot", 2)

	shares := topPlaylists(games, 5)
	require.Len(t, shares, 5)

	assert.Equal(t, "bravo", shares[0].Name)
	// Ties break alphabetically.
	assert.Equal(t, "alpha", shares[1].Name)
	assert.Equal(t, "charlie", shares[2].Name)
	assert.Equal(t, "echo", shares[3].Name)
	assert.Equal(t, "foxtrot", shares[4].Name)

	assert.InDelta(t, 31.25, shares[0].Percentage, 0.001, "5 of 16")
}

func TestChartDataBuckets(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	games := []GameRecord{
		{EndedAt: now.Add(-time.Hour)},
		{EndedAt: now.AddDate(0, 0, -3)},
		{EndedAt: now.AddDate(0, 0, -3)},
	}

	daily := chartData(games, Period7d, now)
	assert.Equal(t, "daily", daily.Granularity)
	require.Len(t, daily.Values, 7)
	assert.Equal(t, 1, daily.Values[6], "today last")
	assert.Equal(t, 2, daily.Values[3])

	weekly := chartData(games, Period30d, now)
	assert.Equal(t, "weekly", weekly.Granularity)
	assert.Len(t, weekly.Values, 4)

	monthly := chartData(games, PeriodAll, now)
	assert.Equal(t, "monthly", monthly.Granularity)
	require.Len(t, monthly.Labels, 1)
	assert.Equal(t, "2026-08", monthly.Labels[0])
	assert.Equal(t, 3, monthly.Values[0])
}

func TestErrorStatsStatusThresholds(t *testing.T) {
	mk := func(rounds, errs int) ErrorStats {
		return errorStats([]GameRecord{{RoundsPlayed: rounds, ErrorCount: errs}}, nil)
	}

	assert.Equal(t, "healthy", mk(1000, 5).Status)
	assert.Equal(t, "warning", mk(1000, 10).Status, "1% crosses into warning")
	assert.Equal(t, "warning", mk(1000, 49).Status)
	assert.Equal(t, "critical", mk(1000, 50).Status)
	assert.Equal(t, "healthy", mk(0, 0).Status, "no rounds, no rate")
}

func TestErrorStatsRecentCappedAndNewestFirst(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	var events []ErrorEvent
	for i := 0; i < 15; i++ {
		events = append(events, ErrorEvent{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Type:      ErrWSDisconnect,
		})
	}

	es := errorStats(nil, events)
	assert.Equal(t, 15, es.TotalEvents)
	require.Len(t, es.RecentErrors, 10)
	assert.True(t, es.RecentErrors[0].Timestamp.After(es.RecentErrors[9].Timestamp))
}
