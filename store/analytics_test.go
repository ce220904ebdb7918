/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/beatify/clock"
)

func testRecord(id string, endedAt time.Time) GameRecord {
	return GameRecord{
		GameID:       id,
		StartedAt:    endedAt.Add(-10 * time.Minute),
		EndedAt:      endedAt,
		PlayerCount:  4,
		RoundsPlayed: 10,
		AverageScore: 120,
		Difficulty:   "normal",
	}
}

func TestOpenAnalyticsInitializesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.json")
	clk := clock.NewFake(time.Unix(1000, 0))

	a, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var file analyticsFile
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Equal(t, analyticsVersion, file.Version)
	assert.Empty(t, file.Games)
}

func TestOpenAnalyticsRecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	clk := clock.NewFake(time.Unix(1000, 0))
	a, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Empty(t, a.Games())

	// The corrupt file was replaced with a valid empty store.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var file analyticsFile
	assert.NoError(t, json.Unmarshal(data, &file))
}

func TestAnalyticsSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analytics.json")
	clk := clock.NewFake(time.Unix(1000, 0))

	a, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	a.AppendGame(testRecord("game1", clk.Now()))
	require.NoError(t, a.Save())

	// No temp sibling left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "analytics.json", entries[0].Name())

	// Reload round-trips.
	b, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close(context.Background())

	games := b.Games()
	require.Len(t, games, 1)
	assert.Equal(t, "game1", games[0].GameID)
}

func TestRecordErrorTruncatesMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.json")
	clk := clock.NewFake(time.Unix(1000, 0))

	a, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	a.RecordError(ErrMediaPlayer, strings.Repeat("x", 2000))

	errors := a.Errors()
	require.Len(t, errors, 1)
	assert.Len(t, errors[0].Message, maxErrorMessageLen)
	assert.Equal(t, ErrMediaPlayer, errors[0].Type)
	assert.Equal(t, clk.Now(), errors[0].Timestamp)
}

func TestPruneNoopsBelowThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.json")
	clk := clock.NewFake(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))

	a, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	old := clk.Now().AddDate(-2, 0, 0)
	for i := 0; i < 100; i++ {
		a.AppendGame(testRecord("old", old))
	}

	a.Prune()
	assert.Len(t, a.Games(), 100, "small stores keep full detail regardless of age")
	assert.Empty(t, a.Summaries())
}

func TestPruneFoldsOldGamesIntoMonthlySummaries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.json")
	clk := clock.NewFake(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))

	a, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	old := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 400; i++ {
		rec := testRecord("old", old)
		rec.ErrorCount = 1
		a.AppendGame(rec)
	}
	recent := clk.Now().AddDate(0, 0, -1)
	for i := 0; i < 200; i++ {
		a.AppendGame(testRecord("recent", recent))
	}

	a.Prune()

	games := a.Games()
	assert.Len(t, games, 200, "only recent games keep full detail")
	for _, g := range games {
		assert.Equal(t, "recent", g.GameID)
	}

	summaries := a.Summaries()
	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.Equal(t, "2025-03", s.Month)
	assert.Equal(t, 400, s.GamesCount)
	assert.Equal(t, 1600, s.TotalPlayers)
	assert.Equal(t, 4.0, s.AvgPlayersPerGame)
	assert.Equal(t, 4000, s.TotalRounds)
	assert.Equal(t, 10.0, s.AvgRoundsPerGame)
	assert.InDelta(t, 0.1, s.ErrorRate, 0.0001, "400 errors over 4000 rounds")
}

func TestPruneDropsOldErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.json")
	clk := clock.NewFake(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))

	a, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	// Error recorded long ago, then the clock moves on.
	clk.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	a.RecordError(ErrWSDisconnect, "ancient")
	clk.Set(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	a.RecordError(ErrWSDisconnect, "fresh")

	for i := 0; i < MaxDetailedRecords+1; i++ {
		a.AppendGame(testRecord("filler", clk.Now().AddDate(-1, 0, 0)))
	}

	a.Prune()

	errors := a.Errors()
	require.Len(t, errors, 1)
	assert.Equal(t, "fresh", errors[0].Message)
}

func TestAppendGameTriggersPeriodicPrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.json")
	clk := clock.NewFake(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))

	a, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	old := clk.Now().AddDate(-1, 0, 0)

	// Enough appends to cross the detail cap and land on a prune tick.
	n := MaxDetailedRecords + PruneInterval
	n -= n % PruneInterval
	for i := 0; i < n; i++ {
		a.AppendGame(testRecord("old", old))
	}

	assert.NotEmpty(t, a.Summaries(), "sweep ran without an explicit Prune call")
}

func TestScheduleSaveEventuallyWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.json")
	clk := clock.NewFake(time.Unix(1000, 0))

	a, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)

	a.AppendGame(testRecord("game1", clk.Now()))
	a.ScheduleSave()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))

	b, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close(context.Background())

	assert.Len(t, b.Games(), 1)
}

func TestPruneMergesInterleavedMonths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.json")
	clk := clock.NewFake(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))

	a, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	// Two expired March games split around an expired April one, so the
	// March summary must absorb a second game after April's was created.
	march := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	april := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	a.AppendGame(testRecord("march1", march))
	a.AppendGame(testRecord("april1", april))
	a.AppendGame(testRecord("march2", march))

	recent := clk.Now().AddDate(0, 0, -1)
	for i := 0; i < MaxDetailedRecords; i++ {
		a.AppendGame(testRecord("recent", recent))
	}

	a.Prune()

	summaries := a.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, "2025-03", summaries[0].Month)
	assert.Equal(t, 2, summaries[0].GamesCount)
	assert.Equal(t, 8, summaries[0].TotalPlayers)
	assert.Equal(t, "2025-04", summaries[1].Month)
	assert.Equal(t, 1, summaries[1].GamesCount)

	assert.Len(t, a.Games(), MaxDetailedRecords)
}

func TestPruneFoldsIntoExistingSummaries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.json")
	clk := clock.NewFake(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))

	a, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	march := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	recent := clk.Now().AddDate(0, 0, -1)

	a.AppendGame(testRecord("march1", march))
	for i := 0; i < MaxDetailedRecords; i++ {
		a.AppendGame(testRecord("recent", recent))
	}
	a.Prune()

	// A later sweep folds more games into the summary made by the first.
	may := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	a.AppendGame(testRecord("march2", march))
	a.AppendGame(testRecord("may1", may))
	for i := 0; i < 2; i++ {
		a.AppendGame(testRecord("recent", recent))
	}
	a.Prune()

	summaries := a.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, "2025-03", summaries[0].Month)
	assert.Equal(t, 2, summaries[0].GamesCount)
	assert.Equal(t, "2025-05", summaries[1].Month)
	assert.Equal(t, 1, summaries[1].GamesCount)
}

func TestRecordErrorTruncatesOnRuneBoundary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.json")
	clk := clock.NewFake(time.Unix(1000, 0))

	a, err := OpenAnalytics(path, clk, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	// A multi-byte rune straddles the cap; the cut backs up to keep the
	// stored message valid UTF-8.
	a.RecordError(ErrMediaPlayer, strings.Repeat("x", maxErrorMessageLen-1)+"世界")

	errors := a.Errors()
	require.Len(t, errors, 1)
	assert.True(t, utf8.ValidString(errors[0].Message))
	assert.Len(t, errors[0].Message, maxErrorMessageLen-1)
}
