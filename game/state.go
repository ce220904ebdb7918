/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/rs/zerolog"

	"github.com/Seednode/beatify/clock"
	"github.com/Seednode/beatify/media"
	"github.com/Seednode/beatify/playlist"
	"github.com/Seednode/beatify/scoring"
)

// Phase is the game lifecycle state.
type Phase string

const (
	PhaseLobby   Phase = "LOBBY"
	PhasePlaying Phase = "PLAYING"
	PhaseReveal  Phase = "REVEAL"
	PhaseEnd     Phase = "END"
	PhasePaused  Phase = "PAUSED"
)

// Options configures one game run.
type Options struct {
	Difficulty      scoring.Difficulty
	RoundDuration   time.Duration
	Language        string
	ArtistChallenge bool
	MovieChallenge  bool
	IntroRounds     bool
}

// Game is the authoritative state machine. It is not safe for concurrent
// use on its own: the hub serializes every mutation behind its lock, and
// the round timer re-enters through the hub with a generation token.
type Game struct {
	ID       string
	Phase    Phase
	Registry *Registry

	clk    clock.Clock
	logger zerolog.Logger

	opts          Options
	manager       *playlist.Manager
	PlaylistNames []string
	player        media.Player

	Round         int
	CurrentSong   *playlist.Song
	DeadlineMs    int64
	RoundStartMs  int64
	LastRound     bool
	EarlyReveal   bool
	IsIntroRound  bool
	PlaybackError string
	StartedAt     time.Time

	artist *scoring.ArtistChallenge
	movie  *scoring.MovieChallenge
	intro  *scoring.IntroRound

	// Aggregates for the analytics record.
	Streak3Count int
	Streak5Count int
	Streak7Count int
	TotalBets    int
	BetsWonCount int
	ErrorCount   int

	// Remaining round time captured on pause, restored on resume.
	pausedRemainingMs int64

	lastAnalytics *RoundAnalytics
}

func NewGame(id string, clk clock.Clock, maxPlayers int, logger zerolog.Logger) *Game {
	return &Game{
		ID:       id,
		Phase:    PhaseLobby,
		Registry: NewRegistry(maxPlayers),
		clk:      clk,
		logger:   logger.With().Str("component", "game").Str("game", id).Logger(),
	}
}

// Options returns the configured run options.
func (g *Game) Options() Options {
	return g.opts
}

// RoundDurationSeconds returns the configured round length in seconds.
func (g *Game) RoundDurationSeconds() float64 {
	return g.opts.RoundDuration.Seconds()
}

// ArtistChallengeActive reports whether this round has a live artist
// challenge.
func (g *Game) ArtistChallengeActive() bool {
	return g.artist != nil
}

// ArtistOptions returns the shuffled artist choices for the round.
func (g *Game) ArtistOptions() []string {
	if g.artist == nil {
		return nil
	}
	return g.artist.Options
}

// MovieChoices returns the movie choices for the round.
func (g *Game) MovieChoices() []string {
	if g.movie == nil {
		return nil
	}
	return g.movie.Choices
}

// LastAnalytics returns the analytics computed at the latest reveal.
func (g *Game) LastAnalytics() *RoundAnalytics {
	return g.lastAnalytics
}

// Start moves LOBBY -> PLAYING: installs the pool, player, and options,
// then runs the first round.
func (g *Game) Start(ctx context.Context, pool []playlist.Song, playlistNames []string, player media.Player, opts Options) *Error {
	switch g.Phase {
	case PhasePlaying, PhaseReveal, PhasePaused:
		return newError(CodeGameAlreadyStarted, "a game is already in progress")
	case PhaseEnd:
		return newError(CodeGameEnded, "this game has ended")
	}

	if g.Registry.Count() == 0 {
		return newError(CodeInvalidAction, "cannot start with no players")
	}
	if len(pool) == 0 {
		return newError(CodeInvalidAction, "song pool is empty")
	}

	if opts.RoundDuration <= 0 {
		opts.RoundDuration = 30 * time.Second
	}
	if opts.Difficulty == "" {
		opts.Difficulty = scoring.Normal
	}

	g.opts = opts
	g.manager = playlist.NewManager(pool)
	g.PlaylistNames = append([]string(nil), playlistNames...)
	g.player = player
	g.Round = 0
	g.StartedAt = g.clk.Now()
	g.Streak3Count, g.Streak5Count, g.Streak7Count = 0, 0, 0
	g.TotalBets, g.BetsWonCount, g.ErrorCount = 0, 0, 0

	g.logger.Info().Int("pool", len(pool)).Strs("playlists", playlistNames).
		Str("difficulty", string(opts.Difficulty)).Msg("game starting")

	return g.StartRound(ctx)
}

// StartRound runs the round entry procedure: draw a song, start playback,
// arm the deadline, reset per-round player state, and enter PLAYING. The
// hub arms the actual timer using Round as the generation token.
func (g *Game) StartRound(ctx context.Context) *Error {
	if g.manager == nil {
		return newError(CodeGameNotStarted, "no game in progress")
	}

	song, ok := g.manager.Next()
	if !ok {
		g.finish()
		return nil
	}

	g.Round++
	g.CurrentSong = &song
	g.LastRound = g.manager.IsExhausted()
	g.EarlyReveal = false
	g.PlaybackError = ""

	for _, p := range g.Registry.Players() {
		p.ResetRound()
	}

	g.setupChallenges(song)

	if err := g.player.PlaySong(ctx, song); err != nil {
		// Players can still guess; the admin sees the error annotation
		// and decides whether to abort.
		g.PlaybackError = err.Error()
		g.ErrorCount++
		g.logger.Error().Err(err).Str("uri", song.URI).Msg("playback failed")
	}

	g.RoundStartMs = g.clk.NowMs()
	g.DeadlineMs = g.RoundStartMs + g.opts.RoundDuration.Milliseconds()
	g.Phase = PhasePlaying

	g.logger.Info().Int("round", g.Round).Int("year", song.Year).
		Bool("last_round", g.LastRound).Bool("intro", g.IsIntroRound).Msg("round started")

	return nil
}

func (g *Game) setupChallenges(song playlist.Song) {
	g.artist = nil
	g.movie = nil
	g.intro = nil
	g.IsIntroRound = false

	if g.opts.ArtistChallenge && len(song.AltArtists) > 0 {
		options := append([]string{song.Artist}, song.AltArtists...)
		shuffle(options)
		g.artist = scoring.NewArtistChallenge(song.Artist, options)
	}

	if g.opts.MovieChallenge && song.Movie != "" && len(song.MovieChoices) > 0 {
		choices := append([]string(nil), song.MovieChoices...)
		shuffle(choices)
		g.movie = scoring.NewMovieChallenge(song.Movie, choices)
	}

	if g.opts.IntroRounds && chance(scoring.IntroRoundChance) {
		g.IsIntroRound = true
		g.intro = scoring.NewIntroRound(g.clk.NowMs())
	}
}

// Submit records a player's year guess.
func (g *Game) Submit(name string, year int, bet bool) *Error {
	switch g.Phase {
	case PhaseEnd:
		return newError(CodeGameEnded, "this game has ended")
	case PhasePlaying:
	default:
		return newError(CodeGameNotStarted, "no round in progress")
	}

	p := g.Registry.Get(name)
	if p == nil {
		return newError(CodeNotInGame, "join the game before submitting")
	}
	if p.Submitted {
		return newError(CodeAlreadySubmitted, "you already submitted this round")
	}

	nowMs := g.clk.NowMs()
	if nowMs > g.DeadlineMs {
		return newError(CodeRoundExpired, "the round is over")
	}

	if year < playlist.YearMin || year > playlist.YearMax {
		return newError(CodeInvalidAction, "year must be between %d and %d", playlist.YearMin, playlist.YearMax)
	}

	p.Submitted = true
	p.CurrentGuess = year
	p.SubmissionTime = float64(nowMs-g.RoundStartMs) / 1000.0
	p.Bet = bet

	if g.intro != nil {
		g.intro.Record(p.Name, nowMs)
	}

	return nil
}

// SubmitArtist records a player's artist-challenge pick.
func (g *Game) SubmitArtist(name, artist string) *Error {
	if g.Phase != PhasePlaying {
		return newError(CodeGameNotStarted, "no round in progress")
	}
	if g.artist == nil {
		return newError(CodeInvalidAction, "no artist challenge this round")
	}

	p := g.Registry.Get(name)
	if p == nil {
		return newError(CodeNotInGame, "join the game before submitting")
	}
	if g.artist.HasGuess(p.Name) {
		return newError(CodeAlreadySubmitted, "you already picked an artist")
	}

	g.artist.Submit(p.Name, artist)
	p.HasArtistGuess = true

	return nil
}

// SubmitMovie records a player's movie-challenge pick.
func (g *Game) SubmitMovie(name, movie string) *Error {
	if g.Phase != PhasePlaying {
		return newError(CodeGameNotStarted, "no round in progress")
	}
	if g.movie == nil {
		return newError(CodeInvalidAction, "no movie challenge this round")
	}

	p := g.Registry.Get(name)
	if p == nil {
		return newError(CodeNotInGame, "join the game before submitting")
	}

	g.movie.Submit(p.Name, movie)

	return nil
}

// AllSubmittersComplete reports whether every connected player has
// finished the round: year submitted, and the artist pick too when the
// challenge is live.
func (g *Game) AllSubmittersComplete() bool {
	connected := 0

	for _, p := range g.Registry.Players() {
		if !p.Connected {
			continue
		}
		connected++

		if !p.Submitted {
			return false
		}
		if g.artist != nil && !p.HasArtistGuess {
			return false
		}
	}

	return connected > 0
}

// EndRound transitions PLAYING -> REVEAL and scores every player. It is
// idempotent: a stale timer firing after some other path already ended
// the round is a no-op.
func (g *Game) EndRound(ctx context.Context, early bool) bool {
	if g.Phase != PhasePlaying {
		return false
	}

	g.Phase = PhaseReveal
	g.EarlyReveal = early

	if err := g.player.Stop(ctx); err != nil {
		g.logger.Warn().Err(err).Msg("stop at reveal failed")
	}

	for _, p := range g.Registry.Players() {
		g.scorePlayer(p)
	}

	g.lastAnalytics = computeRoundAnalytics(g)

	g.logger.Info().Int("round", g.Round).Bool("early", early).Msg("round revealed")

	return true
}

func (g *Game) scorePlayer(p *PlayerSession) {
	p.PreviousStreak = p.Streak

	if !p.Submitted {
		p.MissedRound = true
		p.RoundScore = 0
		p.Streak = 0

		// Challenge wins are independent of the year guess.
		p.ArtistBonus = g.challengeBonus(g.artist != nil, func() int { return g.artist.PlayerBonus(p.Name) })
		p.MovieBonus = g.challengeBonus(g.movie != nil, func() int { return g.movie.PlayerBonus(p.Name) })
		p.MovieBonusTotal += p.MovieBonus
		p.Score += p.ArtistBonus + p.MovieBonus

		return
	}

	actual := g.CurrentSong.Year
	p.YearsOff = p.CurrentGuess - actual
	if p.YearsOff < 0 {
		p.YearsOff = -p.YearsOff
	}

	p.BaseScore = scoring.AccuracyScore(p.CurrentGuess, actual, g.opts.Difficulty)
	p.SpeedMultiplier = scoring.SpeedMultiplier(p.SubmissionTime, g.opts.RoundDuration.Seconds())

	roundScore := scoring.RoundScore(p.BaseScore, p.SpeedMultiplier)
	roundScore, p.BetOutcome = scoring.ApplyBet(roundScore, p.Bet)
	p.RoundScore = roundScore

	if p.Bet {
		p.BetsPlaced++
		g.TotalBets++
		if p.BetOutcome == scoring.BetWon {
			p.BetsWon++
			g.BetsWonCount++
		}
	}

	if roundScore > 0 {
		p.Streak++
	} else {
		p.Streak = 0
	}
	if p.Streak > p.BestStreak {
		p.BestStreak = p.Streak
	}
	switch p.Streak {
	case 3:
		g.Streak3Count++
	case 5:
		g.Streak5Count++
	case 7:
		g.Streak7Count++
	}

	p.StreakBonus = scoring.StreakBonus(p.Streak)
	p.ArtistBonus = g.challengeBonus(g.artist != nil, func() int { return g.artist.PlayerBonus(p.Name) })
	p.MovieBonus = g.challengeBonus(g.movie != nil, func() int { return g.movie.PlayerBonus(p.Name) })
	p.IntroBonus = g.challengeBonus(g.intro != nil, func() int { return g.intro.PlayerBonus(p.Name) })

	if p.YearsOff != 0 && p.YearsOff <= scoring.CloseRange(g.opts.Difficulty) {
		p.CloseCalls++
	}
	p.MovieBonusTotal += p.MovieBonus
	if p.IntroBonus > 0 {
		p.IntroSpeedBonuses++
	}

	total := roundScore + p.StreakBonus + p.ArtistBonus + p.MovieBonus + p.IntroBonus
	p.Score += total
	p.RoundsPlayed++
	p.RoundScores = append(p.RoundScores, roundScore)
	p.SubmissionTimes = append(p.SubmissionTimes, p.SubmissionTime)
}

func (g *Game) challengeBonus(active bool, bonus func() int) int {
	if !active {
		return 0
	}
	return bonus()
}

// Advance handles admin next_round from REVEAL: a new round, or the end
// of the game when the pool is exhausted or the last round was played.
func (g *Game) Advance(ctx context.Context) *Error {
	if g.Phase != PhaseReveal {
		return newError(CodeInvalidAction, "cannot advance from %s", g.Phase)
	}

	if g.LastRound || g.manager.IsExhausted() {
		g.finish()
		return nil
	}

	return g.StartRound(ctx)
}

// finish transitions to END.
func (g *Game) finish() {
	g.Phase = PhaseEnd
	g.logger.Info().Int("rounds", g.Round).Msg("game over")
}

// EndGame force-ends from any in-game phase.
func (g *Game) EndGame(ctx context.Context) *Error {
	switch g.Phase {
	case PhasePlaying, PhaseReveal, PhasePaused:
	default:
		return newError(CodeGameNotStarted, "no game in progress")
	}

	if g.Phase == PhasePlaying || g.Phase == PhasePaused {
		if err := g.player.Stop(ctx); err != nil {
			g.logger.Warn().Err(err).Msg("stop at game end failed")
		}
	}

	g.finish()

	return nil
}

// Pause suspends a running round after the admin grace period expires.
// The remaining round time is preserved for Resume.
func (g *Game) Pause(ctx context.Context) bool {
	if g.Phase != PhasePlaying {
		return false
	}

	g.pausedRemainingMs = g.DeadlineMs - g.clk.NowMs()
	if g.pausedRemainingMs < 0 {
		g.pausedRemainingMs = 0
	}
	g.Phase = PhasePaused

	if err := g.player.Stop(ctx); err != nil {
		g.logger.Warn().Err(err).Msg("stop on pause failed")
	}

	g.logger.Info().Int64("remaining_ms", g.pausedRemainingMs).Msg("game paused")

	return true
}

// Resume restores a paused round, re-basing the deadline on the remaining
// time. Returns the remaining duration so the hub can re-arm the timer.
func (g *Game) Resume() (time.Duration, bool) {
	if g.Phase != PhasePaused {
		return 0, false
	}

	remaining := time.Duration(g.pausedRemainingMs) * time.Millisecond
	g.DeadlineMs = g.clk.NowMs() + g.pausedRemainingMs
	g.Phase = PhasePlaying

	g.logger.Info().Dur("remaining", remaining).Msg("game resumed")

	return remaining, true
}

// ResetToLobby clears all state after END, making the hub ready for a
// fresh game under a new ID.
func (g *Game) ResetToLobby(newID string) {
	g.ID = newID
	g.Phase = PhaseLobby
	g.Registry.Clear()
	g.manager = nil
	g.PlaylistNames = nil
	g.player = nil
	g.Round = 0
	g.CurrentSong = nil
	g.DeadlineMs = 0
	g.RoundStartMs = 0
	g.LastRound = false
	g.EarlyReveal = false
	g.IsIntroRound = false
	g.PlaybackError = ""
	g.artist = nil
	g.movie = nil
	g.intro = nil
	g.lastAnalytics = nil
	g.logger = g.logger.With().Str("game", newID).Logger()
}

// shuffle is an in-place Fisher-Yates over crypto/rand.
func shuffle(items []string) {
	for i := len(items) - 1; i > 0; i-- {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			continue
		}
		j := int(binary.BigEndian.Uint64(buf[:]) % uint64(i+1))
		items[i], items[j] = items[j], items[i]
	}
}

// chance returns true with probability p.
func chance(p float64) bool {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return false
	}
	v := float64(binary.BigEndian.Uint64(buf[:])) / float64(^uint64(0))
	return v < p
}
