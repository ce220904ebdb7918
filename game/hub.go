/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"crypto/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Seednode/beatify/clock"
	"github.com/Seednode/beatify/media"
	"github.com/Seednode/beatify/playlist"
	"github.com/Seednode/beatify/store"
)

// ClientMessage is every inbound frame; Type discriminates.
type ClientMessage struct {
	Type string `json:"type"` // "join", "submit", "submit_artist", "submit_movie", "admin", "get_state"

	// join
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"`

	// submit
	Year *int `json:"year,omitempty"`
	Bet  bool `json:"bet,omitempty"`

	// submit_artist / submit_movie
	Artist string `json:"artist,omitempty"`
	Movie  string `json:"movie,omitempty"`

	// admin
	Action    string `json:"action,omitempty"`    // "start_game", "next_round", "stop_song", "set_volume", "end_game"
	Direction string `json:"direction,omitempty"` // "up" | "down"
}

// SubmitAckMessage confirms a year submission to the sender only.
type SubmitAckMessage struct {
	Type string `json:"type"` // "submit_ack"
	Year int    `json:"year"`
}

// SimpleMessage is for bare notifications ("song_stopped", "game_ended").
type SimpleMessage struct {
	Type string `json:"type"`
}

// VolumeMessage announces a volume change.
type VolumeMessage struct {
	Type  string  `json:"type"` // "volume_changed"
	Level float64 `json:"level"`
}

// ErrorMessage carries a wire code plus a human string, sent to the
// originator only.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Client is one WebSocket connection. name stays empty for observers
// that never join.
type Client struct {
	conn *websocket.Conn
	send chan any
	id   string
	name string
}

type inboundMessage struct {
	client *Client
	msg    ClientMessage
}

// StartConfig is the out-of-band game configuration staged over HTTP
// before the admin issues start_game.
type StartConfig struct {
	Pool          []playlist.Song
	PlaylistNames []string
	Player        media.Player
	Options       Options
}

// HubOptions tunes hub behavior at construction.
type HubOptions struct {
	GracePeriod time.Duration
	MaxPlayers  int

	// IdleTimeout is how long a game may sit with zero connections
	// before the reaper resets it to a fresh lobby.
	IdleTimeout time.Duration

	// JoinURL renders the externally reachable player URL for a game.
	JoinURL func(gameID string) string
}

// Hub owns the connection set and the one authoritative Game. All state
// mutations take h.mu; the run loop dispatches inbound traffic, timer
// expiry re-enters through timerC with the round number as its token.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	game    *Game

	register chan *Client
	unreg    chan *Client
	inbound  chan inboundMessage
	timerC   chan int

	clk       clock.Clock
	analytics *store.Analytics
	stats     *store.Stats
	logger    zerolog.Logger
	opts      HubOptions

	pending     *StartConfig
	roundTimer  *time.Timer
	volume      float64
	persisted   bool
	lastSeen    time.Time
	onGameStart func()

	graceTasks map[string]chan struct{}
	endedGames map[string]bool
}

func NewHub(clk clock.Clock, analytics *store.Analytics, stats *store.Stats, opts HubOptions, logger zerolog.Logger) *Hub {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 30 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if opts.JoinURL == nil {
		opts.JoinURL = func(string) string { return "" }
	}

	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		inbound:    make(chan inboundMessage, 32),
		timerC:     make(chan int, 1),
		clk:        clk,
		analytics:  analytics,
		stats:      stats,
		logger:     logger.With().Str("component", "hub").Logger(),
		opts:       opts,
		volume:     0.5,
		graceTasks: make(map[string]chan struct{}),
		endedGames: make(map[string]bool),
	}
	h.lastSeen = clk.Now()
	h.game = NewGame(newGameID(), clk, opts.MaxPlayers, logger)

	return h
}

// OnGameStart registers a hook invoked once per successful game start.
// Set before Run.
func (h *Hub) OnGameStart(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.onGameStart = fn
}

// Game returns the current authoritative game.
func (h *Hub) Game() *Game {
	return h.game
}

// GameID returns the current game's join token.
func (h *Hub) GameID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.game.ID
}

// ConnectionCount returns the number of live WebSocket clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// PlayerCount returns the number of registered player sessions.
func (h *Hub) PlayerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.game.Registry.Count()
}

// GameStatus classifies a game token for the player landing page.
func (h *Hub) GameStatus(id string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch {
	case id == h.game.ID && h.game.Phase == PhaseEnd:
		return "ENDED"
	case id == h.game.ID:
		return "VALID"
	case h.endedGames[id]:
		return "ENDED"
	default:
		return "NOT_FOUND"
	}
}

// Run drives the hub until ctx is cancelled. Teardown cancels every
// grace task and the round timer.
func (h *Hub) Run(ctx context.Context) {
	reaper := time.NewTicker(time.Minute)
	defer reaper.Stop()

	for {
		select {
		case <-ctx.Done():
			h.teardown()
			return

		case c := <-h.register:
			h.touch()
			h.handleRegister(c)

		case c := <-h.unreg:
			h.touch()
			h.handleUnregister(ctx, c)

		case in := <-h.inbound:
			h.touch()
			h.dispatch(ctx, in)

		case round := <-h.timerC:
			h.touch()
			h.handleTimerFired(ctx, round)

		case <-reaper.C:
			h.reapIdle(ctx)
		}
	}
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastSeen = h.clk.Now()
	h.mu.Unlock()
}

// reapIdle resets a game nobody is connected to once the idle window
// passes. A stranded mid-game state is ended and persisted first.
func (h *Hub) reapIdle(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) > 0 || h.clk.Now().Sub(h.lastSeen) < h.opts.IdleTimeout {
		return
	}
	if h.game.Phase == PhaseLobby && h.pending == nil && h.game.Registry.Count() == 0 {
		return
	}

	h.logger.Info().
		Str("game_id", h.game.ID).
		Str("phase", string(h.game.Phase)).
		Msg("reaping idle game")

	switch h.game.Phase {
	case PhasePlaying, PhaseReveal, PhasePaused:
		h.stopTimerLocked()
		if gerr := h.game.EndGame(ctx); gerr == nil {
			h.persistFinishedLocked()
		}
	}

	h.resetToLobbyLocked()
	h.lastSeen = h.clk.Now()
}

func (h *Hub) teardown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopTimerLocked()
	for name, cancel := range h.graceTasks {
		close(cancel)
		delete(h.graceTasks, name)
	}
	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

// dispatch runs one inbound message. A panicking handler is logged and
// the connection is kept open so one bad frame cannot cascade kicks.
func (h *Hub) dispatch(ctx context.Context, in inboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Any("panic", r).Str("type", in.msg.Type).Msg("handler panic")
			h.analytics.RecordError(store.ErrStateTransition, "handler panic")
		}
	}()

	switch in.msg.Type {
	case "join":
		h.handleJoin(in.client, in.msg)
	case "submit":
		h.handleSubmit(ctx, in.client, in.msg)
	case "submit_artist":
		h.handleSubmitArtist(ctx, in.client, in.msg)
	case "submit_movie":
		h.handleSubmitMovie(in.client, in.msg)
	case "admin":
		h.handleAdmin(ctx, in.client, in.msg)
	case "get_state":
		h.mu.Lock()
		h.sendLocked(in.client, h.snapshotLocked())
		h.mu.Unlock()
	default:
		// Unknown types are logged and ignored; the connection stays up.
		h.logger.Debug().Str("type", in.msg.Type).Msg("unknown message type")
	}
}

// Configure stages the out-of-band game setup (playlists, player,
// options) ahead of start_game.
func (h *Hub) Configure(cfg StartConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pending = &cfg
}

// StartGame starts the staged game. Called from the HTTP API and from
// the admin start_game action.
func (h *Hub) StartGame(ctx context.Context) *Error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.startLocked(ctx)
}

func (h *Hub) startLocked(ctx context.Context) *Error {
	if h.pending == nil {
		return newError(CodeInvalidAction, "no game configured: select playlists and a media player first")
	}

	cfg := h.pending
	if gerr := h.game.Start(ctx, cfg.Pool, cfg.PlaylistNames, cfg.Player, cfg.Options); gerr != nil {
		return gerr
	}

	h.persisted = false
	if h.onGameStart != nil {
		h.onGameStart()
	}
	h.afterRoundStartLocked()
	h.broadcastLocked(h.snapshotLocked())

	return nil
}

// afterRoundStartLocked arms the timer and records any playback failure
// from the round entry procedure.
func (h *Hub) afterRoundStartLocked() {
	if h.game.Phase != PhasePlaying {
		h.persistFinishedLocked()
		return
	}

	if h.game.PlaybackError != "" {
		h.analytics.RecordError(store.ErrPlaybackFailure, h.game.PlaybackError)
		h.analytics.ScheduleSave()
	}

	h.armTimerLocked(h.game.opts.RoundDuration, h.game.Round)
}

func (h *Hub) armTimerLocked(d time.Duration, round int) {
	h.stopTimerLocked()

	h.roundTimer = time.AfterFunc(d, func() {
		select {
		case h.timerC <- round:
		default:
		}
	})
}

func (h *Hub) stopTimerLocked() {
	if h.roundTimer != nil {
		h.roundTimer.Stop()
		h.roundTimer = nil
	}
}

// handleTimerFired ends the round the timer was armed for. A stale
// token (the round already ended some other way) is a no-op.
func (h *Hub) handleTimerFired(ctx context.Context, round int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.game.Phase != PhasePlaying || h.game.Round != round {
		return
	}

	h.endRoundLocked(ctx, false)
	h.broadcastLocked(h.snapshotLocked())
}

// endRoundLocked cancels the timer, scores the round, and persists song
// stats in the background.
func (h *Hub) endRoundLocked(ctx context.Context, early bool) {
	h.stopTimerLocked()

	if !h.game.EndRound(ctx, early) {
		return
	}

	song := h.game.CurrentSong
	names := h.game.PlaylistNames
	difficulty := h.game.opts.Difficulty

	var guesses []store.GuessResult
	for _, p := range h.game.Registry.Players() {
		if p.Submitted {
			guesses = append(guesses, store.GuessResult{Guess: p.CurrentGuess, YearsOff: p.YearsOff})
		}
	}

	// Fire-and-forget: the stats store serializes internally.
	go func() {
		h.stats.RecordSongResult(*song, names, guesses, difficulty)
		h.stats.ScheduleSave()
	}()
}

// persistFinishedLocked writes the analytics and stats records once per
// finished game.
func (h *Hub) persistFinishedLocked() {
	if h.game.Phase != PhaseEnd || h.persisted {
		return
	}
	h.persisted = true
	h.endedGames[h.game.ID] = true

	g := h.game
	endedAt := h.clk.Now()

	var totalScore int
	for _, p := range g.Registry.Players() {
		totalScore += p.Score
	}
	avgScore := 0.0
	if g.Registry.Count() > 0 {
		avgScore = float64(totalScore) / float64(g.Registry.Count())
	}

	rec := store.GameRecord{
		GameID:          g.ID,
		StartedAt:       g.StartedAt,
		EndedAt:         endedAt,
		DurationSeconds: endedAt.Sub(g.StartedAt).Seconds(),
		PlayerCount:     g.Registry.Count(),
		PlaylistNames:   append([]string(nil), g.PlaylistNames...),
		RoundsPlayed:    g.Round,
		AverageScore:    avgScore,
		Difficulty:      string(g.opts.Difficulty),
		ErrorCount:      g.ErrorCount,
		Streak3Count:    g.Streak3Count,
		Streak5Count:    g.Streak5Count,
		Streak7Count:    g.Streak7Count,
		TotalBets:       g.TotalBets,
		BetsWon:         g.BetsWonCount,
	}

	h.analytics.AppendGame(rec)
	h.analytics.ScheduleSave()

	h.stats.RecordGame(store.StatsGameRecord{
		GameID:        g.ID,
		EndedAt:       endedAt,
		PlayerCount:   g.Registry.Count(),
		RoundsPlayed:  g.Round,
		AverageScore:  avgScore,
		PlaylistNames: append([]string(nil), g.PlaylistNames...),
	})
	h.stats.ScheduleSave()
}

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = true
	h.sendLocked(c, h.snapshotLocked())
}

func (h *Hub) handleUnregister(ctx context.Context, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}

	if c.name == "" {
		return
	}

	p := h.game.Registry.Get(c.name)
	if p == nil {
		return
	}

	// Another live connection may still own this name.
	for other := range h.clients {
		if strings.EqualFold(other.name, p.Name) {
			return
		}
	}

	p.Connected = false

	if h.game.Phase == PhasePlaying {
		h.analytics.RecordError(store.ErrWSDisconnect, "player "+p.Name+" disconnected mid-round")
	}

	if p.IsAdmin {
		h.scheduleAdminPauseLocked(ctx, p.Name)
	} else {
		h.scheduleRemovalLocked(p.Name)
	}

	h.broadcastLocked(h.snapshotLocked())
}

// scheduleRemovalLocked drops a disconnected player after the grace
// period unless they reconnect first.
func (h *Hub) scheduleRemovalLocked(name string) {
	cancel := h.replaceGraceLocked(name)

	go func() {
		select {
		case <-cancel:
			return
		case <-time.After(h.opts.GracePeriod):
		}

		h.mu.Lock()
		defer h.mu.Unlock()

		p := h.game.Registry.Get(name)
		if p == nil || p.Connected {
			return
		}

		h.game.Registry.Remove(name)
		delete(h.graceTasks, strings.ToLower(name))

		h.logger.Info().Str("player", name).Msg("removed after grace period")
		h.broadcastLocked(h.snapshotLocked())
	}()
}

// scheduleAdminPauseLocked pauses a running game after the grace period
// if the admin has not reconnected.
func (h *Hub) scheduleAdminPauseLocked(ctx context.Context, name string) {
	cancel := h.replaceGraceLocked(name)

	go func() {
		select {
		case <-cancel:
			return
		case <-time.After(h.opts.GracePeriod):
		}

		h.mu.Lock()
		defer h.mu.Unlock()

		p := h.game.Registry.Get(name)
		if p == nil || p.Connected {
			return
		}
		delete(h.graceTasks, strings.ToLower(name))

		if h.game.Pause(ctx) {
			h.stopTimerLocked()
			h.logger.Warn().Str("admin", name).Msg("paused: admin still disconnected")
			h.broadcastLocked(h.snapshotLocked())
		}
	}()
}

func (h *Hub) replaceGraceLocked(name string) chan struct{} {
	key := strings.ToLower(name)
	if old, ok := h.graceTasks[key]; ok {
		close(old)
	}
	cancel := make(chan struct{})
	h.graceTasks[key] = cancel
	return cancel
}

func (h *Hub) cancelGraceLocked(name string) {
	key := strings.ToLower(name)
	if cancel, ok := h.graceTasks[key]; ok {
		close(cancel)
		delete(h.graceTasks, key)
	}
}

func (h *Hub) handleJoin(c *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := strings.TrimSpace(msg.Name)

	// Reconnect path: a known disconnected player reclaims their
	// session with every cumulative total intact.
	if existing := h.game.Registry.Get(name); existing != nil && !existing.Connected {
		if existing.IsAdmin && !msg.IsAdmin {
			h.sendLocked(c, errorFrame(newError(CodeNameTaken, "the name %q is already taken", name)))
			return
		}

		existing.Connected = true
		c.name = existing.Name
		h.cancelGraceLocked(existing.Name)

		if existing.IsAdmin {
			if remaining, ok := h.game.Resume(); ok {
				h.armTimerLocked(remaining, h.game.Round)
			}
		}

		h.logger.Info().Str("player", existing.Name).Bool("admin", existing.IsAdmin).Msg("reconnected")
		h.sendLocked(c, h.snapshotLocked())
		h.broadcastLocked(h.snapshotLocked())
		return
	}

	if msg.IsAdmin {
		if admin := h.game.Registry.Admin(); admin != nil {
			// Either a live admin, or a disconnected one whose grace
			// window a different name cannot claim.
			h.sendLocked(c, errorFrame(newError(CodeAdminExists, "an admin is already registered")))
			return
		}
	}

	p, gerr := h.game.Registry.Add(name, msg.IsAdmin, h.game.Phase, h.clk.Now())
	if gerr != nil {
		h.sendLocked(c, errorFrame(gerr))
		return
	}

	c.name = p.Name
	h.logger.Info().Str("player", p.Name).Bool("admin", p.IsAdmin).Bool("late", p.JoinedLate).Msg("joined")

	h.sendLocked(c, h.snapshotLocked())
	h.broadcastLocked(h.snapshotLocked())
}

func (h *Hub) handleSubmit(ctx context.Context, c *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.name == "" {
		h.sendLocked(c, errorFrame(newError(CodeNotInGame, "join the game before submitting")))
		return
	}
	if msg.Year == nil {
		h.sendLocked(c, errorFrame(newError(CodeInvalidAction, "submit requires a year")))
		return
	}

	if gerr := h.game.Submit(c.name, *msg.Year, msg.Bet); gerr != nil {
		h.sendLocked(c, errorFrame(gerr))
		return
	}

	h.sendLocked(c, SubmitAckMessage{Type: "submit_ack", Year: *msg.Year})

	if h.game.AllSubmittersComplete() {
		h.endRoundLocked(ctx, true)
	}

	h.broadcastLocked(h.snapshotLocked())
}

func (h *Hub) handleSubmitArtist(ctx context.Context, c *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.name == "" {
		h.sendLocked(c, errorFrame(newError(CodeNotInGame, "join the game before submitting")))
		return
	}

	if gerr := h.game.SubmitArtist(c.name, msg.Artist); gerr != nil {
		h.sendLocked(c, errorFrame(gerr))
		return
	}

	if h.game.AllSubmittersComplete() {
		h.endRoundLocked(ctx, true)
	}

	h.broadcastLocked(h.snapshotLocked())
}

func (h *Hub) handleSubmitMovie(c *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.name == "" {
		h.sendLocked(c, errorFrame(newError(CodeNotInGame, "join the game before submitting")))
		return
	}

	if gerr := h.game.SubmitMovie(c.name, msg.Movie); gerr != nil {
		h.sendLocked(c, errorFrame(gerr))
		return
	}

	h.broadcastLocked(h.snapshotLocked())
}

func (h *Hub) handleAdmin(ctx context.Context, c *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := h.game.Registry.Get(c.name)
	if c.name == "" || p == nil || !p.IsAdmin {
		h.sendLocked(c, errorFrame(newError(CodeNotAdmin, "admin commands require the admin session")))
		return
	}

	switch msg.Action {
	case "start_game":
		if gerr := h.startLocked(ctx); gerr != nil {
			h.sendLocked(c, errorFrame(gerr))
		}

	case "next_round":
		h.handleNextRoundLocked(ctx, c)

	case "stop_song":
		if h.game.player != nil {
			if err := h.game.player.Stop(ctx); err != nil {
				h.analytics.RecordError(store.ErrMediaPlayer, err.Error())
			}
		}
		h.broadcastLocked(SimpleMessage{Type: "song_stopped"})

	case "set_volume":
		h.handleVolumeLocked(ctx, c, msg.Direction)

	case "end_game":
		h.handleEndGameLocked(ctx)

	default:
		h.sendLocked(c, errorFrame(newError(CodeInvalidAction, "unknown admin action %q", msg.Action)))
	}
}

func (h *Hub) handleNextRoundLocked(ctx context.Context, c *Client) {
	switch h.game.Phase {
	case PhaseLobby:
		if gerr := h.startLocked(ctx); gerr != nil {
			h.sendLocked(c, errorFrame(gerr))
		}

	case PhasePlaying:
		// Admin skip: reveal now, timer cancelled first.
		h.endRoundLocked(ctx, false)
		h.broadcastLocked(h.snapshotLocked())

	case PhaseReveal:
		if gerr := h.game.Advance(ctx); gerr != nil {
			h.sendLocked(c, errorFrame(gerr))
			return
		}
		h.afterRoundStartLocked()
		h.broadcastLocked(h.snapshotLocked())

	default:
		h.sendLocked(c, errorFrame(newError(CodeInvalidAction, "cannot advance from %s", h.game.Phase)))
	}
}

func (h *Hub) handleVolumeLocked(ctx context.Context, c *Client, direction string) {
	const step = 0.1

	switch direction {
	case "up":
		h.volume += step
	case "down":
		h.volume -= step
	default:
		h.sendLocked(c, errorFrame(newError(CodeInvalidAction, "volume direction must be up or down")))
		return
	}

	if h.volume < 0 {
		h.volume = 0
	}
	if h.volume > 1 {
		h.volume = 1
	}

	if h.game.player != nil {
		if err := h.game.player.SetVolume(ctx, h.volume); err != nil {
			h.analytics.RecordError(store.ErrMediaPlayer, err.Error())
		}
	}

	h.broadcastLocked(VolumeMessage{Type: "volume_changed", Level: h.volume})
}

func (h *Hub) handleEndGameLocked(ctx context.Context) {
	switch h.game.Phase {
	case PhasePlaying, PhaseReveal, PhasePaused:
		h.stopTimerLocked()
		if gerr := h.game.EndGame(ctx); gerr != nil {
			h.analytics.RecordError(store.ErrStateTransition, gerr.Message)
			return
		}
		h.persistFinishedLocked()
		h.broadcastLocked(SimpleMessage{Type: "game_ended"})
		h.broadcastLocked(h.snapshotLocked())

	case PhaseEnd:
		h.resetToLobbyLocked()

	default:
		// end_game in LOBBY clears any staged config.
		h.pending = nil
	}
}

// EndGame is the HTTP-API path to end_game.
func (h *Hub) EndGame(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.handleEndGameLocked(ctx)
}

func (h *Hub) resetToLobbyLocked() {
	for name, cancel := range h.graceTasks {
		close(cancel)
		delete(h.graceTasks, name)
	}
	h.stopTimerLocked()

	h.pending = nil
	h.persisted = false
	h.game.ResetToLobby(newGameID())

	// Joined names no longer map to sessions.
	for c := range h.clients {
		c.name = ""
	}

	h.broadcastLocked(h.snapshotLocked())
}

func (h *Hub) snapshotLocked() StateFrame {
	return h.game.Snapshot(h.opts.JoinURL(h.game.ID))
}

// sendLocked enqueues for one client, dropping the client when its send
// buffer is full.
func (h *Hub) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcastLocked fans a message out over a snapshot of the connection
// set; one slow client never stops delivery to the rest.
func (h *Hub) broadcastLocked(msg any) {
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}

	for _, c := range targets {
		h.sendLocked(c, msg)
	}
}

func errorFrame(err *Error) ErrorMessage {
	return ErrorMessage{Type: "error", Code: err.Code, Message: err.Message}
}

// newGameID generates an 8-character crypto-random join token, rejection
// sampled to keep the alphabet unbiased.
func newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	const max = byte(255 - (256 % len(letters)))
	const n = 8

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, letters[int(b)%len(letters)])
				if len(out) == n {
					return string(out)
				}
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades an HTTP request and runs the connection's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("upgrade failed")
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan any, 16),
		id:   uuid.NewString(),
	}

	h.register <- client

	go client.writePump()
	client.readPump(h)
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		h.inbound <- inboundMessage{client: c, msg: msg}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
