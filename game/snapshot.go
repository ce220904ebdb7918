/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "github.com/Seednode/beatify/scoring"

// PlayerView is one player's row in a state frame. The reveal-only
// fields stay nil outside REVEAL and END.
type PlayerView struct {
	Name       string `json:"name"`
	Score      int    `json:"score"`
	Connected  bool   `json:"connected"`
	Streak     int    `json:"streak"`
	IsAdmin    bool   `json:"is_admin"`
	Submitted  bool   `json:"submitted"`
	JoinedLate bool   `json:"joined_late,omitempty"`

	Guess           *int    `json:"guess,omitempty"`
	RoundScore      *int    `json:"round_score,omitempty"`
	BaseScore       *int    `json:"base_score,omitempty"`
	YearsOff        *int    `json:"years_off,omitempty"`
	MissedRound     bool    `json:"missed_round,omitempty"`
	Bet             bool    `json:"bet,omitempty"`
	BetOutcome      string  `json:"bet_outcome,omitempty"`
	SpeedMultiplier float64 `json:"speed_multiplier,omitempty"`
	StreakBonus     int     `json:"streak_bonus,omitempty"`
	ArtistBonus     int     `json:"artist_bonus,omitempty"`
	MovieBonus      int     `json:"movie_bonus,omitempty"`
	IntroBonus      int     `json:"intro_bonus,omitempty"`
}

// SongView is the phase-projected song. In PLAYING the year and fun fact
// are withheld; REVEAL carries the full record.
type SongView struct {
	Artist   string `json:"artist"`
	Title    string `json:"title"`
	AlbumArt string `json:"album_art,omitempty"`

	Year           int      `json:"year,omitempty"`
	FunFact        string   `json:"fun_fact,omitempty"`
	ChartInfo      string   `json:"chart_info,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Awards         []string `json:"awards,omitempty"`

	ArtistOptions []string `json:"artist_options,omitempty"`
	MovieChoices  []string `json:"movie_choices,omitempty"`
}

// WinnerView names the END-phase winner.
type WinnerView struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// StateFrame is the authoritative snapshot broadcast to every client.
type StateFrame struct {
	Type        string       `json:"type"`
	GameID      string       `json:"game_id"`
	Phase       Phase        `json:"phase"`
	PlayerCount int          `json:"player_count"`
	Players     []PlayerView `json:"players"`

	JoinURL string `json:"join_url,omitempty"`

	Round       int   `json:"round,omitempty"`
	TotalRounds int   `json:"total_rounds,omitempty"`
	Deadline    int64 `json:"deadline,omitempty"`

	Song *SongView `json:"song,omitempty"`

	LastRound     bool   `json:"last_round,omitempty"`
	EarlyReveal   bool   `json:"early_reveal,omitempty"`
	IsIntroRound  bool   `json:"is_intro_round,omitempty"`
	PlaybackError string `json:"playback_error,omitempty"`

	Winner       *WinnerView     `json:"winner,omitempty"`
	Analytics    *RoundAnalytics `json:"analytics,omitempty"`
	Superlatives []Superlative   `json:"superlatives,omitempty"`
}

// Snapshot builds the state frame for the current phase. joinURL is the
// externally reachable player URL, included while joining is useful.
func (g *Game) Snapshot(joinURL string) StateFrame {
	reveal := g.Phase == PhaseReveal || g.Phase == PhaseEnd

	frame := StateFrame{
		Type:        "state",
		GameID:      g.ID,
		Phase:       g.Phase,
		PlayerCount: g.Registry.Count(),
		Players:     make([]PlayerView, 0, g.Registry.Count()),
	}

	for _, p := range g.Registry.Players() {
		frame.Players = append(frame.Players, g.playerView(p, reveal))
	}

	switch g.Phase {
	case PhaseLobby, PhasePlaying:
		frame.JoinURL = joinURL
	}

	if g.Phase == PhasePlaying || g.Phase == PhaseReveal || g.Phase == PhasePaused {
		frame.Round = g.Round
		if g.manager != nil {
			frame.TotalRounds = g.manager.PoolSize()
		}
		frame.Deadline = g.DeadlineMs
		frame.LastRound = g.LastRound
		frame.EarlyReveal = g.EarlyReveal
		frame.IsIntroRound = g.IsIntroRound
		frame.PlaybackError = g.PlaybackError
		frame.Song = g.songView(reveal)
	}

	if reveal {
		frame.Analytics = g.lastAnalytics
	}

	if g.Phase == PhaseEnd {
		frame.Winner = g.winner()
		frame.Superlatives = computeSuperlatives(g)
	}

	return frame
}

func (g *Game) playerView(p *PlayerSession, reveal bool) PlayerView {
	view := PlayerView{
		Name:       p.Name,
		Score:      p.Score,
		Connected:  p.Connected,
		Streak:     p.Streak,
		IsAdmin:    p.IsAdmin,
		Submitted:  p.Submitted,
		JoinedLate: p.JoinedLate,
	}

	if !reveal {
		return view
	}

	view.MissedRound = p.MissedRound
	view.Bet = p.Bet
	view.BetOutcome = string(p.BetOutcome)
	view.SpeedMultiplier = p.SpeedMultiplier
	view.StreakBonus = p.StreakBonus
	view.ArtistBonus = p.ArtistBonus
	view.MovieBonus = p.MovieBonus
	view.IntroBonus = p.IntroBonus

	if p.Submitted {
		guess := p.CurrentGuess
		roundScore := p.RoundScore
		baseScore := p.BaseScore
		yearsOff := p.YearsOff
		view.Guess = &guess
		view.RoundScore = &roundScore
		view.BaseScore = &baseScore
		view.YearsOff = &yearsOff
	}
	if view.BetOutcome == string(scoring.BetNone) {
		view.BetOutcome = ""
	}

	return view
}

func (g *Game) songView(reveal bool) *SongView {
	if g.CurrentSong == nil {
		return nil
	}
	song := *g.CurrentSong

	view := &SongView{
		Artist:   song.Artist,
		Title:    song.Title,
		AlbumArt: song.AlbumArt,
	}

	if g.artist != nil {
		view.ArtistOptions = g.artist.Options
		if !reveal {
			// Naming the artist is the challenge.
			view.Artist = ""
		}
	}
	if g.movie != nil {
		view.MovieChoices = g.movie.Choices
	}

	if reveal {
		view.Year = song.Year
		view.FunFact = song.FunFactFor(g.opts.Language)
		view.ChartInfo = song.ChartInfo
		view.Certifications = song.Certifications
		view.Awards = song.Awards
	}

	return view
}

func (g *Game) winner() *WinnerView {
	var best *PlayerSession
	for _, p := range g.Registry.Players() {
		if best == nil || p.Score > best.Score {
			best = p
		}
	}
	if best == nil {
		return nil
	}
	return &WinnerView{Name: best.Name, Score: best.Score}
}
