/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/beatify/clock"
	"github.com/Seednode/beatify/game"
	"github.com/Seednode/beatify/media"
	"github.com/Seednode/beatify/playlist"
	"github.com/Seednode/beatify/scoring"
	"github.com/Seednode/beatify/store"
)

const timeout time.Duration = 10 * time.Second

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data: https:; connect-src 'self' ws: wss:")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

func writeGameError(cfg *Config, w http.ResponseWriter, gerr *game.Error) {
	status := http.StatusBadRequest

	switch gerr.Code {
	case game.CodeGameAlreadyStarted, game.CodeGameEnded:
		status = http.StatusConflict
	case game.CodeMAUnavailable:
		status = http.StatusServiceUnavailable
	}

	writeJSON(cfg, w, status, map[string]string{
		"code":    string(gerr.Code),
		"message": gerr.Message,
	})
}

// statusResponse is the /api/status payload the admin page builds its
// setup form from.
type statusResponse struct {
	MediaPlayers []media.Entity   `json:"media_players"`
	Playlists    []playlist.Entry `json:"playlists"`
	PlaylistDir  string           `json:"playlist_dir"`
	MAConfigured bool             `json:"ma_configured"`
	MASetupURL   string           `json:"ma_setup_url,omitempty"`
}

func serveStatus(cfg *Config, loader *playlist.Loader, entities []media.Entity, logger zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		entries, err := loader.Discover()
		if err != nil {
			logger.Error().Err(err).Msg("playlist discovery failed")
			writeJSON(cfg, w, http.StatusInternalServerError, map[string]string{"message": "playlist discovery failed"})
			return
		}

		writeJSON(cfg, w, http.StatusOK, statusResponse{
			MediaPlayers: entities,
			Playlists:    entries,
			PlaylistDir:  loader.Dir(),
			MAConfigured: cfg.haURL != "",
			MASetupURL:   cfg.haURL,
		})
	}
}

func serveGameStatus(cfg *Config, hub *game.Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id := r.URL.Query().Get("game")
		if id == "" {
			writeJSON(cfg, w, http.StatusBadRequest, map[string]string{"message": "missing game parameter"})
			return
		}

		writeJSON(cfg, w, http.StatusOK, map[string]string{
			"game_id": id,
			"status":  hub.GameStatus(id),
		})
	}
}

// startRequest is the /api/game/start payload.
type startRequest struct {
	Playlists     []string `json:"playlists"`
	MediaPlayer   string   `json:"media_player"`
	Difficulty    string   `json:"difficulty"`
	RoundDuration int      `json:"round_duration,omitempty"` // seconds
	Challenges    struct {
		Artist bool `json:"artist"`
		Movie  bool `json:"movie"`
		Intro  bool `json:"intro"`
	} `json:"challenges"`
}

func serveGameStart(cfg *Config, hub *game.Hub, loader *playlist.Loader, caller media.Caller, entities []media.Entity, logger zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req startRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeJSON(cfg, w, http.StatusBadRequest, map[string]string{"message": "malformed request body"})
			return
		}

		if caller == nil {
			writeGameError(cfg, w, &game.Error{
				Code:    game.CodeMAUnavailable,
				Message: "no media backend configured: set --ha-url and --ha-token",
			})
			return
		}

		var entity *media.Entity
		for i := range entities {
			if entities[i].ID == req.MediaPlayer {
				entity = &entities[i]
				break
			}
		}
		if entity == nil {
			writeGameError(cfg, w, &game.Error{
				Code:    game.CodeUnsupportedPlat,
				Message: "unknown media player " + req.MediaPlayer,
			})
			return
		}

		pool, err := loader.Select(req.Playlists)
		if err != nil {
			writeJSON(cfg, w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}

		duration := cfg.roundDuration
		if req.RoundDuration > 0 {
			duration = time.Duration(req.RoundDuration) * time.Second
		}

		hub.Configure(game.StartConfig{
			Pool:          pool,
			PlaylistNames: req.Playlists,
			Player:        media.NewController(caller, *entity, logger),
			Options: game.Options{
				Difficulty:      scoring.ParseDifficulty(req.Difficulty),
				RoundDuration:   duration,
				Language:        cfg.language,
				ArtistChallenge: req.Challenges.Artist,
				MovieChallenge:  req.Challenges.Movie,
				IntroRounds:     req.Challenges.Intro,
			},
		})

		if gerr := hub.StartGame(r.Context()); gerr != nil {
			writeGameError(cfg, w, gerr)
			return
		}

		writeJSON(cfg, w, http.StatusOK, map[string]string{"game_id": hub.GameID()})
	}
}

func serveGameEnd(cfg *Config, hub *game.Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		hub.EndGame(r.Context())
		writeJSON(cfg, w, http.StatusOK, map[string]string{"game_id": hub.GameID()})
	}
}

func serveMetricsAPI(cfg *Config, analytics *store.Analytics) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		period := store.ParsePeriod(r.URL.Query().Get("period"))
		writeJSON(cfg, w, http.StatusOK, analytics.ComputeMetrics(period))
	}
}

func serveWS(hub *game.Hub, logger zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		logger.Debug().Str("client", realIP(r)).Msg("websocket connect")
		hub.ServeWS(w, r)
	}
}

// serveQR renders the join URL for the current game as a PNG, deriving
// the external scheme and host from the request.
func serveQR(cfg *Config, hub *game.Hub, logger zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		joinURL := scheme + "://" + r.Host + cfg.prefix + "/play?game=" + hub.GameID()

		png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			return
		}

		logger.Debug().Str("client", realIP(r)).
			Str("size", humanReadableSize(int64(len(png)))).
			Msg("served join qr")
	}
}

// ServePage wires everything together and runs the server until the
// context is cancelled or a termination signal arrives.
func ServePage(ctx context.Context, cfg *Config) error {
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if tz := os.Getenv("TZ"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return err
		}
		time.Local = loc
	}

	logger.Info().Str("version", releaseVersion).Msg("beatify starting")

	if err := os.MkdirAll(cfg.dataDir, 0o755); err != nil {
		return err
	}

	clk := clock.System()

	analytics, err := store.OpenAnalytics(filepath.Join(cfg.dataDir, "analytics.json"), clk, logger)
	if err != nil {
		return err
	}
	stats, err := store.OpenStats(filepath.Join(cfg.dataDir, "stats.json"), clk, logger)
	if err != nil {
		return err
	}

	loader := playlist.NewLoader(cfg.playlistDir, logger)
	go func() {
		if err := playlist.Watch(ctx, loader, logger); err != nil {
			logger.Warn().Err(err).Msg("playlist watcher unavailable")
		}
	}()

	entities, err := cfg.entities()
	if err != nil {
		return err
	}

	var caller media.Caller
	if cfg.haURL != "" {
		caller = media.NewRestCaller(cfg.haURL, cfg.haToken, logger)
	}

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	hub := game.NewHub(clk, analytics, stats, game.HubOptions{
		GracePeriod: cfg.gracePeriod,
		MaxPlayers:  cfg.maxPlayers,
		JoinURL: func(id string) string {
			return cfg.prefix + "/play?game=" + id
		},
	}, logger)

	promMetrics := newMetrics(analytics, hub)
	hub.OnGameStart(promMetrics.gamesStarted.Inc)
	go hub.Run(ctx)

	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		logger.Error().Any("panic", v).Str("path", r.URL.Path).Msg("handler panic")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		_, _ = io.WriteString(w, newPage(cfg, "Server Error", "An error has occurred. Please try again."))
	}

	mux.GET(cfg.prefix+"/", servePage(cfg, "Beatify", func() string { return launcherBody(cfg) }))
	mux.GET(cfg.prefix+"/launcher", servePage(cfg, "Beatify", func() string { return launcherBody(cfg) }))
	mux.GET(cfg.prefix+"/admin", servePage(cfg, "Beatify - Host", func() string { return adminBody(cfg) }))
	mux.GET(cfg.prefix+"/play", servePage(cfg, "Beatify - Play", func() string { return playBody(cfg) }))
	mux.GET(cfg.prefix+"/dashboard", servePage(cfg, "Beatify - Dashboard", func() string { return dashboardBody(cfg) }))

	mux.GET(cfg.prefix+"/api/status", serveStatus(cfg, loader, entities, logger))
	mux.GET(cfg.prefix+"/api/game/status", serveGameStatus(cfg, hub))
	mux.POST(cfg.prefix+"/api/game/start", serveGameStart(cfg, hub, loader, caller, entities, logger))
	mux.POST(cfg.prefix+"/api/game/end", serveGameEnd(cfg, hub))
	mux.GET(cfg.prefix+"/api/metrics", serveMetricsAPI(cfg, analytics))

	mux.GET(cfg.prefix+"/ws", serveWS(hub, logger))
	mux.GET(cfg.prefix+"/qr", serveQR(cfg, hub, logger))
	mux.GET(cfg.prefix+"/static/*asset", serveAssets(cfg, logger))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg))
	mux.GET(cfg.prefix+"/version", serveVersion(cfg))
	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg))
	mux.Handler("GET", cfg.prefix+"/metrics", promMetrics.handler())

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		// No WriteTimeout: WebSocket connections outlive any sane value.
	}

	go func() {
		logger.Info().Str("url", cfg.scheme()+"://"+srv.Addr+cfg.prefix+"/").Msg("listening")

		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if err := analytics.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("analytics store close")
	}
	if err := stats.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("stats store close")
	}

	return nil
}
