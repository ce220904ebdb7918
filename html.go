/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"embed"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

//go:embed assets/*
var assets embed.FS

// newPage wraps a body in the shared document shell.
func newPage(cfg *Config, title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
	htmlBody.WriteString(fmt.Sprintf(`<link rel="stylesheet" href="%s/static/assets/beatify.css">`, cfg.prefix))
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head><body><main>", title))
	htmlBody.WriteString(body)
	htmlBody.WriteString(`</main></body></html>`)

	return htmlBody.String()
}

func servePage(cfg *Config, title string, body func() string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_, _ = w.Write([]byte(newPage(cfg, title, body())))
	}
}

func launcherBody(cfg *Config) string {
	return fmt.Sprintf(`<h1>Beatify</h1>
<div class="card">
<p>Guess the year. Brag forever.</p>
<p><a href="%[1]s/admin">Host a game</a></p>
<p><a href="%[1]s/play">Join a game</a></p>
<p><a href="%[1]s/dashboard">Dashboard</a></p>
</div>
<div class="card">
<p>Scan to join on your phone:</p>
<img src="%[1]s/qr" alt="join QR code" width="256" height="256">
</div>`, cfg.prefix)
}

func playBody(cfg *Config) string {
	return fmt.Sprintf(`<h1>Beatify</h1>
<div id="join" class="card">
<input id="name" placeholder="your name" maxlength="20">
<button id="joinBtn">Join</button>
<p id="joinError" class="error"></p>
</div>
<div id="round" class="card" hidden>
<p id="roundInfo" class="muted"></p>
<p id="song"></p>
<input id="year" type="number" min="1900" max="2030" value="1985">
<label><input id="bet" type="checkbox"> double or nothing</label>
<button id="submitBtn">Lock it in</button>
<div id="choices"></div>
<p id="reveal"></p>
</div>
<div class="card"><ul id="scoreboard" class="scoreboard"></ul></div>
<script src="%s/static/assets/play.js"></script>`, cfg.prefix)
}

func adminBody(cfg *Config) string {
	return fmt.Sprintf(`<h1>Beatify &mdash; Host</h1>
<div id="join" class="card">
<input id="name" placeholder="host name" maxlength="20">
<button id="joinBtn">Claim host</button>
<p id="joinError" class="error"></p>
</div>
<div id="setup" class="card" hidden>
<div id="playlists"></div>
<select id="player"></select>
<select id="difficulty">
<option value="easy">easy</option>
<option value="normal" selected>normal</option>
<option value="hard">hard</option>
</select>
<label><input id="artist" type="checkbox"> artist challenge</label>
<label><input id="movie" type="checkbox"> movie challenge</label>
<label><input id="intro" type="checkbox"> intro rounds</label>
<button id="startBtn">Start game</button>
</div>
<div id="controls" class="card" hidden>
<button id="nextBtn">Next round</button>
<button id="stopBtn">Stop song</button>
<button id="volDown">Vol -</button>
<button id="volUp">Vol +</button>
<button id="endBtn">End game</button>
<p id="state" class="muted"></p>
</div>
<div class="card"><ul id="scoreboard" class="scoreboard"></ul></div>
<script src="%s/static/assets/admin.js"></script>`, cfg.prefix)
}

func dashboardBody(cfg *Config) string {
	return fmt.Sprintf(`<h1>Beatify &mdash; Dashboard</h1>
<div class="card">
<select id="period">
<option value="7d" selected>last 7 days</option>
<option value="30d">last 30 days</option>
<option value="90d">last 90 days</option>
<option value="all">all time</option>
</select>
</div>
<div id="metrics" class="card"></div>
<div id="errors" class="card"></div>
<script src="%s/static/assets/dashboard.js"></script>`, cfg.prefix)
}

func serveHealthCheck(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, _ = w.Write([]byte("Ok\n"))
	}
}

func serveVersion(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, _ = w.Write([]byte("beatify v" + releaseVersion + "\n"))
	}
}

func serveAssets(cfg *Config, logger zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		start := time.Now()

		fname := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, cfg.prefix+"/static"), "/")

		data, err := assets.ReadFile(fname)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		switch strings.ToLower(filepath.Ext(fname)) {
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case ".js":
			w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		case ".svg":
			w.Header().Set("Content-Type", "image/svg+xml")
		case ".woff2":
			w.Header().Set("Content-Type", "font/woff2")
		}

		if _, err := w.Write(data); err != nil {
			return
		}

		logger.Debug().Str("asset", fname).
			Str("size", humanReadableSize(int64(len(data)))).
			Str("client", realIP(r)).
			Dur("elapsed", time.Since(start)).
			Msg("served asset")
	}
}

func serveRobots(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data := `User-agent: Amazonbot
Disallow: /

User-agent: Applebot-Extended
Disallow: /

User-agent: Bytespider
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: ClaudeBot
Disallow: /

User-agent: Google-Extended
Disallow: /

User-agent: GPTBot
Disallow: /

User-agent: meta-externalagent
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, _ = w.Write([]byte(data))
	}
}
