/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/beatify/media"
)

type Config struct {
	bind          string
	port          int
	prefix        string
	tlsCert       string
	tlsKey        string
	dataDir       string
	playlistDir   string
	roundDuration time.Duration
	gracePeriod   time.Duration
	maxPlayers    int
	language      string
	haURL         string
	haToken       string
	mediaPlayers  []string
	profile       bool
	verbose       bool
	version       bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.playlistDir == "" {
		return errors.New("--playlist-dir is required")
	}
	if c.roundDuration < 5*time.Second {
		return fmt.Errorf("round duration %s is too short", c.roundDuration)
	}
	if _, err := c.entities(); err != nil {
		return err
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// entities parses --media-player values of the form
// "platform:entity_id[:name]" into player entities.
func (c *Config) entities() ([]media.Entity, error) {
	out := make([]media.Entity, 0, len(c.mediaPlayers))

	for _, raw := range c.mediaPlayers {
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid --media-player %q (want platform:entity_id[:name])", raw)
		}

		e := media.Entity{
			Platform: parts[0],
			ID:       parts[1],
			Name:     parts[1],
		}
		if len(parts) == 3 && parts[2] != "" {
			e.Name = parts[2]
		}
		out = append(out, e)
	}

	return out, nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BEATIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "beatify",
		Short:         "A real-time multiplayer music guessing game for your living room.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: BEATIFY_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: BEATIFY_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "/beatify", "path to prepend to all URLs, for use behind reverse proxy (env: BEATIFY_PREFIX)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: BEATIFY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: BEATIFY_TLS_KEY)")
	fs.StringVar(&cfg.dataDir, "data-dir", ".", "directory for analytics and stats files (env: BEATIFY_DATA_DIR)")
	fs.StringVar(&cfg.playlistDir, "playlist-dir", "", "directory containing playlist json files (env: BEATIFY_PLAYLIST_DIR)")
	fs.DurationVar(&cfg.roundDuration, "round-duration", 30*time.Second, "default guessing time per round (env: BEATIFY_ROUND_DURATION)")
	fs.DurationVar(&cfg.gracePeriod, "grace-period", 30*time.Second, "reconnect window before disconnected players are dropped (env: BEATIFY_GRACE_PERIOD)")
	fs.IntVar(&cfg.maxPlayers, "max-players", 16, "maximum players per game (env: BEATIFY_MAX_PLAYERS)")
	fs.StringVar(&cfg.language, "language", "en", "fun fact language (env: BEATIFY_LANGUAGE)")
	fs.StringVar(&cfg.haURL, "ha-url", "", "base url of the home assistant instance driving playback (env: BEATIFY_HA_URL)")
	fs.StringVar(&cfg.haToken, "ha-token", "", "long-lived access token for --ha-url (env: BEATIFY_HA_TOKEN)")
	fs.StringSliceVar(&cfg.mediaPlayers, "media-player", nil, "media player as platform:entity_id[:name], repeatable (env: BEATIFY_MEDIA_PLAYER)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: BEATIFY_PROFILE)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: BEATIFY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: BEATIFY_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("beatify v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
