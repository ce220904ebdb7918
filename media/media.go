/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package media routes playback commands to the configured media player.
// The host platform's service bus is abstracted behind Caller; the game
// only sees the Player interface and decides for itself whether a failed
// call is fatal for the round.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Seednode/beatify/playlist"
)

// ErrUnsupportedPlatform is returned when the configured entity carries a
// platform tag no adapter exists for.
var ErrUnsupportedPlatform = errors.New("unsupported media player platform")

// Supported platform tags.
const (
	PlatformMusicAssistant = "music_assistant"
	PlatformSonos          = "sonos"
	PlatformAlexaMedia     = "alexa_media"
)

// Metadata is the currently-playing track as reported by the player.
type Metadata struct {
	Artist   string `json:"artist"`
	Title    string `json:"title"`
	AlbumArt string `json:"album_art,omitempty"`
}

// Caller is the host platform's service bus. Implementations are external
// collaborators; tests use a recording fake.
type Caller interface {
	// CallService invokes domain.service against a target entity.
	CallService(ctx context.Context, domain, service, entity string, data map[string]any) error

	// EntityState returns the entity's state string and attributes.
	EntityState(ctx context.Context, entity string) (string, map[string]any, error)
}

// Entity identifies the configured media player and how to talk to it.
type Entity struct {
	ID       string `json:"entity_id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Provider string `json:"provider,omitempty"` // alexa content type: SPOTIFY, APPLE_MUSIC
}

// Player is what the game layer drives.
type Player interface {
	PlaySong(ctx context.Context, song playlist.Song) error
	Stop(ctx context.Context) error
	SetVolume(ctx context.Context, level float64) error
	Metadata(ctx context.Context) (Metadata, error)
	IsAvailable(ctx context.Context) bool
	VerifyResponsive(ctx context.Context, timeout time.Duration) (bool, string)
}

// Controller implements Player by platform-tag routing over a Caller.
type Controller struct {
	caller Caller
	entity Entity
	logger zerolog.Logger
}

func NewController(caller Caller, entity Entity, logger zerolog.Logger) *Controller {
	return &Controller{
		caller: caller,
		entity: entity,
		logger: logger.With().Str("component", "media").Str("entity", entity.ID).Logger(),
	}
}

// Entity returns the configured player entity.
func (c *Controller) Entity() Entity {
	return c.entity
}

// PlaySong starts playback of the song on the configured player.
func (c *Controller) PlaySong(ctx context.Context, song playlist.Song) error {
	var err error

	switch c.entity.Platform {
	case PlatformMusicAssistant:
		err = c.caller.CallService(ctx, "music_assistant", "play_media", c.entity.ID, map[string]any{
			"media_id": song.URI,
		})

	case PlatformSonos:
		err = c.caller.CallService(ctx, "media_player", "play_media", c.entity.ID, map[string]any{
			"media_content_id":   song.URI,
			"media_content_type": "music",
		})

	case PlatformAlexaMedia:
		provider := c.entity.Provider
		if provider == "" {
			provider = "SPOTIFY"
		}
		err = c.caller.CallService(ctx, "media_player", "play_media", c.entity.ID, map[string]any{
			"media_content_id":   fmt.Sprintf("%s by %s", song.Title, song.Artist),
			"media_content_type": provider,
		})

	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedPlatform, c.entity.Platform)
	}

	if err != nil {
		c.logger.Error().Err(err).Str("uri", song.URI).Msg("play failed")
		return err
	}

	c.logger.Debug().Str("uri", song.URI).Str("platform", c.entity.Platform).Msg("playing")

	return nil
}

// Stop halts playback. Best-effort; failures are logged and returned.
func (c *Controller) Stop(ctx context.Context) error {
	err := c.caller.CallService(ctx, "media_player", "media_stop", c.entity.ID, nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("stop failed")
	}
	return err
}

// SetVolume sets the player volume, clamping level to [0, 1].
func (c *Controller) SetVolume(ctx context.Context, level float64) error {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}

	err := c.caller.CallService(ctx, "media_player", "volume_set", c.entity.ID, map[string]any{
		"volume_level": level,
	})
	if err != nil {
		c.logger.Warn().Err(err).Float64("level", level).Msg("volume change failed")
	}
	return err
}

// Metadata fetches the currently-playing track attributes.
func (c *Controller) Metadata(ctx context.Context) (Metadata, error) {
	_, attrs, err := c.caller.EntityState(ctx, c.entity.ID)
	if err != nil {
		return Metadata{}, fmt.Errorf("fetch metadata: %w", err)
	}

	md := Metadata{}
	if v, ok := attrs["media_artist"].(string); ok {
		md.Artist = v
	}
	if v, ok := attrs["media_title"].(string); ok {
		md.Title = v
	}
	if v, ok := attrs["entity_picture"].(string); ok {
		md.AlbumArt = v
	}

	return md, nil
}

// IsAvailable reports whether the entity exists and is not unavailable.
func (c *Controller) IsAvailable(ctx context.Context) bool {
	state, _, err := c.caller.EntityState(ctx, c.entity.ID)
	if err != nil {
		return false
	}
	return !strings.EqualFold(state, "unavailable")
}

// VerifyResponsive checks that the player answers a state query within
// the timeout, returning a human-readable reason on failure.
func (c *Controller) VerifyResponsive(ctx context.Context, timeout time.Duration) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	state, _, err := c.caller.EntityState(ctx, c.entity.ID)
	switch {
	case err != nil:
		return false, fmt.Sprintf("player %s did not respond: %v", c.entity.ID, err)
	case strings.EqualFold(state, "unavailable"):
		return false, fmt.Sprintf("player %s is unavailable", c.entity.ID)
	default:
		return true, ""
	}
}
