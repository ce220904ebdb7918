/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		port:          8080,
		playlistDir:   "/var/lib/beatify/playlists",
		roundDuration: 30 * time.Second,
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, validConfig().validate())

	cfg := validConfig()
	cfg.port = 0
	assert.Error(t, cfg.validate())

	cfg = validConfig()
	cfg.tlsCert = "/etc/ssl/cert.pem"
	assert.Error(t, cfg.validate(), "cert without key")

	cfg.tlsKey = "/etc/ssl/key.pem"
	assert.NoError(t, cfg.validate())

	cfg = validConfig()
	cfg.playlistDir = ""
	assert.Error(t, cfg.validate())

	cfg = validConfig()
	cfg.roundDuration = time.Second
	assert.Error(t, cfg.validate(), "rounds under five seconds are unplayable")
}

func TestConfigScheme(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "http", cfg.scheme())

	cfg.tlsCert = "/etc/ssl/cert.pem"
	cfg.tlsKey = "/etc/ssl/key.pem"
	assert.Equal(t, "https", cfg.scheme())
}

func TestConfigEntities(t *testing.T) {
	cfg := validConfig()
	cfg.mediaPlayers = []string{
		"music_assistant:media_player.living_room",
		"sonos:media_player.kitchen:Kitchen Sonos",
	}

	entities, err := cfg.entities()
	require.NoError(t, err)
	require.Len(t, entities, 2)

	assert.Equal(t, "music_assistant", entities[0].Platform)
	assert.Equal(t, "media_player.living_room", entities[0].ID)
	assert.Equal(t, "media_player.living_room", entities[0].Name, "name defaults to the entity id")

	assert.Equal(t, "Kitchen Sonos", entities[1].Name)

	cfg.mediaPlayers = []string{"missing-separator"}
	_, err = cfg.entities()
	assert.Error(t, err)

	cfg.mediaPlayers = []string{":media_player.x"}
	_, err = cfg.entities()
	assert.Error(t, err)
}

func TestNewCmdFlagDefaults(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.ParseFlags(nil))

	assert.Equal(t, "0.0.0.0", cfg.bind)
	assert.Equal(t, 8080, cfg.port)
	assert.Equal(t, "/beatify", cfg.prefix)
	assert.Equal(t, 30*time.Second, cfg.roundDuration)
	assert.Equal(t, 30*time.Second, cfg.gracePeriod)
	assert.Equal(t, 16, cfg.maxPlayers)
	assert.Equal(t, "en", cfg.language)
}

func TestHumanReadableSize(t *testing.T) {
	assert.Equal(t, "100 B", humanReadableSize(100))
	assert.Equal(t, "1.0 kB", humanReadableSize(1000))
	assert.Equal(t, "1.5 MB", humanReadableSize(1500000))
}
