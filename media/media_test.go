/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/beatify/playlist"
)

type serviceCall struct {
	domain  string
	service string
	entity  string
	data    map[string]any
}

type fakeCaller struct {
	calls []serviceCall

	callErr  error
	state    string
	attrs    map[string]any
	stateErr error
}

func (f *fakeCaller) CallService(_ context.Context, domain, service, entity string, data map[string]any) error {
	f.calls = append(f.calls, serviceCall{domain: domain, service: service, entity: entity, data: data})
	return f.callErr
}

func (f *fakeCaller) EntityState(_ context.Context, _ string) (string, map[string]any, error) {
	return f.state, f.attrs, f.stateErr
}

var testSong = playlist.Song{
	Year:   1985,
	URI:    "spotify:track:abc",
	Title:  "Take On Me",
	Artist: "a-ha",
}

func controllerFor(platform, provider string, caller *fakeCaller) *Controller {
	return NewController(caller, Entity{
		ID:       "media_player.test",
		Platform: platform,
		Provider: provider,
	}, zerolog.Nop())
}

func TestPlaySongMusicAssistant(t *testing.T) {
	caller := &fakeCaller{}
	c := controllerFor(PlatformMusicAssistant, "", caller)

	require.NoError(t, c.PlaySong(context.Background(), testSong))
	require.Len(t, caller.calls, 1)

	call := caller.calls[0]
	assert.Equal(t, "music_assistant", call.domain)
	assert.Equal(t, "play_media", call.service)
	assert.Equal(t, "media_player.test", call.entity)
	assert.Equal(t, testSong.URI, call.data["media_id"])
}

func TestPlaySongSonos(t *testing.T) {
	caller := &fakeCaller{}
	c := controllerFor(PlatformSonos, "", caller)

	require.NoError(t, c.PlaySong(context.Background(), testSong))
	call := caller.calls[0]
	assert.Equal(t, "media_player", call.domain)
	assert.Equal(t, testSong.URI, call.data["media_content_id"])
	assert.Equal(t, "music", call.data["media_content_type"])
}

func TestPlaySongAlexaTextSearch(t *testing.T) {
	caller := &fakeCaller{}
	c := controllerFor(PlatformAlexaMedia, "APPLE_MUSIC", caller)

	require.NoError(t, c.PlaySong(context.Background(), testSong))
	call := caller.calls[0]
	assert.Equal(t, "Take On Me by a-ha", call.data["media_content_id"])
	assert.Equal(t, "APPLE_MUSIC", call.data["media_content_type"])
}

func TestPlaySongAlexaDefaultsToSpotify(t *testing.T) {
	caller := &fakeCaller{}
	c := controllerFor(PlatformAlexaMedia, "", caller)

	require.NoError(t, c.PlaySong(context.Background(), testSong))
	assert.Equal(t, "SPOTIFY", caller.calls[0].data["media_content_type"])
}

func TestPlaySongUnsupportedPlatform(t *testing.T) {
	caller := &fakeCaller{}
	c := controllerFor("chromecast", "", caller)

	err := c.PlaySong(context.Background(), testSong)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	assert.Empty(t, caller.calls)
}

func TestSetVolumeClamps(t *testing.T) {
	caller := &fakeCaller{}
	c := controllerFor(PlatformSonos, "", caller)

	require.NoError(t, c.SetVolume(context.Background(), 1.7))
	require.NoError(t, c.SetVolume(context.Background(), -0.3))
	require.NoError(t, c.SetVolume(context.Background(), 0.5))

	assert.Equal(t, 1.0, caller.calls[0].data["volume_level"])
	assert.Equal(t, 0.0, caller.calls[1].data["volume_level"])
	assert.Equal(t, 0.5, caller.calls[2].data["volume_level"])
}

func TestMetadata(t *testing.T) {
	caller := &fakeCaller{
		state: "playing",
		attrs: map[string]any{
			"media_artist":   "a-ha",
			"media_title":    "Take On Me",
			"entity_picture": "/art.jpg",
		},
	}
	c := controllerFor(PlatformSonos, "", caller)

	md, err := c.Metadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Metadata{Artist: "a-ha", Title: "Take On Me", AlbumArt: "/art.jpg"}, md)
}

func TestAvailability(t *testing.T) {
	caller := &fakeCaller{state: "idle"}
	c := controllerFor(PlatformSonos, "", caller)
	assert.True(t, c.IsAvailable(context.Background()))

	caller.state = "unavailable"
	assert.False(t, c.IsAvailable(context.Background()))

	caller.stateErr = errors.New("gone")
	assert.False(t, c.IsAvailable(context.Background()))
}

func TestVerifyResponsive(t *testing.T) {
	caller := &fakeCaller{state: "idle"}
	c := controllerFor(PlatformSonos, "", caller)

	ok, reason := c.VerifyResponsive(context.Background(), time.Second)
	assert.True(t, ok)
	assert.Empty(t, reason)

	caller.state = "unavailable"
	ok, reason = c.VerifyResponsive(context.Background(), time.Second)
	assert.False(t, ok)
	assert.Contains(t, reason, "unavailable")

	caller.stateErr = errors.New("timeout")
	ok, reason = c.VerifyResponsive(context.Background(), time.Second)
	assert.False(t, ok)
	assert.Contains(t, reason, "did not respond")
}
