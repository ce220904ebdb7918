/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestCallerCallService(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody map[string]any
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rc := NewRestCaller(srv.URL+"/", "secret", zerolog.Nop())

	err := rc.CallService(context.Background(), "media_player", "play_media", "media_player.living_room", map[string]any{
		"media_content_id": "spotify:track:abc",
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/services/media_player/play_media", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "media_player.living_room", gotBody["entity_id"])
	assert.Equal(t, "spotify:track:abc", gotBody["media_content_id"])
}

func TestRestCallerCallServiceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "entity not found", http.StatusNotFound)
	}))
	defer srv.Close()

	rc := NewRestCaller(srv.URL, "secret", zerolog.Nop())

	err := rc.CallService(context.Background(), "media_player", "media_stop", "media_player.missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "entity not found")
}

func TestRestCallerEntityState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/states/media_player.living_room", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"state":"playing","attributes":{"volume_level":0.4}}`))
	}))
	defer srv.Close()

	rc := NewRestCaller(srv.URL, "secret", zerolog.Nop())

	state, attrs, err := rc.EntityState(context.Background(), "media_player.living_room")
	require.NoError(t, err)
	assert.Equal(t, "playing", state)
	assert.Equal(t, 0.4, attrs["volume_level"])
}

func TestRestCallerEntityStateBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	rc := NewRestCaller(srv.URL, "secret", zerolog.Nop())

	_, _, err := rc.EntityState(context.Background(), "media_player.living_room")
	assert.Error(t, err)
}
