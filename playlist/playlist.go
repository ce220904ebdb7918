/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package playlist loads and validates playlist documents, discovers them
// on disk, and hands out non-repeating random songs during a game.
package playlist

import (
	"fmt"
	"strings"
)

const (
	// YearMin and YearMax bound every song year and every guess.
	YearMin = 1900
	YearMax = 2030
)

// Song is one guessable track. Every song carries a year and at least one
// playable URI; everything else is optional enrichment.
type Song struct {
	Year int    `json:"year"`
	URI  string `json:"uri"`

	URIAppleMusic   string `json:"uri_apple_music,omitempty"`
	URIYoutubeMusic string `json:"uri_youtube_music,omitempty"`

	Title  string `json:"title"`
	Artist string `json:"artist"`

	AlbumArt string `json:"album_art,omitempty"`

	FunFact   string `json:"fun_fact,omitempty"`
	FunFactDe string `json:"fun_fact_de,omitempty"`
	FunFactEs string `json:"fun_fact_es,omitempty"`

	AltArtists   []string `json:"alt_artists,omitempty"`
	Movie        string   `json:"movie,omitempty"`
	MovieChoices []string `json:"movie_choices,omitempty"`

	ChartInfo      string   `json:"chart_info,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Awards         []string `json:"awards,omitempty"`
}

// FunFactFor returns the fun fact for a language, falling back to the
// base field when no localized variant exists.
func (s Song) FunFactFor(lang string) string {
	switch strings.ToLower(lang) {
	case "de":
		if s.FunFactDe != "" {
			return s.FunFactDe
		}
	case "es":
		if s.FunFactEs != "" {
			return s.FunFactEs
		}
	}

	return s.FunFact
}

// Validate collects every problem with a song rather than stopping at the
// first, so the admin listing can show full detail per playlist.
func (s Song) Validate(index int) []string {
	var errs []string

	if s.URI == "" {
		errs = append(errs, fmt.Sprintf("song %d (%s): missing uri", index, s.label()))
	}
	if s.Year == 0 {
		errs = append(errs, fmt.Sprintf("song %d (%s): missing year", index, s.label()))
	} else if s.Year < YearMin || s.Year > YearMax {
		errs = append(errs, fmt.Sprintf("song %d (%s): year %d outside %d-%d", index, s.label(), s.Year, YearMin, YearMax))
	}

	return errs
}

func (s Song) label() string {
	if s.Title == "" && s.Artist == "" {
		return "untitled"
	}
	return strings.TrimSpace(s.Artist + " - " + s.Title)
}

// Playlist is a named, ordered song list as loaded from one document.
type Playlist struct {
	Name  string `json:"name"`
	Songs []Song `json:"songs"`
}

// Validate returns all validation errors for the playlist. An empty
// result means the playlist may be selected for a game.
func (p Playlist) Validate() []string {
	var errs []string

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, "playlist has no name")
	}
	if len(p.Songs) == 0 {
		errs = append(errs, "playlist has no songs")
	}
	for i, s := range p.Songs {
		errs = append(errs, s.Validate(i)...)
	}

	return errs
}

// Merge unions playlists into a single pool, de-duplicating by URI while
// preserving first-occurrence order.
func Merge(playlists ...Playlist) []Song {
	seen := make(map[string]bool)
	var pool []Song

	for _, p := range playlists {
		for _, s := range p.Songs {
			if s.URI == "" || seen[s.URI] {
				continue
			}
			seen[s.URI] = true
			pool = append(pool, s)
		}
	}

	return pool
}
