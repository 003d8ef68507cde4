package services

import (
	"errors"
	"testing"

	"github.com/desertthunder/spotx/internal/shared"
)

func TestResolver(t *testing.T) {
	t.Run("Recognized Links", func(t *testing.T) {
		tt := []struct {
			input string
			kind  ResourceKind
			id    string
		}{
			{input: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", kind: KindTrack, id: "4uLU6hMCjMI75M1A2tKUQC"},
			{input: "https://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3", kind: KindAlbum, id: "1DFixLWuPkv3KT3TnV35m3"},
			{input: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", kind: KindPlaylist, id: "37i9dQZF1DXcBWIGoYBM5M"},
			{input: "https://open.spotify.com/artist/0OdUWJ0sBjDrqHygGUXeCF", kind: KindArtist, id: "0OdUWJ0sBjDrqHygGUXeCF"},
			{input: "spotify:track:abc123", kind: KindTrack, id: "abc123"},
			{input: "spotify:album:abc123", kind: KindAlbum, id: "abc123"},
			{input: "spotify:playlist:abc123", kind: KindPlaylist, id: "abc123"},
			{input: "spotify:artist:abc123", kind: KindArtist, id: "abc123"},
			{input: "spotify:track/abc123", kind: KindTrack, id: "abc123"},
			{input: "https://open.spotify.com/track:abc123", kind: KindTrack, id: "abc123"},
			{input: "https://open.spotify.com/user/spotify/playlist/37i9dQZF1DX0XUsuxWHRQd", kind: KindPlaylist, id: "37i9dQZF1DX0XUsuxWHRQd"},
			{input: "https://open.spotify.com/playlist/xyz789?si=foo", kind: KindPlaylist, id: "xyz789"},
			{input: "https://open.spotify.com/album/abc123/extra/segments", kind: KindAlbum, id: "abc123"},
			{input: "https://open.spotify.com/track/abc123#fragment", kind: KindTrack, id: "abc123"},
			{input: "spotify:track:AbC123", kind: KindTrack, id: "AbC123"},
		}

		for _, tc := range tt {
			t.Run(tc.input, func(t *testing.T) {
				if !Resolve(tc.input) {
					t.Fatalf("expected %q to resolve", tc.input)
				}

				ref := Classify(tc.input)
				if ref.Kind != tc.kind {
					t.Errorf("expected kind %v, got %v", tc.kind, ref.Kind)
				}
				if ref.ID != tc.id {
					t.Errorf("expected id %q, got %q", tc.id, ref.ID)
				}
				if ref.IsQuery() {
					t.Error("recognized link should not be a query")
				}
			})
		}
	})

	t.Run("Unrecognized Input Falls Back To Query", func(t *testing.T) {
		inputs := []string{
			"some random words",
			"",
			"http://open.spotify.com/track/abc123",
			"https://open.spotify.com/show/abc123",
			"https://open.spotify.com/episode/abc123",
			"spotify:user:someone",
			"https://example.com/track/abc123",
			" spotify:track:abc123",
			"spotify:track:",
			"https://open.spotify.com/user/some.one/playlist/abc123",
		}

		for _, input := range inputs {
			t.Run(input, func(t *testing.T) {
				if Resolve(input) {
					t.Errorf("expected %q not to resolve", input)
				}

				ref := Classify(input)
				if ref.Kind != KindQuery {
					t.Errorf("expected KindQuery, got %v", ref.Kind)
				}
				if ref.Query != input {
					t.Errorf("expected query %q to pass through, got %q", input, ref.Query)
				}
				if ref.ID != "" {
					t.Errorf("expected empty id, got %q", ref.ID)
				}
			})
		}
	})

	t.Run("URL And URI", func(t *testing.T) {
		ref := ResourceRef{Kind: KindPlaylist, ID: "xyz789"}

		if got := ref.URL(); got != "https://open.spotify.com/playlist/xyz789" {
			t.Errorf("URL() = %q", got)
		}
		if got := ref.URI(); got != "spotify:playlist:xyz789" {
			t.Errorf("URI() = %q", got)
		}
		if !Resolve(ref.URL()) || !Resolve(ref.URI()) {
			t.Error("built URL and URI should resolve")
		}

		query := ResourceRef{Kind: KindQuery, Query: "daft punk"}
		if got := query.URL(); got != "https://open.spotify.com/search/daft%20punk" {
			t.Errorf("query URL() = %q", got)
		}
		if query.URI() != "" {
			t.Errorf("query should have no URI, got %q", query.URI())
		}
	})

	t.Run("ParseKind", func(t *testing.T) {
		for _, k := range []ResourceKind{KindQuery, KindTrack, KindAlbum, KindPlaylist, KindArtist} {
			got, err := ParseKind(k.String())
			if err != nil {
				t.Fatalf("ParseKind(%q) error = %v", k, err)
			}
			if got != k {
				t.Errorf("ParseKind(%q) = %v", k, got)
			}
		}

		if got, err := ParseKind(" Track "); err != nil || got != KindTrack {
			t.Errorf("expected case and space to be ignored, got %v, %v", got, err)
		}

		if _, err := ParseKind("podcast"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Kind String", func(t *testing.T) {
		if KindArtist.String() != "artist" {
			t.Errorf("expected artist, got %s", KindArtist)
		}
		if ResourceKind(42).String() != "ResourceKind(42)" {
			t.Errorf("unexpected name for unknown kind: %s", ResourceKind(42))
		}
	})
}
