// package services defines the Spotify lookup client and the [Lookuper] interface its consumers depend on
package services

import (
	"context"
	"encoding/json"
	"time"
)

// Lookuper resolves free-form input into Spotify catalog JSON.
//
// [SpotifyClient] implements it; the batch task, HTTP server and TUI accept it so
// tests can substitute a double.
type Lookuper interface {
	// Resolve reports whether input is a recognized Spotify link or URI.
	Resolve(input string) bool

	// Classify extracts the resource reference from input without network I/O.
	Classify(input string) ResourceRef

	// Search fetches whatever input refers to, falling back to free-text search.
	Search(ctx context.Context, input string) (*Result, error)
}

// Fetcher is implemented by clients that read catalog resources by known id.
type Fetcher interface {
	Lookuper

	GetTrack(ctx context.Context, id string) (json.RawMessage, error)
	GetAlbum(ctx context.Context, id string) (json.RawMessage, error)
	GetPlaylist(ctx context.Context, id string) (*PlaylistAggregate, error)
	GetArtistTracks(ctx context.Context, id string) (json.RawMessage, error)
	GetTrackByWords(ctx context.Context, query string) (json.RawMessage, error)
}

// TokenReporter exposes the token expiry for health reporting.
type TokenReporter interface {
	Mode() AuthMode
	TokenExpiry() (time.Time, bool)
}

var (
	_ Fetcher       = (*SpotifyClient)(nil)
	_ TokenReporter = (*SpotifyClient)(nil)
)
