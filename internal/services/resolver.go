package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/spotx/internal/shared"
)

// ResourceKind is the category of a Spotify catalog entity, or [KindQuery] for free text.
type ResourceKind int

const (
	KindQuery ResourceKind = iota
	KindTrack
	KindAlbum
	KindPlaylist
	KindArtist
)

var kindNames = map[ResourceKind]string{
	KindQuery:    "query",
	KindTrack:    "track",
	KindAlbum:    "album",
	KindPlaylist: "playlist",
	KindArtist:   "artist",
}

func (k ResourceKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ResourceKind(%d)", int(k))
}

// ParseKind parses a kind name such as "track" or "playlist".
func ParseKind(s string) (ResourceKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindQuery, fmt.Errorf("%w: unknown resource kind %q", shared.ErrInvalidArgument, s)
}

// linkPattern matches open.spotify.com links (with an optional user/<id>/ prefix)
// and spotify: URIs. Group 1 is the kind, group 2 the id.
var linkPattern = regexp.MustCompile(
	`^(?:https://open\.spotify\.com/(?:user/[A-Za-z0-9]+/)?|spotify:)(album|playlist|track|artist)(?:[/:])([A-Za-z0-9]+).*$`,
)

// ResourceRef is a classified input: a catalog kind and id, or a free-text query.
type ResourceRef struct {
	Kind  ResourceKind
	ID    string
	Query string
}

// IsQuery reports whether the reference fell back to free-text search.
func (r ResourceRef) IsQuery() bool {
	return r.Kind == KindQuery
}

// URL returns the open.spotify.com link for the resource, or a search link for queries.
func (r ResourceRef) URL() string {
	if r.IsQuery() {
		return "https://open.spotify.com/search/" + url.PathEscape(r.Query)
	}
	return fmt.Sprintf("https://open.spotify.com/%s/%s", r.Kind, r.ID)
}

// URI returns the spotify: URI for the resource. Queries have no URI.
func (r ResourceRef) URI() string {
	if r.IsQuery() {
		return ""
	}
	return fmt.Sprintf("spotify:%s:%s", r.Kind, r.ID)
}

func (r ResourceRef) String() string {
	if r.IsQuery() {
		return fmt.Sprintf("query %q", r.Query)
	}
	return r.URI()
}

// Resolve reports whether input is a recognized Spotify link or URI.
func Resolve(input string) bool {
	return linkPattern.MatchString(input)
}

// Classify extracts the kind and id from input, or returns a [KindQuery] reference
// carrying input unchanged. Ids are passed through verbatim.
func Classify(input string) ResourceRef {
	m := linkPattern.FindStringSubmatch(input)
	if m == nil {
		return ResourceRef{Kind: KindQuery, Query: input}
	}

	var kind ResourceKind
	switch m[1] {
	case "track":
		kind = KindTrack
	case "album":
		kind = KindAlbum
	case "playlist":
		kind = KindPlaylist
	case "artist":
		kind = KindArtist
	}
	return ResourceRef{Kind: kind, ID: m[2]}
}
