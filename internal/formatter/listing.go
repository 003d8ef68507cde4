package formatter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/spotx/internal/services"
	"github.com/tidwall/gjson"
	"github.com/zmb3/spotify/v2"
)

// Listing is a display-oriented view of a lookup result.
type Listing struct {
	Kind     string
	Title    string
	Subtitle string
	URL      string
	ImageURL string
	Sections []Section
}

// Section groups rows under a heading, e.g. "Tracks" or "Albums".
type Section struct {
	Heading string
	Rows    []Row
}

// Row is one track, album or artist line.
type Row struct {
	Name     string
	Artists  string
	Album    string
	Duration time.Duration
	URL      string
}

// Count returns the number of rows across all sections.
func (l *Listing) Count() int {
	n := 0
	for _, s := range l.Sections {
		n += len(s.Rows)
	}
	return n
}

// FromResult decodes a lookup result into a [Listing].
//
// Error-shaped responses become a listing of kind "error" whose subtitle is the API message.
func FromResult(r *services.Result) (*Listing, error) {
	if msg := r.APIError(); msg != "" {
		return &Listing{Kind: "error", Title: "Spotify API error", Subtitle: msg, URL: r.Ref.URL()}, nil
	}

	var (
		l   *Listing
		err error
	)

	switch r.Ref.Kind {
	case services.KindTrack:
		l, err = trackListing(r.Data)
	case services.KindAlbum:
		l, err = albumListing(r.Data)
	case services.KindPlaylist:
		l, err = playlistListing(r.Data)
	case services.KindArtist:
		l, err = artistListing(r.Data)
	case services.KindQuery:
		l, err = searchListing(r.Data, r.Ref.Query)
	default:
		return nil, fmt.Errorf("unsupported resource kind %v", r.Ref.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", r.Ref.Kind, err)
	}

	l.Kind = r.Ref.Kind.String()
	if l.URL == "" {
		l.URL = r.Ref.URL()
	}
	return l, nil
}

func artistNames(artists []spotify.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func fullTrackRow(t spotify.FullTrack) Row {
	return Row{
		Name:     t.Name,
		Artists:  artistNames(t.Artists),
		Album:    t.Album.Name,
		Duration: time.Duration(t.Duration) * time.Millisecond,
		URL:      t.ExternalURLs["spotify"],
	}
}

func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func trackListing(data []byte) (*Listing, error) {
	var track spotify.FullTrack
	if err := json.Unmarshal(data, &track); err != nil {
		return nil, err
	}

	return &Listing{
		Title:    track.Name,
		Subtitle: artistNames(track.Artists),
		URL:      track.ExternalURLs["spotify"],
		Sections: []Section{{Heading: "Track", Rows: []Row{fullTrackRow(track)}}},
	}, nil
}

func albumListing(data []byte) (*Listing, error) {
	var album spotify.SimpleAlbum
	if err := json.Unmarshal(data, &album); err != nil {
		return nil, err
	}

	var page struct {
		Items []spotify.SimpleTrack `json:"items"`
	}
	if tracks := gjson.GetBytes(data, "tracks"); tracks.IsObject() {
		if err := json.Unmarshal([]byte(tracks.Raw), &page); err != nil {
			return nil, err
		}
	}

	rows := make([]Row, 0, len(page.Items))
	for _, t := range page.Items {
		rows = append(rows, Row{
			Name:     t.Name,
			Artists:  artistNames(t.Artists),
			Album:    album.Name,
			Duration: time.Duration(t.Duration) * time.Millisecond,
			URL:      t.ExternalURLs["spotify"],
		})
	}

	subtitle := artistNames(album.Artists)
	if album.ReleaseDate != "" {
		subtitle = fmt.Sprintf("%s (%s)", subtitle, album.ReleaseDate)
	}

	return &Listing{
		Title:    album.Name,
		Subtitle: subtitle,
		URL:      album.ExternalURLs["spotify"],
		ImageURL: firstImage(album.Images),
		Sections: []Section{{Heading: "Tracks", Rows: rows}},
	}, nil
}

func playlistListing(data []byte) (*Listing, error) {
	var playlist spotify.SimplePlaylist
	if err := json.Unmarshal(data, &playlist); err != nil {
		return nil, err
	}

	// Items are decoded loosely: removed tracks arrive as null and episodes lack track fields.
	var page struct {
		Items []struct {
			Track *spotify.FullTrack `json:"track"`
		} `json:"items"`
	}
	if tracks := gjson.GetBytes(data, "tracks"); tracks.IsObject() {
		if err := json.Unmarshal([]byte(tracks.Raw), &page); err != nil {
			return nil, err
		}
	}

	rows := make([]Row, 0, len(page.Items))
	for _, item := range page.Items {
		if item.Track == nil || item.Track.Name == "" {
			continue
		}
		rows = append(rows, fullTrackRow(*item.Track))
	}

	subtitle := playlist.Owner.DisplayName
	if desc := gjson.GetBytes(data, "description").String(); desc != "" {
		if subtitle != "" {
			subtitle += " · "
		}
		subtitle += desc
	}

	return &Listing{
		Title:    playlist.Name,
		Subtitle: subtitle,
		URL:      playlist.ExternalURLs["spotify"],
		ImageURL: firstImage(playlist.Images),
		Sections: []Section{{Heading: "Tracks", Rows: rows}},
	}, nil
}

func artistListing(data []byte) (*Listing, error) {
	var top struct {
		Tracks []spotify.FullTrack `json:"tracks"`
	}
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(top.Tracks))
	title := ""
	for _, t := range top.Tracks {
		rows = append(rows, fullTrackRow(t))
		if title == "" && len(t.Artists) > 0 {
			title = t.Artists[0].Name
		}
	}

	return &Listing{
		Title:    title,
		Subtitle: "Top tracks",
		Sections: []Section{{Heading: "Top Tracks", Rows: rows}},
	}, nil
}

func searchListing(data []byte, query string) (*Listing, error) {
	var results spotify.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, err
	}

	l := &Listing{Title: query, Subtitle: "Search results"}

	if results.Tracks != nil {
		rows := make([]Row, 0, len(results.Tracks.Tracks))
		for _, t := range results.Tracks.Tracks {
			rows = append(rows, fullTrackRow(t))
		}
		l.Sections = append(l.Sections, Section{Heading: "Tracks", Rows: rows})
	}

	if results.Albums != nil {
		rows := make([]Row, 0, len(results.Albums.Albums))
		for _, a := range results.Albums.Albums {
			rows = append(rows, Row{Name: a.Name, Artists: artistNames(a.Artists), URL: a.ExternalURLs["spotify"]})
		}
		l.Sections = append(l.Sections, Section{Heading: "Albums", Rows: rows})
	}

	if results.Artists != nil {
		rows := make([]Row, 0, len(results.Artists.Artists))
		for _, a := range results.Artists.Artists {
			rows = append(rows, Row{Name: a.Name, URL: a.ExternalURLs["spotify"]})
		}
		l.Sections = append(l.Sections, Section{Heading: "Artists", Rows: rows})
	}

	return l, nil
}
