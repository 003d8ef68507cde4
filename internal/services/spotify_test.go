package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/desertthunder/spotx/internal/shared"
	tu "github.com/desertthunder/spotx/internal/testing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tidwall/gjson"
)

func itemNames(t *testing.T, data []byte) []string {
	t.Helper()
	var names []string
	for _, n := range gjson.GetBytes(data, "tracks.items.#.track.name").Array() {
		names = append(names, n.String())
	}
	return names
}

func TestSpotifyClient(t *testing.T) {
	t.Run("NewSpotifyClient Defaults", func(t *testing.T) {
		c := NewSpotifyClient(SpotifyOptions{})

		if c.Market() != DefaultSearchMarket {
			t.Errorf("expected market %s, got %s", DefaultSearchMarket, c.Market())
		}
		if c.api.baseURL != spotifyBaseURL {
			t.Errorf("expected base URL %s, got %s", spotifyBaseURL, c.api.baseURL)
		}
		if c.tokens.anonymousURL != spotifyAnonymousTokenURL {
			t.Errorf("unexpected anonymous token URL %s", c.tokens.anonymousURL)
		}
		if c.tokens.userAgent != DefaultUserAgent {
			t.Errorf("expected default user agent, got %s", c.tokens.userAgent)
		}
	})

	t.Run("OptionsFromConfig", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		cfg.Spotify.ClientID = "id"
		cfg.Spotify.ClientSecret = "secret"
		cfg.Spotify.SearchMarket = "US"
		cfg.HTTP.TimeoutSeconds = 7

		opts := OptionsFromConfig(cfg)
		if opts.ClientID != "id" || opts.ClientSecret != "secret" || opts.SearchMarket != "US" {
			t.Errorf("unexpected options: %+v", opts)
		}
		if opts.HTTPClient.Timeout.Seconds() != 7 {
			t.Errorf("expected 7s timeout, got %v", opts.HTTPClient.Timeout)
		}
		if NewSpotifyClient(opts).Mode() != AuthModeClientCredentials {
			t.Error("expected client-credentials mode")
		}
	})

	t.Run("GetTrack", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		c := newTestClient(t, fake, "", "")

		data, err := c.GetTrack(context.Background(), tu.FakeTrackID)
		if err != nil {
			t.Fatalf("GetTrack() error = %v", err)
		}
		if string(data) != tu.FakeTrack {
			t.Errorf("expected track body verbatim, got %s", data)
		}
	})

	t.Run("GetAlbum", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		c := newTestClient(t, fake, "", "")

		data, err := c.GetAlbum(context.Background(), tu.FakeAlbumID)
		if err != nil {
			t.Fatalf("GetAlbum() error = %v", err)
		}
		if gjson.GetBytes(data, "name").String() != "Test Album" {
			t.Errorf("unexpected album: %s", data)
		}
	})

	t.Run("Error Shaped Body Is Returned As Data", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		c := newTestClient(t, fake, "", "")

		data, err := c.GetTrack(context.Background(), "missing")
		if err != nil {
			t.Fatalf("expected no error for error-shaped body, got %v", err)
		}
		if gjson.GetBytes(data, "error.status").Int() != 404 {
			t.Errorf("expected 404 error body, got %s", data)
		}
	})

	t.Run("GetArtistTracks", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		c := newTestClient(t, fake, "", "")

		data, err := c.GetArtistTracks(context.Background(), tu.FakeArtistID)
		if err != nil {
			t.Fatalf("GetArtistTracks() error = %v", err)
		}
		if gjson.GetBytes(data, "tracks.#").Int() != 1 {
			t.Errorf("expected top tracks payload, got %s", data)
		}

		reqs := fake.Requests()
		if len(reqs) != 2 {
			t.Fatalf("expected profile and top-tracks requests, got %v", reqs)
		}
		if reqs[0] != "/artists/art123" {
			t.Errorf("expected profile request first, got %s", reqs[0])
		}
		if reqs[1] != "/artists/art123/top-tracks?market=IN" {
			t.Errorf("expected top tracks in market IN, got %s", reqs[1])
		}
	})

	t.Run("GetTrackByWords", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		c := NewSpotifyClient(SpotifyOptions{
			SearchMarket:      "SE",
			HTTPClient:        fake.Server.Client(),
			Logger:            shared.NewLogger(&bytes.Buffer{}),
			BaseURL:           fake.BaseURL(),
			AnonymousTokenURL: fake.AnonymousTokenURL(),
		})

		data, err := c.GetTrackByWords(context.Background(), "some random words")
		if err != nil {
			t.Fatalf("GetTrackByWords() error = %v", err)
		}
		if !gjson.GetBytes(data, "tracks").Exists() || !gjson.GetBytes(data, "artists").Exists() {
			t.Errorf("expected raw search results, got %s", data)
		}

		reqs := fake.Requests()
		u, err := url.Parse(reqs[0])
		if err != nil {
			t.Fatalf("bad request uri %q: %v", reqs[0], err)
		}
		q := u.Query()
		if u.Path != "/search" || q.Get("q") != `"some random words"` || q.Get("type") != "artist,album,track" || q.Get("market") != "SE" {
			t.Errorf("unexpected search request %s", reqs[0])
		}
	})

	t.Run("Free Text Is Sent As A Phrase", func(t *testing.T) {
		tt := []struct{ in, want string }{
			{in: "never gonna", want: `"never gonna"`},
			{in: `"already quoted"`, want: `"already quoted"`},
			{in: `"`, want: `"""`},
		}
		for _, tc := range tt {
			if got := phrase(tc.in); got != tc.want {
				t.Errorf("phrase(%q): expected %s, got %s", tc.in, tc.want, got)
			}
		}
	})

	t.Run("GetPlaylist", func(t *testing.T) {
		t.Run("Follows Every Page In Order", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, "", "")

			agg, err := c.GetPlaylist(context.Background(), tu.FakePlaylistID)
			if err != nil {
				t.Fatalf("GetPlaylist() error = %v", err)
			}
			if agg.Pages != 3 {
				t.Errorf("expected 3 pages, got %d", agg.Pages)
			}
			if agg.Truncated {
				t.Error("expected complete pagination")
			}
			if len(agg.Items) != 5 {
				t.Fatalf("expected 5 items, got %d", len(agg.Items))
			}

			data, err := json.Marshal(agg)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			want := []string{"Song 1", "Song 2", "Song 3", "Song 4", "Song 5"}
			if got := itemNames(t, data); strings.Join(got, ",") != strings.Join(want, ",") {
				t.Errorf("expected items %v, got %v", want, got)
			}
			if next := gjson.GetBytes(data, "tracks.next"); next.Type != gjson.Null {
				t.Errorf("expected tracks.next to be null, got %s", next.Raw)
			}
			if gjson.GetBytes(data, "name").String() != "Test Playlist" || agg.Name() != "Test Playlist" {
				t.Errorf("expected playlist fields preserved, got %s", data)
			}
		})

		t.Run("First Response Is Not Mutated", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, "", "")

			agg, err := c.GetPlaylist(context.Background(), tu.FakePlaylistID)
			if err != nil {
				t.Fatalf("GetPlaylist() error = %v", err)
			}
			before := string(agg.Playlist)
			if _, err := agg.MarshalJSON(); err != nil {
				t.Fatalf("MarshalJSON() error = %v", err)
			}
			if string(agg.Playlist) != before {
				t.Error("MarshalJSON should not modify the stored playlist")
			}
			if gjson.Get(before, "tracks.items.#").Int() != 2 {
				t.Errorf("expected first page to keep its own 2 items")
			}
		})

		t.Run("Every Page Is Authenticated", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, "", "")

			var headers []string
			fake.Handle("/playlists/"+tu.FakePlaylistID+"/tracks", func(w http.ResponseWriter, r *http.Request) {
				headers = append(headers, r.Header.Get("Authorization"))
				w.Write([]byte(`{"items":[],"next":null}`))
			})

			if _, err := c.GetPlaylist(context.Background(), tu.FakePlaylistID); err != nil {
				t.Fatalf("GetPlaylist() error = %v", err)
			}
			if len(headers) != 1 || headers[0] != "Bearer anon-token-1" {
				t.Errorf("expected page request with bearer token, got %v", headers)
			}
		})

		t.Run("Error Page Stops Pagination", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, "", "")

			fake.Handle("/playlists/"+tu.FakePlaylistID+"/tracks", func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Query().Get("offset") {
				case "2":
					w.Write([]byte(`{"items":[{"track":{"name":"Song 3"}}],"next":"` + fake.BaseURL() + `/playlists/xyz789/tracks?offset=3&limit=2"}`))
				default:
					w.WriteHeader(http.StatusTooManyRequests)
					w.Write([]byte(`{"error":{"status":429,"message":"API rate limit exceeded"}}`))
				}
			})

			agg, err := c.GetPlaylist(context.Background(), tu.FakePlaylistID)
			if err != nil {
				t.Fatalf("expected error page to end pagination quietly, got %v", err)
			}
			if !agg.Truncated {
				t.Error("expected aggregate to be marked truncated")
			}
			data, _ := agg.MarshalJSON()
			if got := itemNames(t, data); strings.Join(got, ",") != "Song 1,Song 2,Song 3" {
				t.Errorf("expected accumulated items to be kept, got %v", got)
			}
		})

		t.Run("Single Page Playlist", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, "", "")
			fake.HandleJSON("/playlists/single", http.StatusOK, `{"name":"One","tracks":{"items":[{"track":{"name":"Only"}}],"next":null}}`)

			agg, err := c.GetPlaylist(context.Background(), "single")
			if err != nil {
				t.Fatalf("GetPlaylist() error = %v", err)
			}
			if agg.Pages != 1 || len(agg.Items) != 1 {
				t.Errorf("expected 1 page and 1 item, got %d and %d", agg.Pages, len(agg.Items))
			}
			if len(fake.Requests()) != 1 {
				t.Errorf("expected a single request, got %v", fake.Requests())
			}
		})

		t.Run("Error Shaped Playlist Passes Through", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, "", "")

			agg, err := c.GetPlaylist(context.Background(), "missing")
			if err != nil {
				t.Fatalf("GetPlaylist() error = %v", err)
			}
			data, err := agg.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON() error = %v", err)
			}
			if string(data) != string(agg.Playlist) {
				t.Errorf("expected error body verbatim, got %s", data)
			}
		})

		t.Run("Transport Failure On Page", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, "", "")
			fake.HandleJSON("/playlists/broken", http.StatusOK, `{"tracks":{"items":[],"next":"http://127.0.0.1:1/unreachable"}}`)

			_, err := c.GetPlaylist(context.Background(), "broken")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Records Page Metrics", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			metrics := NewMetrics(prometheus.NewRegistry())
			c := NewSpotifyClient(SpotifyOptions{
				HTTPClient:        fake.Server.Client(),
				Logger:            shared.NewLogger(&bytes.Buffer{}),
				Metrics:           metrics,
				BaseURL:           fake.BaseURL(),
				AnonymousTokenURL: fake.AnonymousTokenURL(),
			})

			if _, err := c.GetPlaylist(context.Background(), tu.FakePlaylistID); err != nil {
				t.Fatalf("GetPlaylist() error = %v", err)
			}
			if n := testutil.CollectAndCount(metrics.PlaylistPages); n != 1 {
				t.Errorf("expected playlist histogram to be collected, got %d", n)
			}
		})
	})

	t.Run("Search", func(t *testing.T) {
		t.Run("Track URI", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, "", "")

			result, err := c.Search(context.Background(), "spotify:track:abc123")
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if result.Ref.Kind != KindTrack || result.Ref.ID != "abc123" {
				t.Errorf("unexpected ref %+v", result.Ref)
			}
			if reqs := fake.Requests(); len(reqs) != 1 || reqs[0] != "/tracks/abc123" {
				t.Errorf("expected single track request, got %v", reqs)
			}
			if result.Name() != "Test Track" {
				t.Errorf("expected name Test Track, got %q", result.Name())
			}
		})

		t.Run("Playlist URL With Query String", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, "", "")

			result, err := c.Search(context.Background(), "https://open.spotify.com/playlist/xyz789?si=foo")
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if result.Ref.Kind != KindPlaylist || result.Ref.ID != "xyz789" {
				t.Errorf("unexpected ref %+v", result.Ref)
			}
			if result.Playlist == nil || result.Playlist.Pages != 3 {
				t.Fatalf("expected paginated playlist, got %+v", result.Playlist)
			}
			if got := itemNames(t, result.Data); len(got) != 5 {
				t.Errorf("expected all 5 items in result data, got %v", got)
			}

			want := []string{
				"/playlists/xyz789",
				"/playlists/xyz789/tracks?offset=2&limit=2",
				"/playlists/xyz789/tracks?offset=4&limit=2",
			}
			if got := fake.Requests(); strings.Join(got, " ") != strings.Join(want, " ") {
				t.Errorf("expected requests %v, got %v", want, got)
			}
		})

		t.Run("Album And Artist", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, "", "")

			album, err := c.Search(context.Background(), "https://open.spotify.com/album/alb123")
			if err != nil {
				t.Fatalf("Search(album) error = %v", err)
			}
			if album.Name() != "Test Album" {
				t.Errorf("expected Test Album, got %q", album.Name())
			}

			artist, err := c.Search(context.Background(), "spotify:artist:art123")
			if err != nil {
				t.Fatalf("Search(artist) error = %v", err)
			}
			if !gjson.GetBytes(artist.Data, "tracks").IsArray() {
				t.Errorf("expected top tracks for artist, got %s", artist.Data)
			}
		})

		t.Run("Free Text", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, "", "")

			result, err := c.Search(context.Background(), "some random words")
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if !result.Ref.IsQuery() || result.Ref.Query != "some random words" {
				t.Errorf("unexpected ref %+v", result.Ref)
			}

			u, _ := url.Parse(fake.Requests()[0])
			if u.Path != "/search" || u.Query().Get("q") != `"some random words"` {
				t.Errorf("expected free-text search, got %s", fake.Requests()[0])
			}
		})

		t.Run("Bootstraps Token Once", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, tu.FakeClientID, tu.FakeClientSecret)

			for _, input := range []string{"spotify:track:abc123", "spotify:album:alb123", "daft punk"} {
				if _, err := c.Search(context.Background(), input); err != nil {
					t.Fatalf("Search(%q) error = %v", input, err)
				}
			}
			if fake.CredentialsCalls() != 1 {
				t.Errorf("expected 1 token acquisition, got %d", fake.CredentialsCalls())
			}
		})

		t.Run("Token Failure Is Returned", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, tu.FakeClientID, "wrong")

			_, err := c.Search(context.Background(), "spotify:track:abc123")
			if !errors.Is(err, shared.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
			if len(fake.Requests()) != 0 {
				t.Errorf("expected no catalog requests, got %v", fake.Requests())
			}
		})

		t.Run("APIError", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			c := newTestClient(t, fake, "", "")

			result, err := c.Search(context.Background(), "spotify:track:missing")
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if result.APIError() != "Non existing id" {
				t.Errorf("expected API error message, got %q", result.APIError())
			}

			ok, _ := c.Search(context.Background(), "spotify:track:abc123")
			if ok.APIError() != "" {
				t.Errorf("expected no API error, got %q", ok.APIError())
			}
		})

		t.Run("Counts Lookups By Kind", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			metrics := NewMetrics(prometheus.NewRegistry())
			c := NewSpotifyClient(SpotifyOptions{
				HTTPClient:        fake.Server.Client(),
				Logger:            shared.NewLogger(&bytes.Buffer{}),
				Metrics:           metrics,
				BaseURL:           fake.BaseURL(),
				AnonymousTokenURL: fake.AnonymousTokenURL(),
			})

			c.Search(context.Background(), "spotify:track:abc123")
			c.Search(context.Background(), "hello")
			c.Search(context.Background(), "world")

			if got := testutil.ToFloat64(metrics.Lookups.WithLabelValues("query")); got != 2 {
				t.Errorf("expected 2 query lookups, got %v", got)
			}
			if got := testutil.ToFloat64(metrics.Lookups.WithLabelValues("track")); got != 1 {
				t.Errorf("expected 1 track lookup, got %v", got)
			}
		})
	})
}
