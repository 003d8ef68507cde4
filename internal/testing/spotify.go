package testing

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Fixture ids served by [FakeSpotify].
const (
	FakeTrackID    = "abc123"
	FakeAlbumID    = "alb123"
	FakeArtistID   = "art123"
	FakePlaylistID = "xyz789"

	FakeClientID     = "fake_client_id"
	FakeClientSecret = "fake_client_secret"
)

// FakeTrack is the body served for /tracks/abc123.
const FakeTrack = `{"id":"abc123","name":"Test Track","uri":"spotify:track:abc123","duration_ms":215000,` +
	`"external_urls":{"spotify":"https://open.spotify.com/track/abc123"},` +
	`"artists":[{"id":"art123","name":"Test Artist"}],"album":{"id":"alb123","name":"Test Album"}}`

// FakeSpotify is an httptest server that stands in for the embed token endpoint,
// the accounts token endpoint and the /v1 catalog API.
//
// Catalog bodies may contain "{{base}}", which is replaced with the /v1 base URL so
// pagination cursors point back at the fake.
type FakeSpotify struct {
	Server *httptest.Server

	// TokenTTL controls the expiry of issued tokens.
	TokenTTL time.Duration

	anonymousCalls   atomic.Int32
	credentialsCalls atomic.Int32

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []string
}

// NewFakeSpotify starts a fake seeded with a track, album, artist, three-page playlist
// and search results. The server is closed when the test ends.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{TokenTTL: time.Hour, routes: make(map[string]http.HandlerFunc)}

	mux := http.NewServeMux()
	mux.HandleFunc("/get_access_token", f.anonymousToken)
	mux.HandleFunc("/api/token", f.credentialsToken)
	mux.HandleFunc("/v1/", f.catalog)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)

	f.seed()
	return f
}

// BaseURL is the catalog API base, ending in /v1.
func (f *FakeSpotify) BaseURL() string { return f.Server.URL + "/v1" }

// AnonymousTokenURL is the embed-player token endpoint.
func (f *FakeSpotify) AnonymousTokenURL() string {
	return f.Server.URL + "/get_access_token?reason=transport&productType=embed"
}

// TokenURL is the client-credentials token endpoint.
func (f *FakeSpotify) TokenURL() string { return f.Server.URL + "/api/token" }

// AnonymousCalls counts requests to the embed token endpoint.
func (f *FakeSpotify) AnonymousCalls() int { return int(f.anonymousCalls.Load()) }

// CredentialsCalls counts requests to the client-credentials endpoint.
func (f *FakeSpotify) CredentialsCalls() int { return int(f.credentialsCalls.Load()) }

// Requests returns the catalog request URIs received so far, in order, without the /v1 prefix.
func (f *FakeSpotify) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// Handle registers handler for a catalog path such as "/tracks/abc123".
func (f *FakeSpotify) Handle(path string, handler http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = handler
}

// HandleJSON serves body with status for a catalog path.
func (f *FakeSpotify) HandleJSON(path string, status int, body string) {
	f.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		f.writeJSON(w, status, body)
	})
}

func (f *FakeSpotify) writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(strings.ReplaceAll(body, "{{base}}", f.BaseURL())))
}

func (f *FakeSpotify) anonymousToken(w http.ResponseWriter, r *http.Request) {
	n := f.anonymousCalls.Add(1)

	if !strings.HasPrefix(r.UserAgent(), "Mozilla/") {
		f.writeJSON(w, http.StatusForbidden, `{"error":{"code":403,"message":"forbidden"}}`)
		return
	}

	expires := time.Now().Add(f.TokenTTL).UnixMilli()
	f.writeJSON(w, http.StatusOK, fmt.Sprintf(
		`{"clientId":"embed","accessToken":"anon-token-%d","accessTokenExpirationTimestampMs":%d,"isAnonymous":true}`,
		n, expires,
	))
}

func (f *FakeSpotify) credentialsToken(w http.ResponseWriter, r *http.Request) {
	n := f.credentialsCalls.Add(1)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(FakeClientID+":"+FakeClientSecret))
	if r.Method != http.MethodPost || r.Header.Get("Authorization") != want {
		f.writeJSON(w, http.StatusBadRequest, `{"error":"invalid_client","error_description":"Invalid client"}`)
		return
	}

	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		f.writeJSON(w, http.StatusBadRequest, `{"error":"unsupported_grant_type"}`)
		return
	}

	f.writeJSON(w, http.StatusOK, fmt.Sprintf(
		`{"access_token":"cc-token-%d","token_type":"Bearer","expires_in":%d}`,
		n, int(f.TokenTTL.Seconds()),
	))
}

func (f *FakeSpotify) catalog(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1")

	f.mu.Lock()
	f.requests = append(f.requests, strings.TrimPrefix(r.URL.RequestURI(), "/v1"))
	handler, ok := f.routes[path]
	f.mu.Unlock()

	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		f.writeJSON(w, http.StatusUnauthorized, `{"error":{"status":401,"message":"No token provided"}}`)
		return
	}

	if !ok {
		f.writeJSON(w, http.StatusNotFound, `{"error":{"status":404,"message":"Non existing id"}}`)
		return
	}

	handler(w, r)
}

func playlistItem(n int) string {
	return fmt.Sprintf(
		`{"added_at":"2024-01-0%dT00:00:00Z","track":{"id":"t%d","name":"Song %d","duration_ms":180000,`+
			`"artists":[{"name":"Artist %d"}],"album":{"name":"Album %d"}}}`,
		n, n, n, n, n,
	)
}

func (f *FakeSpotify) seed() {
	f.HandleJSON("/tracks/"+FakeTrackID, http.StatusOK, FakeTrack)

	f.HandleJSON("/albums/"+FakeAlbumID, http.StatusOK,
		`{"id":"alb123","name":"Test Album","uri":"spotify:album:alb123","release_date":"2020-01-01",`+
			`"artists":[{"name":"Test Artist"}],"tracks":{"items":[{"name":"Test Track","duration_ms":215000,"artists":[{"name":"Test Artist"}]}],"next":null}}`)

	f.HandleJSON("/artists/"+FakeArtistID, http.StatusOK,
		`{"id":"art123","name":"Test Artist","uri":"spotify:artist:art123"}`)

	f.HandleJSON("/artists/"+FakeArtistID+"/top-tracks", http.StatusOK, `{"tracks":[`+FakeTrack+`]}`)

	f.HandleJSON("/search", http.StatusOK,
		`{"tracks":{"items":[`+FakeTrack+`],"next":null},`+
			`"albums":{"items":[{"id":"alb123","name":"Test Album","artists":[{"name":"Test Artist"}]}],"next":null},`+
			`"artists":{"items":[{"id":"art123","name":"Test Artist"}],"next":null}}`)

	f.HandleJSON("/playlists/"+FakePlaylistID, http.StatusOK,
		`{"id":"xyz789","name":"Test Playlist","uri":"spotify:playlist:xyz789","owner":{"display_name":"tester"},`+
			`"tracks":{"items":[`+playlistItem(1)+`,`+playlistItem(2)+`],`+
			`"next":"{{base}}/playlists/xyz789/tracks?offset=2&limit=2","total":5}}`)

	f.Handle("/playlists/"+FakePlaylistID+"/tracks", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("offset") {
		case "2":
			f.writeJSON(w, http.StatusOK, `{"items":[`+playlistItem(3)+`,`+playlistItem(4)+`],`+
				`"next":"{{base}}/playlists/xyz789/tracks?offset=4&limit=2"}`)
		case "4":
			f.writeJSON(w, http.StatusOK, `{"items":[`+playlistItem(5)+`],"next":null}`)
		default:
			f.writeJSON(w, http.StatusBadRequest, `{"error":{"status":400,"message":"Invalid offset"}}`)
		}
	})
}
