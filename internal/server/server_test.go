package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	th "github.com/desertthunder/spotx/internal/testing"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestAPI(t *testing.T, configure ...func(*services.SpotifyOptions)) (*httptest.Server, *th.FakeSpotify, *bytes.Buffer) {
	t.Helper()

	fake := th.NewFakeSpotify(t)
	logs := &bytes.Buffer{}
	logger := shared.NewLogger(logs)
	registry := prometheus.NewRegistry()

	opts := services.SpotifyOptions{
		HTTPClient:        fake.Server.Client(),
		Logger:            logger,
		Metrics:           services.NewMetrics(registry),
		BaseURL:           fake.BaseURL(),
		AnonymousTokenURL: fake.AnonymousTokenURL(),
		TokenURL:          fake.TokenURL(),
	}
	for _, fn := range configure {
		fn(&opts)
	}
	client := services.NewSpotifyClient(opts)

	srv := httptest.NewServer(NewAPI(APIOptions{Client: client, Gatherer: registry, Logger: logger}))
	t.Cleanup(srv.Close)
	return srv, fake, logs
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp, string(body)
}

func TestRouter(t *testing.T) {
	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewLookupRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected middleware order %v", order)
		}
	})

	t.Run("Method Filtering", func(t *testing.T) {
		router := NewLookupRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if rec.Header().Get("Allow") != http.MethodGet {
			t.Errorf("expected Allow: GET, got %q", rec.Header().Get("Allow"))
		}
		if !strings.Contains(rec.Body.String(), `"error":"method not allowed"`) {
			t.Errorf("expected JSON error body, got %s", rec.Body.String())
		}
	})

	t.Run("GET Route Serves HEAD", func(t *testing.T) {
		router := NewLookupRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/ping", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("Unknown Path", func(t *testing.T) {
		router := NewLookupRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] != "no route for /nope" {
			t.Errorf("expected JSON not-found body, got %s", rec.Body.String())
		}
	})

	t.Run("Routes", func(t *testing.T) {
		api := NewAPI(APIOptions{Gatherer: prometheus.NewRegistry(), Logger: shared.NewLogger(&bytes.Buffer{})})

		expected := "/healthz,/metrics,/resolve,/search"
		if got := strings.Join(api.Routes(), ","); got != expected {
			t.Errorf("expected %s, got %s", expected, got)
		}
	})

	t.Run("Recover", func(t *testing.T) {
		router := NewLookupRouter()
		router.Use(RecoverMiddleware(shared.NewLogger(&bytes.Buffer{})))
		router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestLookupAPI(t *testing.T) {
	t.Run("Resolve", func(t *testing.T) {
		srv, fake, _ := newTestAPI(t)

		tt := []struct {
			q       string
			matched bool
			kind    string
			id      string
		}{
			{q: "spotify:track:abc123", matched: true, kind: "track", id: "abc123"},
			{q: "https://open.spotify.com/user/bob/playlist/xyz789?si=foo", matched: true, kind: "playlist", id: "xyz789"},
			{q: "some random words", matched: false, kind: "query"},
		}

		for _, tc := range tt {
			resp, body := get(t, srv.URL+"/resolve?q="+strings.ReplaceAll(tc.q, " ", "+"))
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}

			var got resolveResponse
			if err := json.Unmarshal([]byte(body), &got); err != nil {
				t.Fatalf("failed to decode %s: %v", body, err)
			}
			if got.Matched != tc.matched || got.Kind != tc.kind || got.ID != tc.id {
				t.Errorf("%s: expected %v/%s/%s, got %+v", tc.q, tc.matched, tc.kind, tc.id, got)
			}
		}

		if fake.AnonymousCalls() != 0 || len(fake.Requests()) != 0 {
			t.Error("resolve should not touch the network")
		}
	})

	t.Run("Search", func(t *testing.T) {
		srv, _, _ := newTestAPI(t)

		resp, body := get(t, srv.URL+"/search?q=spotify:track:abc123")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		if resp.Header.Get("X-Spotx-Kind") != "track" {
			t.Errorf("expected kind header track, got %s", resp.Header.Get("X-Spotx-Kind"))
		}
		if body != th.FakeTrack {
			t.Errorf("expected body verbatim, got %s", body)
		}
	})

	t.Run("Search Playlist", func(t *testing.T) {
		srv, _, _ := newTestAPI(t)

		_, body := get(t, srv.URL+"/search?q=spotify:playlist:xyz789")

		var playlist struct {
			Tracks struct {
				Items []json.RawMessage `json:"items"`
				Next  *string           `json:"next"`
			} `json:"tracks"`
		}
		if err := json.Unmarshal([]byte(body), &playlist); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if len(playlist.Tracks.Items) != 5 || playlist.Tracks.Next != nil {
			t.Errorf("expected 5 merged items and null next, got %d", len(playlist.Tracks.Items))
		}
	})

	t.Run("Search Error Body", func(t *testing.T) {
		srv, _, _ := newTestAPI(t)

		resp, body := get(t, srv.URL+"/search?q=spotify:track:missing")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected upstream 404, got %d", resp.StatusCode)
		}
		if !strings.Contains(body, "Non existing id") {
			t.Errorf("expected upstream error body, got %s", body)
		}
	})

	t.Run("Missing Query", func(t *testing.T) {
		srv, _, _ := newTestAPI(t)

		resp, _ := get(t, srv.URL+"/search")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("Token Failure", func(t *testing.T) {
		// the embed endpoint rejects non-browser user agents
		srv, _, _ := newTestAPI(t, func(o *services.SpotifyOptions) { o.UserAgent = "curl/8.0" })

		resp, _ := get(t, srv.URL+"/search?q=spotify:track:abc123")
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", resp.StatusCode)
		}
	})

	t.Run("Logs Requests", func(t *testing.T) {
		srv, _, logs := newTestAPI(t)

		get(t, srv.URL+"/resolve?q=x")

		if !strings.Contains(logs.String(), "path=/resolve") || !strings.Contains(logs.String(), "status=200") {
			t.Errorf("expected request log line, got %s", logs.String())
		}
	})
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _, _ := newTestAPI(t)

	_, body := get(t, srv.URL+"/healthz")
	var before healthResponse
	if err := json.Unmarshal([]byte(body), &before); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if before.Status != "ok" || before.Mode != "anonymous" || before.TokenHeld {
		t.Errorf("unexpected health before lookup %+v", before)
	}

	get(t, srv.URL+"/search?q=spotify:track:abc123")

	_, body = get(t, srv.URL+"/healthz")
	var after healthResponse
	if err := json.Unmarshal([]byte(body), &after); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !after.TokenHeld || after.TokenExpiresAt == "" {
		t.Errorf("expected token after lookup, got %+v", after)
	}

	resp, metrics := get(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, name := range []string{"spotx_token_acquisitions_total", "spotx_lookups_total", "spotx_api_requests_total"} {
		if !strings.Contains(metrics, name) {
			t.Errorf("metrics missing %s", name)
		}
	}
}
