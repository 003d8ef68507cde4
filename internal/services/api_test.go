package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spotx/internal/shared"
	tu "github.com/desertthunder/spotx/internal/testing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAPIClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Nil Client", func(t *testing.T) {
			a := newAPIClient("http://example.com", nil, 0, "", nil)

			if a.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
			if a.limiter != nil {
				t.Error("expected no limiter when rps is 0")
			}
		})

		t.Run("With Rate", func(t *testing.T) {
			a := newAPIClient("http://example.com", nil, 5, "", nil)

			if a.limiter == nil {
				t.Fatal("expected limiter for positive rps")
			}
			if float64(a.limiter.Limit()) != 5 {
				t.Errorf("expected limit 5, got %v", a.limiter.Limit())
			}
		})
	})

	t.Run("resolveURL", func(t *testing.T) {
		tt := []struct {
			base string
			path string
			want string
		}{
			{base: "https://api.spotify.com/v1", path: "/tracks/abc", want: "https://api.spotify.com/v1/tracks/abc"},
			{base: "https://api.spotify.com/v1", path: "tracks/abc", want: "https://api.spotify.com/v1/tracks/abc"},
			{base: "https://api.spotify.com/v1/", path: "/tracks/abc", want: "https://api.spotify.com/v1/tracks/abc"},
			{base: "https://api.spotify.com/v1/", path: "//tracks/abc", want: "https://api.spotify.com/v1/tracks/abc"},
			{
				base: "https://api.spotify.com/v1",
				path: "https://api.spotify.com/v1/playlists/x/tracks?offset=100&limit=100",
				want: "https://api.spotify.com/v1/playlists/x/tracks?offset=100&limit=100",
			},
		}

		for _, tc := range tt {
			t.Run(tc.path, func(t *testing.T) {
				a := newAPIClient(tc.base, nil, 0, "", nil)
				if got := a.resolveURL(tc.path); got != tc.want {
					t.Errorf("resolveURL(%q) = %q, want %q", tc.path, got, tc.want)
				}
			})
		}
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Sends Bearer Token", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("expected bearer header, got %q", got)
				}
				if r.URL.Path != "/v1/tracks/abc" {
					t.Errorf("expected path '/v1/tracks/abc', got %s", r.URL.Path)
				}
				w.Header().Set("X-Custom-Header", "test-value")
				w.Write([]byte(`{"id":"abc"}`))
			}))
			defer server.Close()

			a := newAPIClient(server.URL+"/v1", server.Client(), 0, "", nil)
			resp, err := a.Get(context.Background(), "tracks/abc", "tok")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected status 200, got %d", resp.StatusCode)
			}
			if string(resp.Body) != `{"id":"abc"}` {
				t.Errorf("expected body verbatim, got %s", resp.Body)
			}
			if resp.Headers.Get("X-Custom-Header") != "test-value" {
				t.Errorf("expected custom header 'test-value', got %s", resp.Headers.Get("X-Custom-Header"))
			}
		})

		t.Run("Error Status Passes Through", func(t *testing.T) {
			body := `{"error":{"status":404,"message":"Non existing id"}}`
			a := newAPIClient("http://example.com", &http.Client{Transport: tu.NewStaticRoundTripper(http.StatusNotFound, body)}, 0, "", nil)

			resp, err := a.Get(context.Background(), "/tracks/missing", "tok")
			if err != nil {
				t.Fatalf("expected error-shaped JSON to pass through, got %v", err)
			}
			if resp.StatusCode != http.StatusNotFound || string(resp.Body) != body {
				t.Errorf("unexpected response: %d %s", resp.StatusCode, resp.Body)
			}
		})

		t.Run("Non-JSON Response", func(t *testing.T) {
			a := newAPIClient("http://example.com", &http.Client{Transport: tu.NewStaticRoundTripper(http.StatusBadGateway, "<html>bad gateway</html>")}, 0, "", nil)

			_, err := a.Get(context.Background(), "/tracks/abc", "tok")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			a := newAPIClient("http://example.com", nil, 0, "", nil)
			_, err := a.Get(context.Background(), "/test\x00invalid", "tok")

			if err == nil {
				t.Fatal("expected error for invalid URL")
			}
			if !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed")),
			}

			a := newAPIClient("http://example.com", client, 0, "", nil)
			_, err := a.Get(context.Background(), "/test", "tok")

			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			a := newAPIClient("http://example.com", client, 0, "", nil)
			_, err := a.Get(context.Background(), "/test", "tok")

			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			a := newAPIClient(server.URL, nil, 0, "", nil)
			if _, err := a.Get(ctx, "/test", "tok"); err == nil {
				t.Error("expected error for canceled context")
			}
		})

		t.Run("Rate Limiter Paces Requests", func(t *testing.T) {
			a := newAPIClient("http://example.com", &http.Client{Transport: tu.NewStaticRoundTripper(http.StatusOK, `{}`)}, 20, "", nil)

			start := time.Now()
			for range 3 {
				if _, err := a.Get(context.Background(), "/test", "tok"); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			// burst of one: the second and third requests each wait ~50ms
			if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
				t.Errorf("expected pacing, requests finished in %v", elapsed)
			}
		})

		t.Run("Records Metrics", func(t *testing.T) {
			metrics := NewMetrics(prometheus.NewRegistry())
			a := newAPIClient("http://example.com", &http.Client{Transport: tu.NewStaticRoundTripper(http.StatusNotFound, `{}`)}, 0, "", metrics)

			a.Get(context.Background(), "/a", "tok")
			a.Get(context.Background(), "/b", "tok")

			if got := testutil.ToFloat64(metrics.APIRequests.WithLabelValues("404")); got != 2 {
				t.Errorf("expected 2 requests recorded, got %v", got)
			}
		})
	})
}
