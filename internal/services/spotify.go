// Spotify Web API client: token lifecycle, catalog reads and input dispatch
//
// Endpoint reference: https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyBaseURL           = "https://api.spotify.com/v1"
	spotifyTokenURL          = "https://accounts.spotify.com/api/token"
	spotifyAnonymousTokenURL = "https://open.spotify.com/get_access_token?reason=transport&productType=embed"

	// DefaultSearchMarket is the market used for search and artist top tracks when none is configured.
	DefaultSearchMarket = "IN"
	// DefaultUserAgent is a desktop browser user agent; the embed token endpoint rejects others.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/97.0.4692.99 Safari/537.36"
)

// SpotifyOptions configures a [SpotifyClient]. Zero values fall back to defaults.
type SpotifyOptions struct {
	ClientID     string
	ClientSecret string
	SearchMarket string

	HTTPClient        *http.Client
	Logger            *log.Logger
	Metrics           *Metrics
	RequestsPerSecond float64
	UserAgent         string

	// Endpoint overrides
	BaseURL           string
	AnonymousTokenURL string
	TokenURL          string
}

// OptionsFromConfig maps the [shared.Config] sections onto client options.
func OptionsFromConfig(c *shared.Config) SpotifyOptions {
	return SpotifyOptions{
		ClientID:          c.Spotify.ClientID,
		ClientSecret:      c.Spotify.ClientSecret,
		SearchMarket:      c.Spotify.SearchMarket,
		HTTPClient:        &http.Client{Timeout: c.HTTP.Timeout()},
		RequestsPerSecond: c.HTTP.RequestsPerSecond,
		UserAgent:         c.HTTP.UserAgent,
	}
}

// Result is the outcome of [SpotifyClient.Search]: the classified input and the
// response JSON, passed through verbatim (playlists with every page's items merged in).
type Result struct {
	Ref  ResourceRef
	Data json.RawMessage
	// Playlist is set for playlist lookups.
	Playlist *PlaylistAggregate
}

// Name returns the display name found in the result, if any.
//
// Searches and artist top tracks have no single name and return "".
func (r *Result) Name() string {
	switch r.Ref.Kind {
	case KindTrack, KindAlbum, KindPlaylist:
		return gjson.GetBytes(r.Data, "name").String()
	default:
		return ""
	}
}

// APIError returns the message of an error-shaped response, or "" when the body is not one.
func (r *Result) APIError() string {
	e := gjson.GetBytes(r.Data, "error")
	if !e.Exists() {
		return ""
	}
	if msg := e.Get("message"); msg.Exists() {
		return msg.String()
	}
	return e.String()
}

// SpotifyClient resolves inputs and reads the Spotify catalog.
//
// One client owns one token; it is safe for concurrent use.
type SpotifyClient struct {
	market  string
	tokens  *tokenManager
	api     *apiClient
	logger  *log.Logger
	metrics *Metrics
}

// NewSpotifyClient creates a client. Client-credentials mode is used only when both
// ClientID and ClientSecret are set; anything else runs in anonymous mode.
func NewSpotifyClient(opts SpotifyOptions) *SpotifyClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.SearchMarket == "" {
		opts.SearchMarket = DefaultSearchMarket
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.AnonymousTokenURL == "" {
		opts.AnonymousTokenURL = spotifyAnonymousTokenURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}

	logger := shared.WithLogger(opts.Logger, "service", "spotify")

	tokens := &tokenManager{
		mode:         AuthModeAnonymous,
		httpClient:   opts.HTTPClient,
		anonymousURL: opts.AnonymousTokenURL,
		userAgent:    opts.UserAgent,
		now:          time.Now,
		logger:       logger,
		metrics:      opts.Metrics,
	}

	if opts.ClientID != "" && opts.ClientSecret != "" {
		tokens.mode = AuthModeClientCredentials
		tokens.credentials = &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
	}

	return &SpotifyClient{
		market:  opts.SearchMarket,
		tokens:  tokens,
		api:     newAPIClient(opts.BaseURL, opts.HTTPClient, opts.RequestsPerSecond, opts.UserAgent, opts.Metrics),
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Mode reports which auth mode the client was configured with.
func (c *SpotifyClient) Mode() AuthMode {
	return c.tokens.mode
}

// Market returns the market code sent with search and top-tracks requests.
func (c *SpotifyClient) Market() string {
	return c.market
}

// Resolve reports whether input is a recognized Spotify link or URI. No network I/O.
func (c *SpotifyClient) Resolve(input string) bool {
	return Resolve(input)
}

// Classify extracts the resource reference from input. No network I/O.
func (c *SpotifyClient) Classify(input string) ResourceRef {
	return Classify(input)
}

// EnsureToken returns a valid bearer token, acquiring one when none is held or it is stale.
func (c *SpotifyClient) EnsureToken(ctx context.Context) (string, error) {
	return c.tokens.ensure(ctx)
}

// Invalidate drops the held token so the next request acquires a new one.
func (c *SpotifyClient) Invalidate() {
	c.tokens.invalidate()
}

// TokenExpiry returns when the held token expires, or false if none is held.
func (c *SpotifyClient) TokenExpiry() (time.Time, bool) {
	return c.tokens.expiry()
}

// authenticatedGet ensures a valid token, then GETs path (relative to the API base URL,
// or an absolute cursor URL) and returns the body verbatim.
func (c *SpotifyClient) authenticatedGet(ctx context.Context, path string) (json.RawMessage, error) {
	token, err := c.tokens.ensure(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.Get(ctx, path, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Debug("API returned error status", "path", path, "status", resp.StatusCode)
	}

	return resp.Body, nil
}

// GetTrack fetches /tracks/{id}.
func (c *SpotifyClient) GetTrack(ctx context.Context, id string) (json.RawMessage, error) {
	return c.authenticatedGet(ctx, "/tracks/"+id)
}

// GetAlbum fetches /albums/{id}.
func (c *SpotifyClient) GetAlbum(ctx context.Context, id string) (json.RawMessage, error) {
	return c.authenticatedGet(ctx, "/albums/"+id)
}

// GetArtistTracks fetches the artist profile and then the artist's top tracks in the
// configured market, returning the top tracks. The profile body is not returned.
func (c *SpotifyClient) GetArtistTracks(ctx context.Context, id string) (json.RawMessage, error) {
	profile, err := c.authenticatedGet(ctx, "/artists/"+id)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched artist profile", "artist", gjson.GetBytes(profile, "name").String())

	return c.authenticatedGet(ctx, fmt.Sprintf("/artists/%s/top-tracks?market=%s", id, url.QueryEscape(c.market)))
}

// GetTrackByWords runs a phrase search over artists, albums and tracks and returns
// the raw search results.
func (c *SpotifyClient) GetTrackByWords(ctx context.Context, query string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("q", phrase(query))
	params.Set("type", "artist,album,track")
	params.Set("market", c.market)

	return c.authenticatedGet(ctx, "/search?"+params.Encode())
}

// phrase wraps query in double quotes unless it already is.
func phrase(query string) string {
	if len(query) >= 2 && strings.HasPrefix(query, `"`) && strings.HasSuffix(query, `"`) {
		return query
	}
	return `"` + query + `"`
}

// Search classifies input and fetches whatever it refers to; unrecognized input
// becomes a free-text search.
func (c *SpotifyClient) Search(ctx context.Context, input string) (*Result, error) {
	if _, err := c.tokens.ensure(ctx); err != nil {
		return nil, err
	}

	ref := Classify(input)
	c.metrics.lookup(ref.Kind)
	c.logger.Debug("dispatching lookup", "kind", ref.Kind, "id", ref.ID)

	result := &Result{Ref: ref}

	var err error
	switch ref.Kind {
	case KindTrack:
		result.Data, err = c.GetTrack(ctx, ref.ID)
	case KindAlbum:
		result.Data, err = c.GetAlbum(ctx, ref.ID)
	case KindArtist:
		result.Data, err = c.GetArtistTracks(ctx, ref.ID)
	case KindPlaylist:
		var agg *PlaylistAggregate
		if agg, err = c.GetPlaylist(ctx, ref.ID); err == nil {
			result.Playlist = agg
			result.Data, err = agg.MarshalJSON()
		}
	case KindQuery:
		result.Data, err = c.GetTrackByWords(ctx, ref.Query)
	default:
		err = fmt.Errorf("%w: unhandled resource kind %v", shared.ErrInvalidInput, ref.Kind)
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}
