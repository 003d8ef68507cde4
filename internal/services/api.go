// Raw HTTP access to the Spotify Web API
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/spotx/internal/shared"
	"golang.org/x/time/rate"
)

// APIResponse is a catalog response with its body kept verbatim.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       json.RawMessage
}

// apiClient issues bearer-authenticated GET requests against a base URL.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	metrics    *Metrics
}

// newAPIClient creates an apiClient. A positive rps paces outgoing requests.
func newAPIClient(baseURL string, client *http.Client, rps float64, userAgent string, metrics *Metrics) *apiClient {
	if client == nil {
		client = http.DefaultClient
	}

	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		userAgent:  userAgent,
		limiter:    limiter,
		metrics:    metrics,
	}
}

// resolveURL joins path onto the base URL, tolerating a missing or doubled separator.
// Absolute URLs, such as pagination cursors, are used as-is.
func (a *apiClient) resolveURL(path string) string {
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return path
	}
	return a.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Get performs a GET request with the bearer token and returns the raw response.
//
// Any status passes through; only transport failures and non-JSON bodies are errors.
func (a *apiClient) Get(ctx context.Context, path, token string) (*APIResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	fullURL := a.resolveURL(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrAPIRequest, err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.metrics.apiRequest(0, time.Since(start))
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()
	a.metrics.apiRequest(resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: non-JSON response from %s (status %d)", shared.ErrAPIRequest, req.URL.Path, resp.StatusCode)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}
