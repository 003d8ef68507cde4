package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// AuthMode selects how access tokens are acquired.
type AuthMode int

const (
	// AuthModeAnonymous uses the embed player's token endpoint and needs no credentials.
	AuthModeAnonymous AuthMode = iota
	// AuthModeClientCredentials uses the OAuth2 client-credentials grant.
	AuthModeClientCredentials
)

func (m AuthMode) String() string {
	switch m {
	case AuthModeClientCredentials:
		return "client_credentials"
	default:
		return "anonymous"
	}
}

// tokenState is replaced wholesale on every refresh.
// ExpiresAt is epoch milliseconds; at or after it the token is stale.
type tokenState struct {
	AccessToken string
	ExpiresAt   int64
}

func (s *tokenState) stale(now time.Time) bool {
	return s == nil || now.UnixMilli() >= s.ExpiresAt
}

// anonymousToken is the body returned by the embed token endpoint.
type anonymousToken struct {
	AccessToken string `json:"accessToken"`
	ExpiresAtMs int64  `json:"accessTokenExpirationTimestampMs"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// tokenManager owns the bearer token for one client.
type tokenManager struct {
	mode         AuthMode
	httpClient   *http.Client
	anonymousURL string
	userAgent    string
	credentials  *clientcredentials.Config

	state atomic.Pointer[tokenState]
	group singleflight.Group
	now   func() time.Time

	logger  *log.Logger
	metrics *Metrics
}

// ensure returns a valid bearer token, acquiring a new one when none is held or the
// held one is stale. Concurrent callers that observe a stale token share one acquisition.
func (m *tokenManager) ensure(ctx context.Context) (string, error) {
	if s := m.state.Load(); !s.stale(m.now()) {
		return s.AccessToken, nil
	}

	// The acquisition outlives any single caller; each caller only waits on its own ctx.
	acquireCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan("token", func() (any, error) {
		if s := m.state.Load(); !s.stale(m.now()) {
			return s, nil
		}

		s, err := m.acquire(acquireCtx)
		m.metrics.tokenAcquired(m.mode, err)
		if err != nil {
			return nil, err
		}

		m.state.Store(s)
		m.logger.Debug("acquired access token", "mode", m.mode, "expires_at", time.UnixMilli(s.ExpiresAt))
		return s, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", shared.ErrTokenAcquisition, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return "", res.Err
	}
	if res.Shared {
		m.logger.Debug("joined in-flight token acquisition")
	}

	return res.Val.(*tokenState).AccessToken, nil
}

func (m *tokenManager) acquire(ctx context.Context) (*tokenState, error) {
	switch m.mode {
	case AuthModeClientCredentials:
		return m.acquireClientCredentials(ctx)
	default:
		return m.acquireAnonymous(ctx)
	}
}

// acquireAnonymous fetches an embed token. The endpoint only answers browser user agents
// and reports the expiry as an absolute epoch-millisecond timestamp.
func (m *tokenManager) acquireAnonymous(ctx context.Context) (*tokenState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.anonymousURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenAcquisition, err)
	}
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenAcquisition, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrTokenAcquisition, err)
	}

	var tok anonymousToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response (status %d): %v", shared.ErrTokenAcquisition, resp.StatusCode, err)
	}

	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token in response (status %d)", shared.ErrTokenAcquisition, resp.StatusCode)
	}

	return &tokenState{AccessToken: tok.AccessToken, ExpiresAt: tok.ExpiresAtMs}, nil
}

// acquireClientCredentials exchanges the client id and secret for a token.
// A 400 from the token endpoint means the credentials were rejected.
func (m *tokenManager) acquireClientCredentials(ctx context.Context) (*tokenState, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	issued := m.now()
	tok, err := m.credentials.Token(ctx)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil && rErr.Response.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, rErr.ErrorCode)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenAcquisition, err)
	}

	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token in response", shared.ErrTokenAcquisition)
	}

	// expires_in counts from m.now(); Expiry is stamped with the wall clock.
	var expiresAt int64
	if ttl, ok := expiresIn(tok); ok {
		expiresAt = issued.UnixMilli() + ttl*1000
	} else if !tok.Expiry.IsZero() {
		expiresAt = tok.Expiry.UnixMilli()
	} else {
		return nil, fmt.Errorf("%w: no expiry in response", shared.ErrTokenAcquisition)
	}

	return &tokenState{AccessToken: tok.AccessToken, ExpiresAt: expiresAt}, nil
}

// expiresIn reads the token lifetime in seconds from the token endpoint's response.
func expiresIn(tok *oauth2.Token) (int64, bool) {
	var ttl int64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		ttl = int64(v)
	case int64:
		ttl = v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		ttl = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		ttl = n
	default:
		if tok.ExpiresIn > 0 {
			return tok.ExpiresIn, true
		}
		return 0, false
	}
	return ttl, ttl > 0
}

// invalidate drops the held token so the next call re-acquires.
func (m *tokenManager) invalidate() {
	m.state.Store(nil)
}

// expiry returns the held token's expiry, or false when no token is held.
func (m *tokenManager) expiry() (time.Time, bool) {
	s := m.state.Load()
	if s == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(s.ExpiresAt), true
}
