package authsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Session is an authenticated session with automatic token refresh.
//
// Session.Do attaches the access token to each request. When the server
// answers 401 the session refreshes its tokens (one refresh at a time, no
// matter how many requests hit 401 together) and retries the request once.
// If the refresh itself is rejected the session is dead and every call
// returns ErrReauthenticationRequired.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string

	refreshGroup singleflight.Group
}

// Do sends req with the session's access token attached. The request is
// retried at most once, after a successful token refresh. Responses other
// than 401 are returned as-is, whatever their status.
//
// Requests that carry a body must have GetBody set (http.NewRequest does
// this for common body types) so the retry can rewind it.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	s.mu.RLock()
	token := s.accessToken
	s.mu.RUnlock()

	resp, err := s.send(req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// The access token was rejected. Drop this response and refresh.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	newToken, err := s.refreshAfter401(req.Context(), token)
	if err != nil {
		return nil, err
	}

	return s.send(req, newToken)
}

// Get is a convenience wrapper around Do for simple GET requests.
func (s *Session) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return s.Do(req)
}

// send issues one attempt of req with the given bearer token. The original
// request is cloned so a retry starts from a clean slate.
func (s *Session) send(req *http.Request, token string) (*http.Response, error) {
	attempt := req.Clone(req.Context())
	attempt.Header.Set("Authorization", "Bearer "+token)

	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		attempt.Body = body
	}

	return s.client.HTTPClient.Do(attempt)
}

// refreshAfter401 exchanges the refresh token for a new pair. Concurrent
// callers share one refresh via singleflight; a caller whose token is
// already stale (someone else refreshed first) just picks up the stored
// token without another round trip.
func (s *Session) refreshAfter401(ctx context.Context, staleToken string) (string, error) {
	token, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		s.mu.RLock()
		current := s.accessToken
		refresh := s.refreshToken
		s.mu.RUnlock()

		if current != staleToken {
			return current, nil
		}

		tok, err := s.client.RefreshGrant(ctx, refresh)
		if err != nil {
			var oe *OAuth2Error
			if errors.As(err, &oe) && oe.StatusCode == http.StatusUnauthorized {
				return "", fmt.Errorf("%w: %v", ErrReauthenticationRequired, err)
			}
			return "", fmt.Errorf("failed to refresh token: %w", err)
		}

		s.mu.Lock()
		s.accessToken = tok.AccessToken
		s.refreshToken = tok.RefreshToken
		s.mu.Unlock()

		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// AccessToken returns the current access token. It may be rejected by the
// server at any moment; prefer Do, which handles that.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token, e.g. for persisting the
// session across process restarts.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}
