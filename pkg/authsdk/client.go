package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the authorization service. It provides the
// unauthenticated operations (device authorization, token grants) and can
// create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client for the service at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewSessionFromTokens creates an authenticated session from existing
// tokens, e.g. tokens persisted from a previous run. The session still
// refreshes automatically when the server rejects the access token.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string) *Session {
	return &Session{
		client:       c,
		accessToken:  accessToken,
		refreshToken: refreshToken,
	}
}

func newSession(c *SDKClient, tok *TokenResponse) *Session {
	return c.NewSessionFromTokens(tok.AccessToken, tok.RefreshToken)
}
