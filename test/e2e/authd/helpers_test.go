package authd_test

/*
 * End-to-end tests for the device authorization flow. The whole stack runs
 * in-process: a fake identity provider serving a real JWKS endpoint, the
 * authorization service wired with a real assertion verifier, and the SDK
 * driving everything over HTTP.
 */

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/danielballan/auth-adventures/internal/authd/assertion"
	httpapi "github.com/danielballan/auth-adventures/internal/authd/http"
	"github.com/danielballan/auth-adventures/internal/authd/service"
	"github.com/danielballan/auth-adventures/internal/authd/session"
	"github.com/danielballan/auth-adventures/pkg/authsdk"
	"github.com/danielballan/auth-adventures/pkg/tokenx"
)

const (
	idpIssuer   = "https://idp.test"
	idpAudience = "auth-adventures"
	idpKeyID    = "idp-2026"

	tokenIssuer = "https://auth.test"
)

// identityProvider signs ID tokens with an RSA key it also publishes over
// a real JWKS endpoint.
type identityProvider struct {
	key    *rsa.PrivateKey
	server *httptest.Server
}

func startIdentityProvider(t *testing.T) *identityProvider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks, err := json.Marshal(map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"kid": idpKeyID,
			"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x00, 0x01}),
		}},
	})
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(jwks)
	}))
	t.Cleanup(server.Close)

	return &identityProvider{key: key, server: server}
}

// idTokenFor returns a signed ID token attesting to the given subject.
func (p *identityProvider) idTokenFor(t *testing.T, subject string) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": idpIssuer,
		"aud": idpAudience,
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	})
	tok.Header["kid"] = idpKeyID
	raw, err := tok.SignedString(p.key)
	require.NoError(t, err)
	return raw
}

// testEnv is the fully wired service plus the pieces tests poke directly.
type testEnv struct {
	idp     *identityProvider
	server  *httptest.Server
	client  *authsdk.SDKClient
	service *service.AuthorizationService
}

type envOption func(*service.AuthorizationService)

func withDeviceTTL(ttl time.Duration) envOption {
	return func(s *service.AuthorizationService) { s.DeviceTTL = ttl }
}

func withAccessTTL(ttl time.Duration) envOption {
	return func(s *service.AuthorizationService) { s.AccessTTL = ttl }
}

func startService(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	idp := startIdentityProvider(t)

	verifier, err := assertion.NewStatic(t.Context(), assertion.Config{
		Issuer:   idpIssuer,
		Audience: idpAudience,
	}, idp.server.URL)
	require.NoError(t, err)

	codec, err := tokenx.NewCodec(tokenIssuer, []tokenx.Key{
		{ID: "e2e", Secret: []byte("e2e-secret-0123456789abcdef01234")},
	})
	require.NoError(t, err)

	svc := &service.AuthorizationService{
		Codec:            codec,
		Sessions:         session.NewStore(),
		Assertions:       verifier,
		AuthorizationURI: "https://auth.test/signin",
		DeviceTTL:        time.Minute,
		PollInterval:     time.Second,
		AccessTTL:        10 * time.Second,
		RefreshTTL:       time.Hour,
	}
	for _, opt := range opts {
		opt(svc)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := httpapi.NewRouter(codec, "e2e", logger)
	router.AuthorizationService = svc
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	svc.VerificationURI = server.URL + "/v1/device/verify"

	return &testEnv{
		idp:     idp,
		server:  server,
		client:  authsdk.NewSDKClient(server.URL),
		service: svc,
	}
}

// completeVerification plays the user's part: it posts the user code and a
// fresh ID token to the verification endpoint.
func (e *testEnv) completeVerification(t *testing.T, userCode, subject string) *http.Response {
	t.Helper()

	body, err := json.Marshal(map[string]string{
		"user_code": userCode,
		"id_token":  e.idp.idTokenFor(t, subject),
	})
	require.NoError(t, err)

	resp, err := http.Post(
		e.server.URL+"/v1/device/verify",
		"application/json",
		bytes.NewReader(body),
	)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
