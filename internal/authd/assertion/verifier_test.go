package assertion

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://idp.test"
	testAudience = "auth-adventures"
	testKeyID    = "idp-key-1"
)

// fakeIdentityProvider serves a JWKS endpoint for a freshly generated RSA
// key and signs ID tokens with it.
type fakeIdentityProvider struct {
	key    *rsa.PrivateKey
	server *httptest.Server
}

func newFakeIdentityProvider(t *testing.T) *fakeIdentityProvider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"kid": testKeyID,
			"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x00, 0x01}),
		}},
	}
	body, err := json.Marshal(jwks)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	t.Cleanup(server.Close)

	return &fakeIdentityProvider{key: key, server: server}
}

func (p *fakeIdentityProvider) jwksURI() string { return p.server.URL }

func (p *fakeIdentityProvider) sign(t *testing.T, claims jwt.MapClaims, kid string) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	raw, err := tok.SignedString(p.key)
	require.NoError(t, err)
	return raw
}

func (p *fakeIdentityProvider) idToken(t *testing.T, mutate func(jwt.MapClaims)) string {
	t.Helper()

	claims := jwt.MapClaims{
		"iss": testIssuer,
		"aud": testAudience,
		"sub": "alice",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Minute).Unix(),
	}
	if mutate != nil {
		mutate(claims)
	}
	return p.sign(t, claims, testKeyID)
}

func newTestVerifier(t *testing.T, idp *fakeIdentityProvider) Verifier {
	t.Helper()

	v, err := NewStatic(t.Context(), Config{
		Issuer:   testIssuer,
		Audience: testAudience,
	}, idp.jwksURI())
	require.NoError(t, err)
	return v
}

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)
	v := newTestVerifier(t, idp)

	t.Run("valid assertion yields subject", func(t *testing.T) {
		sub, err := v.Verify(t.Context(), idp.idToken(t, nil))
		require.NoError(t, err)
		require.Equal(t, "alice", sub)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		raw := idp.idToken(t, func(c jwt.MapClaims) { c["iss"] = "https://evil.test" })
		_, err := v.Verify(t.Context(), raw)
		require.ErrorIs(t, err, ErrUntrusted)
	})

	t.Run("wrong audience", func(t *testing.T) {
		raw := idp.idToken(t, func(c jwt.MapClaims) { c["aud"] = "someone-else" })
		_, err := v.Verify(t.Context(), raw)
		require.ErrorIs(t, err, ErrUntrusted)
	})

	t.Run("expired", func(t *testing.T) {
		raw := idp.idToken(t, func(c jwt.MapClaims) {
			c["exp"] = time.Now().Add(-10 * time.Minute).Unix()
		})
		_, err := v.Verify(t.Context(), raw)
		require.ErrorIs(t, err, ErrUntrusted)
	})

	t.Run("missing subject", func(t *testing.T) {
		raw := idp.idToken(t, func(c jwt.MapClaims) { delete(c, "sub") })
		_, err := v.Verify(t.Context(), raw)
		require.ErrorIs(t, err, ErrUntrusted)
	})

	t.Run("unknown signing key", func(t *testing.T) {
		stranger := newFakeIdentityProvider(t)
		raw := stranger.idToken(t, nil)
		_, err := v.Verify(t.Context(), raw)
		require.ErrorIs(t, err, ErrUntrusted)
	})

	t.Run("disallowed algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"iss": testIssuer,
			"aud": testAudience,
			"sub": "alice",
			"exp": time.Now().Add(time.Minute).Unix(),
		})
		raw, err := tok.SignedString([]byte("not-an-rsa-key"))
		require.NoError(t, err)

		_, err = v.Verify(t.Context(), raw)
		require.ErrorIs(t, err, ErrUntrusted)
	})

	t.Run("empty assertion", func(t *testing.T) {
		_, err := v.Verify(t.Context(), "")
		require.ErrorIs(t, err, ErrUntrusted)
	})
}

func TestNewStatic_Validation(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)

	_, err := NewStatic(t.Context(), Config{Audience: testAudience}, idp.jwksURI())
	require.Error(t, err)

	_, err = NewStatic(t.Context(), Config{Issuer: testIssuer}, idp.jwksURI())
	require.Error(t, err)
}
