package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielballan/auth-adventures/pkg/httpx"
	"github.com/danielballan/auth-adventures/pkg/tokenx"
	"github.com/stretchr/testify/require"
)

func newAuthnHandler(t *testing.T) (*tokenx.Codec, http.Handler) {
	t.Helper()

	codec, err := tokenx.NewCodec("authn-test", []tokenx.Key{
		{ID: "k1", Secret: []byte("authn-test-secret")},
	})
	require.NoError(t, err)

	handler := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpx.WriteJSON(w, http.StatusOK, map[string]string{
				"who_am_i": httpx.SubjectFromContext(r.Context()),
			})
		}),
		httpx.AuthnMiddleware(codec),
	)

	return codec, handler
}

func TestAuthnMiddleware(t *testing.T) {
	t.Parallel()

	codec, handler := newAuthnHandler(t)

	do := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/data", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("accepts a valid access token", func(t *testing.T) {
		token, err := codec.Mint(tokenx.NewClaims("alice", "sess-1", tokenx.TypeAccess), time.Minute)
		require.NoError(t, err)

		rec := do("Bearer " + token)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"who_am_i":"alice"}`, rec.Body.String())
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		rec := do("")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("rejects a refresh token used as bearer", func(t *testing.T) {
		token, err := codec.Mint(tokenx.NewClaims("alice", "sess-1", tokenx.TypeRefresh), time.Minute)
		require.NoError(t, err)

		rec := do("Bearer " + token)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects an expired access token", func(t *testing.T) {
		token, err := codec.Mint(tokenx.NewClaims("alice", "", tokenx.TypeAccess), 20*time.Millisecond)
		require.NoError(t, err)
		time.Sleep(60 * time.Millisecond)

		rec := do("Bearer " + token)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
