package authsdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeAuthServer drives the device flow: it hands out fixed codes and
// answers token polls from a scripted list of outcomes.
type fakeAuthServer struct {
	polls    atomic.Int64
	outcomes []func(w http.ResponseWriter) // consumed one per poll; last repeats
}

func newFakeAuthServer(t *testing.T, outcomes ...func(w http.ResponseWriter)) *httptest.Server {
	t.Helper()

	f := &fakeAuthServer{outcomes: outcomes}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/device/authorize", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(DeviceAuthorizationResponse{
			UserCode:         "ABCD1234",
			DeviceCode:       "device-code-1",
			AuthorizationURI: "https://auth.test/signin",
			VerificationURI:  "https://auth.test/v1/device/verify",
			ExpiresIn:        2,
			Interval:         1,
		})
	})

	mux.HandleFunc("POST /v1/device/token", func(w http.ResponseWriter, r *http.Request) {
		n := int(f.polls.Add(1)) - 1
		if n >= len(f.outcomes) {
			n = len(f.outcomes) - 1
		}
		f.outcomes[n](w)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func respondPending(w http.ResponseWriter)      { ErrPending.WriteError(w) }
func respondExpired(w http.ResponseWriter)      { ErrExpired.WriteError(w) }
func respondUnrecognized(w http.ResponseWriter) { ErrUnrecognized.WriteError(w) }
func respondTokens(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenResponse{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		ExpiresIn:    10,
	})
}

func TestBeginDeviceAuthorization_SDK(t *testing.T) {
	t.Parallel()

	server := newFakeAuthServer(t, respondPending)
	client := NewSDKClient(server.URL)

	auth, err := client.BeginDeviceAuthorization(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ABCD1234", auth.UserCode)
	require.Equal(t, "device-code-1", auth.DeviceCode)
	require.Equal(t, "https://auth.test/signin", auth.AuthorizationURI)
	require.Equal(t, 1, auth.Interval)
}

func TestWaitForDeviceAuthorization(t *testing.T) {
	t.Parallel()

	t.Run("pending then success", func(t *testing.T) {
		t.Parallel()

		server := newFakeAuthServer(t, respondPending, respondTokens)
		client := NewSDKClient(server.URL)

		auth, err := client.BeginDeviceAuthorization(t.Context())
		require.NoError(t, err)

		sess, err := client.WaitForDeviceAuthorization(t.Context(), auth)
		require.NoError(t, err)
		require.Equal(t, "access-1", sess.AccessToken())
		require.Equal(t, "refresh-1", sess.RefreshToken())
	})

	t.Run("expired code times out", func(t *testing.T) {
		t.Parallel()

		server := newFakeAuthServer(t, respondExpired)
		client := NewSDKClient(server.URL)

		auth, err := client.BeginDeviceAuthorization(t.Context())
		require.NoError(t, err)

		_, err = client.WaitForDeviceAuthorization(t.Context(), auth)
		require.ErrorIs(t, err, ErrAuthorizationTimeout)
	})

	t.Run("unrecognized code is terminal", func(t *testing.T) {
		t.Parallel()

		server := newFakeAuthServer(t, respondUnrecognized)
		client := NewSDKClient(server.URL)

		auth, err := client.BeginDeviceAuthorization(t.Context())
		require.NoError(t, err)

		_, err = client.WaitForDeviceAuthorization(t.Context(), auth)
		require.Error(t, err)

		var oe *OAuth2Error
		require.ErrorAs(t, err, &oe)
		require.Equal(t, ErrorCodeUnrecognized, oe.Code)
	})

	t.Run("window expiring while pending times out", func(t *testing.T) {
		t.Parallel()

		server := newFakeAuthServer(t, respondPending)
		client := NewSDKClient(server.URL)

		auth, err := client.BeginDeviceAuthorization(t.Context())
		require.NoError(t, err)
		auth.ExpiresIn = 1

		_, err = client.WaitForDeviceAuthorization(t.Context(), auth)
		require.ErrorIs(t, err, ErrAuthorizationTimeout)
	})
}
