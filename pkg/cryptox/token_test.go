package cryptox_test

import (
	"encoding/base64"
	"testing"

	"github.com/danielballan/auth-adventures/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := cryptox.GenerateToken(0)
		require.Error(t, err)

		_, err = cryptox.GenerateToken(-4)
		require.Error(t, err)
	})

	t.Run("encodes the requested number of bytes", func(t *testing.T) {
		token, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		require.Len(t, raw, cryptox.TokenSize256)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		seen := make(map[string]struct{})
		for range 64 {
			token, err := cryptox.GenerateToken(cryptox.TokenSize128)
			require.NoError(t, err)

			_, dup := seen[token]
			require.False(t, dup, "token collision: %s", token)
			seen[token] = struct{}{}
		}
	})
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	fp1 := cryptox.FingerprintToken("some-device-code")
	fp2 := cryptox.FingerprintToken("some-device-code")
	require.Equal(t, fp1, fp2, "fingerprint must be deterministic")

	other := cryptox.FingerprintToken("another-device-code")
	require.NotEqual(t, fp1, other)

	// SHA-256 is 32 bytes, 43 chars base64url without padding.
	require.Len(t, fp1, 43)
}
