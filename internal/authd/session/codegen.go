package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/danielballan/auth-adventures/pkg/cryptox"
)

// User codes are what a human types into the verification page: short,
// uppercase hex, no ambiguous alphabet decisions to make. Device codes are
// never typed, so they get a full-entropy opaque token instead.
const (
	userCodeBytes   = 4 // 8 hex characters
	maxCodeAttempts = 8
)

func generateUserCode() (string, error) {
	buf := make([]byte, userCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session: generating user code: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

func generateDeviceCode() (string, error) {
	code, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("session: generating device code: %w", err)
	}
	return code, nil
}
