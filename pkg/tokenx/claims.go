package tokenx

import (
	"time"

	"github.com/danielballan/auth-adventures/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// Token type tags. The type claim is what keeps a long-lived refresh token
// from being replayed as an access token (and the other way around).
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Default token TTLs. Access tokens are deliberately very short so leaking
// one bounds the blast radius to seconds and clients exercise the refresh
// path constantly; refresh tokens carry the actual session lifetime.
const (
	DefaultAccessTokenTTL  = 10 * time.Second
	DefaultRefreshTokenTTL = 14 * 24 * time.Hour
)

// Claims are the token claims used across the service. Keep changes additive
// to preserve compatibility with already-issued tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Type distinguishes access from refresh tokens.
	Type string `json:"type,omitempty"`

	// SID is the device session that originally produced this token. It
	// survives refresh, so all tokens from one login share a session ID.
	SID string `json:"sid,omitempty"`
}

// NewClaims builds minimally-correct claims for a subject. The codec fills
// in issuer, timestamps, and expiry at mint time.
func NewClaims(subject, sid, tokenType string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
		Type: tokenType,
		SID:  sid,
	}
}

// ValidateType checks the type tag against the expected value.
func (c *Claims) ValidateType(want string) error {
	if c.Type != want {
		return ErrWrongType
	}
	return nil
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	return cryptox.MustGenerateToken(cryptox.TokenSize128)
}
