// Package tokenx mints and verifies the compact signed tokens (JWT, HS256)
// issued by the authorization service.
//
// The codec holds an ordered set of symmetric keys: the first key signs all
// new tokens, and verification accepts a signature from any key in the set.
// That ordering is the whole rotation story — prepend a fresh key and tokens
// signed under the older, still-listed keys keep verifying until they expire.
package tokenx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed         = errors.New("tokenx: malformed token")
	ErrUnsupportedHeader = errors.New("tokenx: unsupported token header")
	ErrInvalidSignature  = errors.New("tokenx: invalid signature")
	ErrExpired           = errors.New("tokenx: token expired")
	ErrNotYetValid       = errors.New("tokenx: token not yet valid")
	ErrIssuer            = errors.New("tokenx: issuer mismatch")
	ErrWrongType         = errors.New("tokenx: wrong token type")
)

// Verifier validates a token string and returns its claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// Key is one symmetric signing key with its identifier. The kid travels in
// the token header so verification can pick the right key without trying
// the whole set.
type Key struct {
	ID     string
	Secret []byte
}

// Codec signs and verifies tokens against an ordered key set. The key set is
// immutable after construction; rotation is a reload with a new Codec, never
// an in-place mutation.
type Codec struct {
	keys   []Key
	issuer string
}

// NewCodec builds a codec from an ordered key set. The first key is the
// active signer.
func NewCodec(issuer string, keys []Key) (*Codec, error) {
	if len(keys) == 0 {
		return nil, errors.New("tokenx: at least one signing key is required")
	}
	for i, k := range keys {
		if len(k.Secret) == 0 {
			return nil, fmt.Errorf("tokenx: key %d has an empty secret", i)
		}
		if k.ID == "" {
			return nil, fmt.Errorf("tokenx: key %d has an empty kid", i)
		}
	}

	ks := make([]Key, len(keys))
	copy(ks, keys)

	return &Codec{keys: ks, issuer: issuer}, nil
}

// NumKeys returns the number of trusted keys.
func (c *Codec) NumKeys() int { return len(c.keys) }

// Mint stamps the claims with issuer, issue time, expiry (now + ttl), and a
// fresh jti, then signs them with the active key. It has no side effects
// beyond reading the clock.
func (c *Codec) Mint(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims.Issuer = c.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.ID = NewJTI()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["kid"] = c.keys[0].ID

	signed, err := tok.SignedString(c.keys[0].Secret)
	if err != nil {
		return "", fmt.Errorf("tokenx: sign: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims on success.
// Failures map onto the package sentinel errors: structural problems are
// ErrMalformed, a wrong alg or typ header is ErrUnsupportedHeader, a
// signature matching no trusted key is ErrInvalidSignature, and a past exp
// (judged against the verification-time clock) is ErrExpired.
func (c *Codec) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser()

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, c.keyFor)
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return Claims{}, ErrIssuer
	}

	return *claims, nil
}

// keyFor enforces the expected header shape and selects verification keys.
// An unknown kid is not an error: the token may have been signed under a key
// that is still trusted but now listed in a different position, so the
// parser gets the whole set to try.
func (c *Codec) keyFor(t *jwt.Token) (any, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected alg %q", t.Method.Alg())
	}
	if typ, ok := t.Header["typ"].(string); ok && typ != "JWT" {
		return nil, fmt.Errorf("unexpected typ %q", typ)
	}

	if kid, _ := t.Header["kid"].(string); kid != "" {
		for _, k := range c.keys {
			if k.ID == kid {
				return k.Secret, nil
			}
		}
	}

	set := jwt.VerificationKeySet{Keys: make([]jwt.VerificationKey, 0, len(c.keys))}
	for _, k := range c.keys {
		set.Keys = append(set.Keys, k.Secret)
	}
	return set, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		// The keyfunc rejected the header before signature checking.
		return ErrUnsupportedHeader
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
