// Package assertion verifies identity assertions (OIDC ID tokens) issued by
// an external identity provider. The verification endpoint trades a valid
// assertion for ownership of a pending device session; nothing here mints
// tokens of our own.
package assertion

import (
	"context"
	"errors"
	"fmt"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// ErrUntrusted covers every way an assertion can fail: bad signature,
// unknown key, wrong issuer or audience, expired, missing subject. Callers
// should treat all of them identically and reveal none of them.
var ErrUntrusted = errors.New("assertion: untrusted")

// Verifier checks a raw assertion and returns the subject it attests to.
type Verifier interface {
	Verify(ctx context.Context, raw string) (subject string, err error)
}

// Config controls how assertions are validated.
type Config struct {
	// Issuer is the identity provider's issuer URL. Required.
	Issuer string

	// Audience is the value the assertion's aud claim must contain.
	// Required.
	Audience string

	// AllowedAlgs restricts acceptable signing algorithms. Defaults to
	// RS256 only.
	AllowedAlgs []string

	// Leeway absorbs clock skew between us and the provider. Defaults to
	// one minute.
	Leeway time.Duration
}

func (c *Config) applyDefaults() {
	if len(c.AllowedAlgs) == 0 {
		c.AllowedAlgs = []string{"RS256"}
	}
	if c.Leeway == 0 {
		c.Leeway = time.Minute
	}
}

type verifier struct {
	cfg     Config
	keyfunc jwt.Keyfunc
}

// NewFromDiscovery resolves the provider's JWKS endpoint via OIDC discovery
// and returns a Verifier whose key set refreshes automatically.
func NewFromDiscovery(ctx context.Context, cfg Config) (Verifier, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("assertion: issuer is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("assertion: oidc discovery: %w", err)
	}
	var meta struct {
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("assertion: invalid discovery metadata: %w", err)
	}
	if meta.JwksURI == "" {
		return nil, errors.New("assertion: discovery metadata has no jwks_uri")
	}

	return NewStatic(ctx, cfg, meta.JwksURI)
}

// NewStatic builds a Verifier against a known JWKS endpoint, skipping
// discovery. The key set still refreshes automatically.
func NewStatic(ctx context.Context, cfg Config, jwksURI string) (Verifier, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("assertion: issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("assertion: audience is required")
	}
	cfg.applyDefaults()

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURI})
	if err != nil {
		return nil, fmt.Errorf("assertion: jwks init: %w", err)
	}

	return &verifier{cfg: cfg, keyfunc: kf.Keyfunc}, nil
}

func (v *verifier) Verify(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", ErrUntrusted
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(v.cfg.AllowedAlgs),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithLeeway(v.cfg.Leeway),
	)

	parsed, err := parser.Parse(raw, v.keyfunc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUntrusted, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrUntrusted
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("%w: missing sub", ErrUntrusted)
	}

	return sub, nil
}
