// Package service holds the authorization business logic: starting device
// flows, completing user verification, and minting token pairs for the
// device-code and refresh-token grants.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielballan/auth-adventures/internal/authd/assertion"
	"github.com/danielballan/auth-adventures/internal/authd/domain"
	"github.com/danielballan/auth-adventures/internal/authd/session"
	"github.com/danielballan/auth-adventures/pkg/cryptox"
	"github.com/danielballan/auth-adventures/pkg/slogx"
	"github.com/danielballan/auth-adventures/pkg/tokenx"
)

var (
	ErrAuthorizationPending = errors.New("authorization_pending")
	ErrExpiredCode          = errors.New("expired_code")
	ErrUnrecognizedCode     = errors.New("unrecognized_code")
	ErrAlreadyVerified      = errors.New("already_verified")
	ErrUntrustedAssertion   = errors.New("untrusted_assertion")
	ErrInvalidRefresh       = errors.New("invalid_refresh_token")
)

// AuthorizationService drives the device-authorization flow end to end.
type AuthorizationService struct {
	Codec      *tokenx.Codec
	Sessions   *session.Store
	Assertions assertion.Verifier

	// AuthorizationURI is the external sign-in page clients direct users to.
	AuthorizationURI string
	// VerificationURI is our endpoint the sign-in page posts user codes to.
	VerificationURI string

	DeviceTTL    time.Duration
	PollInterval time.Duration
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// BeginDeviceAuthorization opens a new pending session and returns the codes
// and polling parameters the device needs.
func (s *AuthorizationService) BeginDeviceAuthorization(ctx context.Context) (*domain.DeviceAuthorization, error) {
	l := slogx.FromContext(ctx)

	sess, err := s.Sessions.Create(s.DeviceTTL)
	if err != nil {
		return nil, fmt.Errorf("creating device session: %w", err)
	}

	l.Info("device authorization started",
		slog.String("session_id", sess.ID.String()),
		slog.String("user_code", sess.UserCode),
	)

	return &domain.DeviceAuthorization{
		UserCode:         sess.UserCode,
		DeviceCode:       sess.DeviceCode,
		AuthorizationURI: s.AuthorizationURI,
		VerificationURI:  s.VerificationURI,
		ExpiresIn:        s.DeviceTTL,
		Interval:         s.PollInterval,
	}, nil
}

// CompleteVerification checks the identity assertion and, if it holds,
// binds its subject to the pending session named by userCode. Every failure
// of the assertion itself maps to ErrUntrustedAssertion; session problems
// keep their own errors so the handler can decide how much to reveal.
func (s *AuthorizationService) CompleteVerification(ctx context.Context, userCode, rawAssertion string) error {
	l := slogx.FromContext(ctx)

	subject, err := s.Assertions.Verify(ctx, rawAssertion)
	if err != nil {
		l.Info("verification rejected: bad assertion", slog.String("user_code", userCode))
		return fmt.Errorf("%w: %v", ErrUntrustedAssertion, err)
	}

	if err := s.Sessions.MarkVerified(userCode, subject); err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			l.Info("verification rejected: unknown or expired user code", slog.String("user_code", userCode))
			return ErrUnrecognizedCode
		case errors.Is(err, session.ErrAlreadyVerified):
			l.Warn("verification rejected: user code already verified", slog.String("user_code", userCode))
			return ErrAlreadyVerified
		default:
			return err
		}
	}

	l.Info("device session verified",
		slog.String("user_code", userCode),
		slog.String("sub", subject),
	)
	return nil
}

// ExchangeDeviceCode implements the device_code grant: a verified session
// is consumed (at most once) and traded for a token pair.
func (s *AuthorizationService) ExchangeDeviceCode(ctx context.Context, deviceCode string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	fp := cryptox.FingerprintToken(deviceCode)

	sess, err := s.Sessions.Consume(deviceCode)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotVerified):
			return nil, ErrAuthorizationPending
		case errors.Is(err, session.ErrExpired):
			l.Info("device code exchange rejected: expired", slog.String("device_code_fp", fp))
			return nil, ErrExpiredCode
		case errors.Is(err, session.ErrNotFound):
			l.Info("device code exchange rejected: unrecognized", slog.String("device_code_fp", fp))
			return nil, ErrUnrecognizedCode
		default:
			return nil, err
		}
	}

	pair, err := s.mintPair(sess.Subject, sess.ID.String())
	if err != nil {
		return nil, err
	}

	l.Info("device code exchanged",
		slog.String("session_id", sess.ID.String()),
		slog.String("sub", sess.Subject),
	)
	return pair, nil
}

// Refresh implements the refresh_token grant. The refresh token must verify
// under the current key set and carry the refresh type; the new pair keeps
// the subject and session ID of the old one.
func (s *AuthorizationService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Verify(refreshToken)
	if err != nil {
		l.Info("refresh rejected", slog.String("token_fp", cryptox.FingerprintToken(refreshToken)))
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefresh, err)
	}
	if err := claims.ValidateType(tokenx.TypeRefresh); err != nil {
		l.Warn("refresh rejected: wrong token type", slog.String("sub", claims.Subject))
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefresh, err)
	}

	pair, err := s.mintPair(claims.Subject, claims.SID)
	if err != nil {
		return nil, err
	}

	l.Info("tokens refreshed",
		slog.String("session_id", claims.SID),
		slog.String("sub", claims.Subject),
	)
	return pair, nil
}

func (s *AuthorizationService) mintPair(subject, sid string) (*domain.TokenPair, error) {
	access, err := s.Codec.Mint(tokenx.NewClaims(subject, sid, tokenx.TypeAccess), s.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("minting access token: %w", err)
	}
	refresh, err := s.Codec.Mint(tokenx.NewClaims(subject, sid, tokenx.TypeRefresh), s.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("minting refresh token: %w", err)
	}
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}
