package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielballan/auth-adventures/internal/authd/domain"
	"github.com/danielballan/auth-adventures/internal/authd/service"
	"github.com/danielballan/auth-adventures/pkg/authsdk"
	"github.com/danielballan/auth-adventures/pkg/httpx"
	"github.com/danielballan/auth-adventures/pkg/slogx"
)

const grantTypeDeviceCode = "urn:ietf:params:oauth:grant-type:device_code"

// TokenHandler serves POST /v1/device/token.
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	AuthorizationService *service.AuthorizationService
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	switch r.Form.Get("grant_type") {
	case grantTypeDeviceCode:
		h.handleDeviceCodeGrant(w, r, r.Form)
	case "refresh_token":
		h.handleRefreshGrant(w, r, r.Form)
	default:
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	}
}

func (h *TokenHandler) handleDeviceCodeGrant(
	w http.ResponseWriter,
	r *http.Request,
	form url.Values,
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	deviceCode := strings.TrimSpace(form.Get("device_code"))
	if deviceCode == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.AuthorizationService.ExchangeDeviceCode(ctx, deviceCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAuthorizationPending):
			authsdk.ErrPending.WriteError(w)
		case errors.Is(err, service.ErrExpiredCode):
			authsdk.ErrExpired.WriteError(w)
		case errors.Is(err, service.ErrUnrecognizedCode):
			authsdk.ErrUnrecognized.WriteError(w)
		default:
			log.Error("device code exchange failed", "error", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	writeTokenPair(w, pair)
}

func (h *TokenHandler) handleRefreshGrant(
	w http.ResponseWriter,
	r *http.Request,
	form url.Values,
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	refreshToken := strings.TrimSpace(form.Get("refresh_token"))
	if refreshToken == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.AuthorizationService.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			authsdk.ErrInvalidRefreshToken.WriteError(w)
			return
		}
		log.Error("refresh grant failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	writeTokenPair(w, pair)
}

func writeTokenPair(w http.ResponseWriter, pair *domain.TokenPair) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}
