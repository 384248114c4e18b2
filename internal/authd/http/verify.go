package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/danielballan/auth-adventures/internal/authd/service"
	"github.com/danielballan/auth-adventures/pkg/authsdk"
	"github.com/danielballan/auth-adventures/pkg/httpx"
	"github.com/danielballan/auth-adventures/pkg/slogx"
)

// VerifyHandler serves POST /v1/device/verify. The sign-in page posts the
// user code the user typed plus an identity assertion from the external
// provider.
//
// Verification failures all collapse to a single 401 so the endpoint leaks
// nothing about which user codes exist or have been verified already.
type VerifyHandler struct {
	AuthorizationService *service.AuthorizationService
}

type verifyRequest struct {
	UserCode string `json:"user_code"`
	IDToken  string `json:"id_token"`
}

func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	req.UserCode = strings.ToUpper(strings.TrimSpace(req.UserCode))
	if req.UserCode == "" || req.IDToken == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	err := h.AuthorizationService.CompleteVerification(ctx, req.UserCode, req.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUntrustedAssertion),
			errors.Is(err, service.ErrUnrecognizedCode),
			errors.Is(err, service.ErrAlreadyVerified):
			writeVerificationDenied(w)
		default:
			log.Error("verification failed", "error", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func writeVerificationDenied(w http.ResponseWriter) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
		Error:            "verification_denied",
		ErrorDescription: "the user code or identity assertion was not accepted",
	})
}
