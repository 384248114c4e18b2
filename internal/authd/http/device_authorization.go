package http

import (
	"net/http"

	"github.com/danielballan/auth-adventures/internal/authd/service"
	"github.com/danielballan/auth-adventures/pkg/authsdk"
	"github.com/danielballan/auth-adventures/pkg/httpx"
	"github.com/danielballan/auth-adventures/pkg/slogx"
)

// DeviceAuthorizationHandler serves POST /v1/device/authorize. It opens a
// new device flow; no authentication is required since the caller has
// nothing yet.
type DeviceAuthorizationHandler struct {
	AuthorizationService *service.AuthorizationService
}

func (h *DeviceAuthorizationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	auth, err := h.AuthorizationService.BeginDeviceAuthorization(ctx)
	if err != nil {
		log.Error("failed to begin device authorization", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.DeviceAuthorizationResponse{
		UserCode:         auth.UserCode,
		DeviceCode:       auth.DeviceCode,
		AuthorizationURI: auth.AuthorizationURI,
		VerificationURI:  auth.VerificationURI,
		ExpiresIn:        int(auth.ExpiresIn.Seconds()),
		Interval:         int(auth.Interval.Seconds()),
	})
}
