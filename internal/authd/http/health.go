package http

import (
	"net/http"
	"time"

	"github.com/danielballan/auth-adventures/internal/authd/service"
	"github.com/danielballan/auth-adventures/pkg/authsdk"
	"github.com/danielballan/auth-adventures/pkg/httpx"
)

// LivezHandler always answers 200 while the process is up.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler reports whether the service can actually issue tokens.
func ReadyzHandler(startTime time.Time, version string, svc *service.AuthorizationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK

		if svc == nil || svc.Codec == nil || svc.Codec.NumKeys() == 0 {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}
