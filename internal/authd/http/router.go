// Package http wires the authorization service to its HTTP surface.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielballan/auth-adventures/internal/authd/service"
	"github.com/danielballan/auth-adventures/pkg/httpx"
	"github.com/danielballan/auth-adventures/pkg/slogx"
	"github.com/danielballan/auth-adventures/pkg/tokenx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     tokenx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	AuthorizationService *service.AuthorizationService
}

func NewRouter(verifier tokenx.Verifier, buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerDeviceFlow()
	r.registerData()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerDeviceFlow() {
	authorizeHandler := &DeviceAuthorizationHandler{
		AuthorizationService: r.AuthorizationService,
	}
	tokenHandler := &TokenHandler{
		AuthorizationService: r.AuthorizationService,
	}
	verifyHandler := &VerifyHandler{
		AuthorizationService: r.AuthorizationService,
	}

	// POST /v1/device/authorize - moderate: one call per device flow
	r.Mux.Handle("POST /v1/device/authorize",
		httpx.Chain(authorizeHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /v1/device/token - lenient: devices poll this while pending
	r.Mux.Handle("POST /v1/device/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /v1/device/verify - strict: user codes are short enough to guess
	r.Mux.Handle("POST /v1/device/verify",
		httpx.Chain(verifyHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerData() {
	r.Mux.Handle("GET /v1/data",
		httpx.Chain(&DataHandler{},
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.AuthorizationService))
}
