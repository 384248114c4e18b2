// Package app assembles the authorization service: configuration, signing
// keys, the assertion verifier, services, and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielballan/auth-adventures/internal/authd/assertion"
	httpapi "github.com/danielballan/auth-adventures/internal/authd/http"
	"github.com/danielballan/auth-adventures/internal/authd/service"
	"github.com/danielballan/auth-adventures/internal/authd/session"
	"github.com/danielballan/auth-adventures/pkg/cryptox"
	"github.com/danielballan/auth-adventures/pkg/slogx"
	"github.com/danielballan/auth-adventures/pkg/tokenx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the authorization service with all its
// dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	codec      *tokenx.Codec
	assertions assertion.Verifier
	sessions   *session.Store

	authorizationService *service.AuthorizationService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initCodec(); err != nil {
		return nil, err
	}
	if err := app.initAssertions(ctx); err != nil {
		return nil, err
	}

	app.sessions = session.NewStore()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("authorization service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down authorization service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.logger.Info("authorization service stopped")
	return nil
}

// initCodec builds the token codec from the configured signing secrets.
// With no secrets configured a random ephemeral key is generated; every
// restart then invalidates all outstanding tokens, which is fine for dev.
func (app *Application) initCodec() error {
	secrets := app.cfg.SigningSecrets()
	if len(secrets) == 0 {
		ephemeral, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return fmt.Errorf("failed to generate ephemeral signing key: %w", err)
		}
		secrets = []string{ephemeral}
		app.logger.Warn("no signing keys configured, using an ephemeral key; tokens will not survive restarts")
	}

	keys := make([]tokenx.Key, 0, len(secrets))
	for _, secret := range secrets {
		// Key IDs are derived from the secret so they stay stable however
		// the list is ordered across deployments.
		keys = append(keys, tokenx.Key{
			ID:     cryptox.FingerprintToken(secret)[:8],
			Secret: []byte(secret),
		})
	}

	codec, err := tokenx.NewCodec(app.cfg.Issuer, keys)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec
	app.logger.Info("token codec initialized", "keys", codec.NumKeys())
	return nil
}

func (app *Application) initAssertions(ctx context.Context) error {
	if app.cfg.IdentityIssuer == "" {
		return fmt.Errorf("IDENTITY_ISSUER is required")
	}

	acfg := assertion.Config{
		Issuer:   app.cfg.IdentityIssuer,
		Audience: app.cfg.IdentityAudience,
	}

	var (
		verifier assertion.Verifier
		err      error
	)
	if app.cfg.IdentityJWKSURI != "" {
		verifier, err = assertion.NewStatic(ctx, acfg, app.cfg.IdentityJWKSURI)
	} else {
		verifier, err = assertion.NewFromDiscovery(ctx, acfg)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize assertion verifier: %w", err)
	}

	app.assertions = verifier
	return nil
}

func (app *Application) initServices() {
	app.authorizationService = &service.AuthorizationService{
		Codec:            app.codec,
		Sessions:         app.sessions,
		Assertions:       app.assertions,
		AuthorizationURI: app.cfg.AuthorizationURI,
		VerificationURI:  app.cfg.BaseURL + "/v1/device/verify",
		DeviceTTL:        app.cfg.DeviceTTL,
		PollInterval:     app.cfg.PollInterval,
		AccessTTL:        app.cfg.AccessTTL,
		RefreshTTL:       app.cfg.RefreshTTL,
	}
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.codec, BuildVersion, app.logger)
	router.AuthorizationService = app.authorizationService
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: router,
	}
}
