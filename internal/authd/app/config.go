package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danielballan/auth-adventures/pkg/tokenx"
)

type Config struct {
	Issuer      string // Required: issuer claim for tokens we mint
	SigningKeys string // Optional: semicolon-separated signing secrets, newest first (ephemeral key if unset)

	IdentityIssuer   string // Required: issuer URL of the external identity provider
	IdentityAudience string // Required: audience our verification endpoint expects in assertions
	IdentityJWKSURI  string // Optional: JWKS endpoint, skips OIDC discovery when set

	BaseURL          string // Base URL this service is reachable at (default: http://localhost:{port})
	AuthorizationURI string // Sign-in page users are sent to (default: {base}/signin)

	DeviceTTL    time.Duration // Device code validity window (default: 15m)
	PollInterval time.Duration // Minimum delay between token polls (default: 5s)
	AccessTTL    time.Duration // Access token lifetime
	RefreshTTL   time.Duration // Refresh token lifetime

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:      getEnvOrDefault("AUTH_ISSUER", "auth-adventures"),
		SigningKeys: os.Getenv("AUTH_SIGNING_KEYS"),

		IdentityIssuer:   os.Getenv("IDENTITY_ISSUER"),
		IdentityAudience: os.Getenv("IDENTITY_AUDIENCE"),
		IdentityJWKSURI:  os.Getenv("IDENTITY_JWKS_URI"),

		BaseURL:          os.Getenv("BASE_URL"),
		AuthorizationURI: os.Getenv("AUTHORIZATION_URI"),

		DeviceTTL:    getEnvDurationOrDefault("DEVICE_CODE_TTL", 15*time.Minute),
		PollInterval: getEnvDurationOrDefault("DEVICE_POLL_INTERVAL", 5*time.Second),
		AccessTTL:    getEnvDurationOrDefault("ACCESS_TOKEN_TTL", tokenx.DefaultAccessTokenTTL),
		RefreshTTL:   getEnvDurationOrDefault("REFRESH_TOKEN_TTL", tokenx.DefaultRefreshTokenTTL),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + strconv.Itoa(cfg.Port)
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.AuthorizationURI == "" {
		cfg.AuthorizationURI = cfg.BaseURL + "/signin"
	}

	return cfg
}

// SigningSecrets splits the configured key list. The first entry signs new
// tokens; the rest still verify, which is what makes rotation painless.
func (c Config) SigningSecrets() []string {
	if c.SigningKeys == "" {
		return nil
	}
	var secrets []string
	for _, s := range strings.Split(c.SigningKeys, ";") {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}
	return secrets
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
