package authsdk

// TokenResponse is the token endpoint's success payload for both the
// device_code and refresh_token grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"` // "Bearer"
	ExpiresIn    int    `json:"expires_in"` // seconds until the access token expires
}

// DeviceAuthorizationResponse is what the device authorization endpoint
// returns when a new flow is opened.
type DeviceAuthorizationResponse struct {
	// UserCode is the short code the user types on the sign-in page.
	UserCode string `json:"user_code"`

	// DeviceCode is the opaque code this device polls the token endpoint with.
	// Treat it as a secret.
	DeviceCode string `json:"device_code"`

	// AuthorizationURI is where to send the user to sign in.
	AuthorizationURI string `json:"authorization_uri"`

	// VerificationURI is the endpoint the sign-in page submits the user code to.
	VerificationURI string `json:"verification_uri"`

	// ExpiresIn is how many seconds the codes stay valid.
	ExpiresIn int `json:"expires_in"`

	// Interval is the minimum number of seconds to wait between polls.
	Interval int `json:"interval"`
}

// HealthResponse is returned by the /livez and /readyz probes.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// ErrorResponse is the standard OAuth2-style error payload.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
