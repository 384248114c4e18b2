package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielballan/auth-adventures/pkg/httpx"
)

// OAuth2 error codes shared by the server handlers and this SDK.
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeServerError          = "server_error"
	ErrorCodeInvalidToken         = "invalid_token"

	// Device-flow poll outcomes. These are the only three reasons the token
	// endpoint will give for a failed device_code exchange; collapsing every
	// session state into them keeps the endpoint useless for probing codes.
	ErrorCodePending      = "pending"
	ErrorCodeExpired      = "expired"
	ErrorCodeUnrecognized = "unrecognized"
)

// Client-side sentinels.
var (
	// ErrReauthenticationRequired means the refresh token itself was
	// rejected. The session cannot recover; run the device flow again.
	ErrReauthenticationRequired = errors.New("authsdk: reauthentication required")

	// ErrAuthorizationTimeout means the device flow's codes expired before
	// the user completed verification.
	ErrAuthorizationTimeout = errors.New("authsdk: device authorization timed out")
)

// OAuth2Error is a standard OAuth2 error response. It is used both by the
// server (to write HTTP responses) and by this SDK (to represent errors the
// server returned).
type OAuth2Error struct {
	// StatusCode is the HTTP status code for this error.
	StatusCode int `json:"-"`

	// Code is the OAuth2 error code, e.g. "invalid_request".
	Code string `json:"error"`

	// Description is a human-readable description of the error.
	Description string `json:"error_description"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this OAuth2Error to an HTTP response writer.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

var (
	// ErrInvalidRequest is returned when the request is missing a required
	// parameter, includes an invalid value, or is otherwise malformed.
	ErrInvalidRequest = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrUnsupportedGrantType is returned when the grant type is not one
	// the token endpoint supports.
	ErrUnsupportedGrantType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedGrantType,
		Description: "grant type not supported",
	}

	// ErrServerError is returned for unexpected internal failures.
	ErrServerError = &OAuth2Error{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	// ErrInvalidContentType is returned when the token endpoint is called
	// with anything other than application/x-www-form-urlencoded.
	ErrInvalidContentType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "content-type must be application/x-www-form-urlencoded",
	}

	// ErrInvalidFormBody is returned when the form body cannot be parsed.
	ErrInvalidFormBody = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "invalid form body",
	}

	// ErrPending is returned while the user has not yet completed
	// verification; the device should keep polling.
	ErrPending = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodePending,
		Description: "authorization is pending user verification",
	}

	// ErrExpired is returned when the device code's validity window has
	// passed.
	ErrExpired = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeExpired,
		Description: "the device code has expired",
	}

	// ErrUnrecognized is returned when the device code was never issued or
	// has already been exchanged.
	ErrUnrecognized = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnrecognized,
		Description: "the device code is not recognized",
	}

	// ErrInvalidRefreshToken is returned when a refresh_token grant carries
	// a token that does not verify or is not a refresh token.
	ErrInvalidRefreshToken = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidGrant,
		Description: "the refresh token is invalid or expired",
	}
)

// parseErrorResponse turns a non-2xx HTTP response into a typed error.
// Returns nil for 2xx responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

// errorCodeIs reports whether err is an OAuth2Error with the given code.
func errorCodeIs(err error, code string) bool {
	var oe *OAuth2Error
	return errors.As(err, &oe) && oe.Code == code
}
