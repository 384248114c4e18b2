package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BeginDeviceAuthorization opens a new device-authorization flow. Display
// the returned UserCode and AuthorizationURI to the user, then call
// WaitForDeviceAuthorization to poll for the result.
func (c *SDKClient) BeginDeviceAuthorization(ctx context.Context) (*DeviceAuthorizationResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.BaseURL+"/v1/device/authorize",
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if err := parseErrorResponse(resp, body); err != nil {
		return nil, err
	}

	var auth DeviceAuthorizationResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if auth.DeviceCode == "" || auth.UserCode == "" {
		return nil, fmt.Errorf("device authorization response missing codes")
	}

	return &auth, nil
}

// WaitForDeviceAuthorization polls the token endpoint until the user
// completes verification, the codes expire, or ctx is done.
//
// While the server reports "pending" the poll continues at the interval the
// server asked for. "expired" and "unrecognized" are terminal; expiry of
// the overall window returns ErrAuthorizationTimeout.
func (c *SDKClient) WaitForDeviceAuthorization(
	ctx context.Context,
	auth *DeviceAuthorizationResponse,
) (*Session, error) {
	interval := time.Duration(auth.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second)

	for {
		tok, err := c.deviceCodeGrant(ctx, auth.DeviceCode)
		if err == nil {
			return newSession(c, tok), nil
		}

		switch {
		case errorCodeIs(err, ErrorCodePending):
			// keep polling
		case errorCodeIs(err, ErrorCodeExpired):
			return nil, ErrAuthorizationTimeout
		default:
			return nil, err
		}

		if time.Now().Add(interval).After(deadline) {
			return nil, ErrAuthorizationTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// AuthenticateWithDeviceFlow runs the whole device flow: it opens the flow,
// hands the authorization details to prompt (which should display them to
// the user), and blocks until verification completes or fails.
func (c *SDKClient) AuthenticateWithDeviceFlow(
	ctx context.Context,
	prompt func(*DeviceAuthorizationResponse),
) (*Session, error) {
	auth, err := c.BeginDeviceAuthorization(ctx)
	if err != nil {
		return nil, err
	}
	if prompt != nil {
		prompt(auth)
	}
	return c.WaitForDeviceAuthorization(ctx, auth)
}

func (c *SDKClient) deviceCodeGrant(ctx context.Context, deviceCode string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		"device_code": {deviceCode},
	}
	return c.requestToken(ctx, data)
}

// requestToken posts a form to the token endpoint and decodes the result.
func (c *SDKClient) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.BaseURL+"/v1/device/token",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if err := parseErrorResponse(resp, body); err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &tok, nil
}
