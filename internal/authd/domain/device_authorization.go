package domain

import "time"

// DeviceAuthorization is the result of starting a device flow: the codes
// the client needs plus where to send the user and how fast to poll.
type DeviceAuthorization struct {
	UserCode         string        // short code the user types on the verification page
	DeviceCode       string        // opaque code the device polls the token endpoint with
	AuthorizationURI string        // page where the user signs in
	VerificationURI  string        // endpoint the verification page posts the user code to
	ExpiresIn        time.Duration // how long the codes stay valid
	Interval         time.Duration // minimum delay between polls
}
