// Package authsdk is the client SDK for the authorization service.
//
// It covers the full device-authorization flow and steady-state API use:
//
//	client := authsdk.NewSDKClient("https://auth.example.com")
//
//	auth, err := client.BeginDeviceAuthorization(ctx)
//	// show auth.UserCode and auth.AuthorizationURI to the user...
//
//	session, err := client.WaitForDeviceAuthorization(ctx, auth)
//	// from here Session.Do attaches the access token and transparently
//	// refreshes it when the server answers 401.
//
// Error codes returned by the server's token endpoint are shared between
// this package and the server handlers so both sides agree on the wire
// format.
package authsdk
