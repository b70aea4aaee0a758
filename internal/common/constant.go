// Package common contains shared constants and sentinel errors used across
// DocuVault components.
package common

// AuthorizationHeaderName carries the bearer access token on API requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// ShareTokenBytes is the amount of entropy in a share token.
const ShareTokenBytes = 32
