// Package common defines shared constants and sentinel errors used across
// the vault server and the mail relay. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	// Validation errors. ValidationError matches ErrValidation.
	ErrValidation = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrTooManyAttempts     = errors.New("too many attempts")

	// Share resolution errors.
	ErrShareExpired = errors.New("share link expired")
	ErrShareRevoked = errors.New("share link revoked")

	// Mail relay errors. Callers on the share path swallow these.
	ErrTransport = errors.New("mail transport failure")
)
