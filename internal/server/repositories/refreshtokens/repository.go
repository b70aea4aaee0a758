// Package refreshtokens persists the refresh tokens that back API sessions.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docuvault/internal/server/models"
)

// Repository issues, consumes and revokes refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID that expires after validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Consume deletes the token and returns the row it removed, so a token can
	// be exchanged at most once. A missing token yields common.ErrorNotFound.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a single token. Deleting a missing token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUser drops every session of userID, e.g. after a password change.
	DeleteByUser(ctx context.Context, userID string) error
}
