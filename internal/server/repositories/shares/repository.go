// Package shares persists share links.
package shares

import (
	"context"

	"github.com/dmitrijs2005/docuvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, link *models.ShareLink) (*models.ShareLink, error)
	// FindActiveByToken matches the exact token among active links only, so
	// revoked and unknown tokens both yield common.ErrorNotFound.
	FindActiveByToken(ctx context.Context, token string) (*models.ShareLink, error)
	IncrementAccessCount(ctx context.Context, id string) (int64, error)
	Revoke(ctx context.Context, ownerID, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]*models.ShareLink, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}
