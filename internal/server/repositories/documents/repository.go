// Package documents stores per-owner document metadata.
package documents

import (
	"context"

	"github.com/dmitrijs2005/docuvault/internal/server/models"
)

// Repository is owner-scoped: every lookup and delete takes the owner id, so
// one user can never reach another user's rows.
type Repository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	Get(ctx context.Context, ownerID, id string) (*models.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Document, error)
	// Delete removes the row and returns its storage path. A missing row
	// yields ("", false, nil).
	Delete(ctx context.Context, ownerID, id string) (storagePath string, found bool, err error)
	DeleteByStoragePath(ctx context.Context, ownerID, storagePath string) error
	Stats(ctx context.Context, ownerID string) (*models.DocumentStats, error)
}
