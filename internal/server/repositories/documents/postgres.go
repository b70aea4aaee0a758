package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/dmitrijs2005/docuvault/internal/dbx"
	"github.com/dmitrijs2005/docuvault/internal/server/models"
)

const selectColumns = `id, owner_id, name, type, size, content_type, storage_path, download_url, status, upload_date`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	query :=
		`INSERT INTO documents (owner_id, name, type, size, content_type, storage_path, download_url, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, upload_date`

	if doc.Status == "" {
		doc.Status = models.DocumentStatusUploaded
	}

	err := r.db.QueryRowContext(ctx, query,
		doc.OwnerID, doc.Name, string(doc.Type), doc.Size, doc.ContentType, doc.StoragePath, doc.DownloadURL, doc.Status,
	).Scan(&doc.ID, &doc.UploadDate)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID, id string) (*models.Document, error) {
	query := `SELECT ` + selectColumns + ` FROM documents WHERE owner_id = $1 AND id = $2`

	d, err := scanDocument(r.db.QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Document, error) {
	query := `SELECT ` + selectColumns + ` FROM documents WHERE owner_id = $1 ORDER BY upload_date DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) (string, bool, error) {
	query := `DELETE FROM documents WHERE owner_id = $1 AND id = $2 RETURNING storage_path`

	var path string
	err := r.db.QueryRowContext(ctx, query, ownerID, id).Scan(&path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("db error: %w", err)
	}
	return path, true, nil
}

func (r *PostgresRepository) DeleteByStoragePath(ctx context.Context, ownerID, storagePath string) error {
	query := `DELETE FROM documents WHERE owner_id = $1 AND storage_path = $2`
	if _, err := r.db.ExecContext(ctx, query, ownerID, storagePath); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Stats counts documents and bytes. SharedDocuments is left to the shares
// repository.
func (r *PostgresRepository) Stats(ctx context.Context, ownerID string) (*models.DocumentStats, error) {
	query :=
		`SELECT count(*),
		        count(*) FILTER (WHERE status = 'verified'),
		        COALESCE(sum(size), 0)
		 FROM documents WHERE owner_id = $1`

	s := &models.DocumentStats{}
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&s.TotalDocuments, &s.VerifiedDocuments, &s.StorageUsedBytes); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.Document, error) {
	d := &models.Document{}
	var typ string
	if err := s.Scan(&d.ID, &d.OwnerID, &d.Name, &typ, &d.Size, &d.ContentType, &d.StoragePath, &d.DownloadURL, &d.Status, &d.UploadDate); err != nil {
		return nil, err
	}
	d.Type = models.DocumentType(typ)
	return d, nil
}
