package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/dmitrijs2005/docuvault/internal/dbx"
	"github.com/dmitrijs2005/docuvault/internal/server/models"
)

const selectColumns = `id, token, owner_id, document_id, document_name, storage_path, download_url,
		        recipient_email, recipient_name, message, expiry_date, allow_view, allow_download,
		        status, access_count, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, link *models.ShareLink) (*models.ShareLink, error) {
	query :=
		`INSERT INTO shares (token, owner_id, document_id, document_name, storage_path, download_url,
		                     recipient_email, recipient_name, message, expiry_date, allow_view, allow_download,
		                     status, access_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at`

	var url sql.NullString
	if link.DownloadURL != nil {
		url = sql.NullString{String: *link.DownloadURL, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		link.Token, link.OwnerID, link.DocumentID, link.DocumentName, link.StoragePath, url,
		link.RecipientEmail, link.RecipientName, link.Message, link.ExpiryDate, link.AllowView, link.AllowDownload,
		string(link.Status), link.AccessCount,
	).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}

func (r *PostgresRepository) FindActiveByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	query := `SELECT ` + selectColumns + ` FROM shares WHERE token = $1 AND status = 'active'`

	link, err := scanShare(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}

// IncrementAccessCount bumps the counter in a single statement and returns
// the new value.
func (r *PostgresRepository) IncrementAccessCount(ctx context.Context, id string) (int64, error) {
	query := `UPDATE shares SET access_count = access_count + 1 WHERE id = $1 RETURNING access_count`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, ownerID, id string) error {
	query := `UPDATE shares SET status = 'revoked' WHERE owner_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.ShareLink, error) {
	query := `SELECT ` + selectColumns + ` FROM shares WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.ShareLink
	for rows.Next() {
		link, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM shares WHERE owner_id = $1`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShare(s scanner) (*models.ShareLink, error) {
	link := &models.ShareLink{}
	var (
		url    sql.NullString
		status string
	)
	err := s.Scan(
		&link.ID, &link.Token, &link.OwnerID, &link.DocumentID, &link.DocumentName, &link.StoragePath, &url,
		&link.RecipientEmail, &link.RecipientName, &link.Message, &link.ExpiryDate, &link.AllowView, &link.AllowDownload,
		&status, &link.AccessCount, &link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if url.Valid {
		link.DownloadURL = &url.String
	}
	link.Status = models.ShareStatus(status)
	return link, nil
}
