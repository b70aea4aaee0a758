package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docuvault/internal/dbx"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/shares"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same service
// code runs against the pool or inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Documents(db dbx.DBTX) documents.Repository
	Shares(db dbx.DBTX) shares.Repository
}
