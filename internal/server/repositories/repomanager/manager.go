// Package repomanager builds the repositories the services work with, either
// on the pool or inside a transaction, and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/codexnotes/internal/dbx"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/collaborators"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/folders"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/notes"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Folders(db dbx.DBTX) folders.Repository
	Notes(db dbx.DBTX) notes.Repository
	Collaborators(db dbx.DBTX) collaborators.Repository
}
