package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/codexnotes/internal/dbx"
	"github.com/dmitrijs2005/codexnotes/internal/server/migrations"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/collaborators"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/folders"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/notes"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// postgresManager hands out Postgres repositories bound to a connection or a
// transaction.
type postgresManager struct{}

func (postgresManager) Users(db dbx.DBTX) users.Repository { return users.NewPostgresRepository(db) }
func (postgresManager) Folders(db dbx.DBTX) folders.Repository {
	return folders.NewPostgresRepository(db)
}
func (postgresManager) Notes(db dbx.DBTX) notes.Repository { return notes.NewPostgresRepository(db) }
func (postgresManager) Collaborators(db dbx.DBTX) collaborators.Repository {
	return collaborators.NewPostgresRepository(db)
}

// migrate applies pending migrations and reports how many ran. Replaced in
// tests.
var migrate = func(ctx context.Context, db *sql.DB) (int, error) {
	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.Migrations)
	if err != nil {
		return 0, err
	}
	res, err := p.Up(ctx)
	return len(res), err
}

// RunMigrations brings the schema up to date.
func (postgresManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// NewPostgresRepositoryManager returns the manager used by the server.
func NewPostgresRepositoryManager() RepositoryManager {
	return postgresManager{}
}
