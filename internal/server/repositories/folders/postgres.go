// Package folders stores folders in PostgreSQL. Writes are last-writer-wins
// on dt_modify.
package folders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/dbx"
	"github.com/dmitrijs2005/codexnotes/internal/server/models"
)

const folderColumns = `f.id, f.owner_id, f.title, f.is_root, f.dt_create, f.dt_modify, f.is_removed`

// visibleTo matches folders owned by $1 or shared with $1 through an
// accepted invitation.
const visibleTo = `(f.owner_id = $1 OR EXISTS (SELECT 1 FROM collaborators c WHERE c.folder_id = f.id AND c.user_id = $1))`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanFolder(row interface{ Scan(...any) error }, f *models.Folder) error {
	return row.Scan(&f.ID, &f.OwnerID, &f.Title, &f.IsRoot, &f.DtCreate, &f.DtModify, &f.IsRemoved)
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders f WHERE f.id = $1`
	return r.getOne(ctx, query, id)
}

// FindLiveRoot returns the owner's root folder that is not tombstoned.
func (r *PostgresRepository) FindLiveRoot(ctx context.Context, ownerID string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders f WHERE f.owner_id = $1 AND f.is_root AND NOT f.is_removed`
	return r.getOne(ctx, query, ownerID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query, arg string) (*models.Folder, error) {
	f := &models.Folder{}
	if err := scanFolder(r.db.QueryRowContext(ctx, query, arg), f); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// Upsert writes f unless the stored row is newer. It reports whether the
// row was written. The owner of an existing folder never changes.
func (r *PostgresRepository) Upsert(ctx context.Context, f *models.Folder) (bool, error) {
	query :=
		`INSERT INTO folders (id, owner_id, title, is_root, dt_create, dt_modify, is_removed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   is_root = EXCLUDED.is_root,
		   dt_modify = EXCLUDED.dt_modify,
		   is_removed = EXCLUDED.is_removed
		 WHERE folders.dt_modify <= EXCLUDED.dt_modify
		 RETURNING dt_modify
		 `

	var stored int64
	err := r.db.QueryRowContext(ctx, query,
		f.ID, f.OwnerID, f.Title, f.IsRoot, f.DtCreate, f.DtModify, f.IsRemoved).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

// ListVisible returns every folder userID may see, tombstones included.
func (r *PostgresRepository) ListVisible(ctx context.Context, userID string) ([]models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders f WHERE ` + visibleTo + ` ORDER BY f.dt_create, f.id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Folder
	for rows.Next() {
		var f models.Folder
		if err := scanFolder(rows, &f); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// CanAccess reports whether userID owns folderID or collaborates on it.
func (r *PostgresRepository) CanAccess(ctx context.Context, folderID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM folders f WHERE f.id = $2 AND ` + visibleTo + `)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, userID, folderID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
