// Package notes stores notes in PostgreSQL. Writes are last-writer-wins on
// dt_modify.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/dbx"
	"github.com/dmitrijs2005/codexnotes/internal/server/models"
)

const noteColumns = `n.id, n.folder_id, n.author_id, n.title, n.content, n.editor_version, n.dt_create, n.dt_modify, n.is_removed`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanNote(row interface{ Scan(...any) error }, n *models.Note) error {
	return row.Scan(&n.ID, &n.FolderID, &n.AuthorID, &n.Title, &n.Content, &n.EditorVersion,
		&n.DtCreate, &n.DtModify, &n.IsRemoved)
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes n WHERE n.id = $1`

	n := &models.Note{}
	if err := scanNote(r.db.QueryRowContext(ctx, query, id), n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Upsert writes n unless the stored row is newer and reports whether it did.
// The author of an existing note is kept.
func (r *PostgresRepository) Upsert(ctx context.Context, n *models.Note) (bool, error) {
	query :=
		`INSERT INTO notes (id, folder_id, author_id, title, content, editor_version, dt_create, dt_modify, is_removed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		   folder_id = EXCLUDED.folder_id,
		   title = EXCLUDED.title,
		   content = EXCLUDED.content,
		   editor_version = EXCLUDED.editor_version,
		   dt_modify = EXCLUDED.dt_modify,
		   is_removed = EXCLUDED.is_removed
		 WHERE notes.dt_modify <= EXCLUDED.dt_modify
		 RETURNING dt_modify
		 `

	var stored int64
	err := r.db.QueryRowContext(ctx, query,
		n.ID, n.FolderID, n.AuthorID, n.Title, n.Content, n.EditorVersion, n.DtCreate, n.DtModify, n.IsRemoved).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

// ListVisible returns the notes of every folder userID may see, tombstones
// included.
func (r *PostgresRepository) ListVisible(ctx context.Context, userID string) ([]models.Note, error) {
	query :=
		`SELECT ` + noteColumns + ` FROM notes n
		 JOIN folders f ON f.id = n.folder_id
		 WHERE f.owner_id = $1
		    OR EXISTS (SELECT 1 FROM collaborators c WHERE c.folder_id = f.id AND c.user_id = $1)
		 ORDER BY n.dt_create, n.id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		if err := scanNote(rows, &n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
