// Package collaborators stores folder invitations in PostgreSQL.
package collaborators

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/codexnotes/internal/dbx"
	"github.com/dmitrijs2005/codexnotes/internal/server/models"
)

const collaboratorColumns = `c.id, c.folder_id, c.email, c.token_hash, COALESCE(c.user_id, ''), c.dt_invite`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert records an invitation. Inviting again under the same id replaces
// the token while the invitation is still pending; a redeemed one is left
// alone and Upsert reports false.
func (r *PostgresRepository) Upsert(ctx context.Context, c *models.Collaborator) (bool, error) {
	query :=
		`INSERT INTO collaborators (id, folder_id, email, token_hash, dt_invite)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   email = EXCLUDED.email,
		   token_hash = EXCLUDED.token_hash,
		   dt_invite = EXCLUDED.dt_invite
		 WHERE collaborators.user_id IS NULL AND collaborators.folder_id = EXCLUDED.folder_id
		 `

	n, err := dbx.ExecAffected(ctx, r.db, query, c.ID, c.FolderID, c.Email, c.TokenHash, c.DtInvite)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// ListPendingByEmail returns unredeemed invitations for email, compared
// case-insensitively.
func (r *PostgresRepository) ListPendingByEmail(ctx context.Context, email string) ([]models.Collaborator, error) {
	query :=
		`SELECT ` + collaboratorColumns + ` FROM collaborators c
		 WHERE lower(c.email) = lower($1) AND c.user_id IS NULL
		 ORDER BY c.dt_invite DESC
		 `
	return r.list(ctx, query, email)
}

// Accept binds a pending invitation to userID. It reports false when the
// invitation was redeemed in the meantime.
func (r *PostgresRepository) Accept(ctx context.Context, id, userID string) (bool, error) {
	query := `UPDATE collaborators SET user_id = $2 WHERE id = $1 AND user_id IS NULL`

	n, err := dbx.ExecAffected(ctx, r.db, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

// ListVisible returns the invitations of every folder userID may see.
func (r *PostgresRepository) ListVisible(ctx context.Context, userID string) ([]models.Collaborator, error) {
	query :=
		`SELECT ` + collaboratorColumns + ` FROM collaborators c
		 JOIN folders f ON f.id = c.folder_id
		 WHERE f.owner_id = $1
		    OR EXISTS (SELECT 1 FROM collaborators m WHERE m.folder_id = f.id AND m.user_id = $1)
		 ORDER BY c.dt_invite, c.id
		 `
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg string) ([]models.Collaborator, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Collaborator
	for rows.Next() {
		var c models.Collaborator
		if err := rows.Scan(&c.ID, &c.FolderID, &c.Email, &c.TokenHash, &c.UserID, &c.DtInvite); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
