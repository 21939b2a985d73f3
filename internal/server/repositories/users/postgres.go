// Package users stores backend accounts in PostgreSQL.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/dbx"
	"github.com/dmitrijs2005/codexnotes/internal/server/models"
)

const userColumns = `id, COALESCE(google_id, ''), name, email, photo, dt_reg, dt_modify`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert creates the user or refreshes its profile. An empty GoogleID keeps
// the stored one. DtReg is preserved on update.
func (r *PostgresRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, google_id, name, email, photo, dt_reg, dt_modify)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   google_id = COALESCE(EXCLUDED.google_id, users.google_id),
		   name = EXCLUDED.name,
		   email = EXCLUDED.email,
		   photo = EXCLUDED.photo,
		   dt_modify = EXCLUDED.dt_modify
		 RETURNING dt_reg, dt_modify
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.GoogleID, user.Name, user.Email, user.Photo, user.DtModify).Scan(&user.DtReg, &user.DtModify)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE google_id = $1`
	return r.getOne(ctx, query, googleID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.GoogleID, &u.Name, &u.Email, &u.Photo, &u.DtReg, &u.DtModify)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// ListRelated returns userID itself and everyone who owns, wrote in or
// collaborates on a folder visible to userID.
func (r *PostgresRepository) ListRelated(ctx context.Context, userID string) ([]models.User, error) {
	query :=
		`WITH visible AS (
		   SELECT f.id, f.owner_id FROM folders f
		   WHERE f.owner_id = $1
		      OR EXISTS (SELECT 1 FROM collaborators c WHERE c.folder_id = f.id AND c.user_id = $1)
		 )
		 SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		    OR id IN (SELECT owner_id FROM visible)
		    OR id IN (SELECT n.author_id FROM notes n JOIN visible v ON v.id = n.folder_id)
		    OR id IN (SELECT c.user_id FROM collaborators c JOIN visible v ON v.id = c.folder_id WHERE c.user_id IS NOT NULL)
		 ORDER BY id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.GoogleID, &u.Name, &u.Email, &u.Photo, &u.DtReg, &u.DtModify); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
