// Package services contains server-side business logic. UserService keeps
// the accounts behind identity tokens; NotesService serves the sync graph,
// last-writer-wins mutations and folder sharing.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/codexnotes/internal/auth"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/server/models"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/codexnotes/internal/timex"
	"github.com/google/uuid"
)

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       timex.Clock
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, clock timex.Clock) *UserService {
	if clock == nil {
		clock = timex.System
	}
	return &UserService{db: db, repomanager: m, clock: clock}
}

// Ensure makes sure the account named by an identity token exists and
// carries the token's profile. Unchanged accounts are not rewritten.
func (s *UserService) Ensure(ctx context.Context, id auth.Identity) (*models.User, error) {
	if id.UserID == "" {
		return nil, common.NewValidationError("user_id", "missing")
	}
	repo := s.repomanager.Users(s.db)

	u, err := repo.Get(ctx, id.UserID)
	switch {
	case err == nil:
		if sameProfile(u, id) {
			return u, nil
		}
	case !errors.Is(err, common.ErrNotFound):
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	return s.save(ctx, id)
}

// Resolve maps an external account to a backend user, creating one on first
// login, and returns the identity to put into a token.
func (s *UserService) Resolve(ctx context.Context, googleID, name, email, photo string) (auth.Identity, error) {
	if googleID == "" {
		return auth.Identity{}, common.NewValidationError("google_id", "missing")
	}
	id := auth.Identity{GoogleID: googleID, Name: name, Email: email, Photo: photo}

	u, err := s.repomanager.Users(s.db).GetByGoogleID(ctx, googleID)
	switch {
	case err == nil:
		id.UserID = u.ID
	case errors.Is(err, common.ErrNotFound):
		id.UserID = uuid.NewString()
	default:
		return auth.Identity{}, fmt.Errorf("error loading user: %w", err)
	}

	if _, err := s.save(ctx, id); err != nil {
		return auth.Identity{}, err
	}
	return id, nil
}

func (s *UserService) save(ctx context.Context, id auth.Identity) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).Upsert(ctx, &models.User{
		ID:       id.UserID,
		GoogleID: id.GoogleID,
		Name:     id.Name,
		Email:    id.Email,
		Photo:    id.Photo,
		DtModify: s.clock.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("error saving user: %w", err)
	}
	return u, nil
}

func sameProfile(u *models.User, id auth.Identity) bool {
	return u.Name == id.Name && u.Email == id.Email && u.Photo == id.Photo &&
		(id.GoogleID == "" || u.GoogleID == id.GoogleID)
}
