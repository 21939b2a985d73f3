package users

import (
	"context"

	"github.com/dmitrijs2005/codexnotes/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	ListRelated(ctx context.Context, userID string) ([]models.User, error)
}
