package collaborators

import (
	"context"

	"github.com/dmitrijs2005/codexnotes/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, c *models.Collaborator) (bool, error)
	ListPendingByEmail(ctx context.Context, email string) ([]models.Collaborator, error)
	Accept(ctx context.Context, id, userID string) (bool, error)
	ListVisible(ctx context.Context, userID string) ([]models.Collaborator, error)
}
