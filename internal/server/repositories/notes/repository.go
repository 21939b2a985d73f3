package notes

import (
	"context"

	"github.com/dmitrijs2005/codexnotes/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.Note, error)
	Upsert(ctx context.Context, n *models.Note) (bool, error)
	ListVisible(ctx context.Context, userID string) ([]models.Note, error)
}
