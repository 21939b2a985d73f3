package folders

import (
	"context"

	"github.com/dmitrijs2005/codexnotes/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.Folder, error)
	FindLiveRoot(ctx context.Context, ownerID string) (*models.Folder, error)
	Upsert(ctx context.Context, f *models.Folder) (bool, error)
	ListVisible(ctx context.Context, userID string) ([]models.Folder, error)
	CanAccess(ctx context.Context, folderID, userID string) (bool, error)
}
