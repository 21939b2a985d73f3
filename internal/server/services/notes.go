package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/cryptox"
	"github.com/dmitrijs2005/codexnotes/internal/dbx"
	"github.com/dmitrijs2005/codexnotes/internal/server/models"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/folders"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/codexnotes/internal/timex"
)

// Graph is everything one user may see: their own folders, the folders
// shared with them, the notes and invitations of those folders and the
// accounts referenced from any of it. Tombstones are included.
type Graph struct {
	User          models.User
	Users         map[string]models.User
	Folders       []models.Folder
	Notes         []models.Note
	Collaborators []models.Collaborator
}

// MutationResult reports the stored version of a pushed document. Applied
// is false when the backend kept what it had.
type MutationResult struct {
	ID       string
	DtModify int64
	Applied  bool
}

type NotesService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *cryptox.TokenHasher
	clock       timex.Clock
}

func NewNotesService(db *sql.DB, m repomanager.RepositoryManager, hasher *cryptox.TokenHasher, clock timex.Clock) *NotesService {
	if hasher == nil {
		hasher = cryptox.NewTokenHasher(0)
	}
	if clock == nil {
		clock = timex.System
	}
	return &NotesService{db: db, repomanager: m, hasher: hasher, clock: clock}
}

// Snapshot reads the graph of userID. Callers may only read their own.
func (s *NotesService) Snapshot(ctx context.Context, callerID, userID string) (*Graph, error) {
	if userID == "" {
		userID = callerID
	}
	if userID != callerID {
		return nil, fmt.Errorf("snapshot of %s: %w", userID, common.ErrForbidden)
	}

	g := &Graph{Users: map[string]models.User{}}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}
		g.User = *u

		related, err := s.repomanager.Users(tx).ListRelated(ctx, userID)
		if err != nil {
			return err
		}
		for _, r := range related {
			g.Users[r.ID] = r
		}
		if g.Folders, err = s.repomanager.Folders(tx).ListVisible(ctx, userID); err != nil {
			return err
		}
		if g.Notes, err = s.repomanager.Notes(tx).ListVisible(ctx, userID); err != nil {
			return err
		}
		g.Collaborators, err = s.repomanager.Collaborators(tx).ListVisible(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// MutateFolder applies a pushed folder with last-writer-wins on DtModify.
//
// Only the owner may write a folder. A second live root for the same owner
// is stored as a tombstone and reported as not applied, so that notes pushed
// into it can still be placed.
func (s *NotesService) MutateFolder(ctx context.Context, callerID string, f models.Folder) (MutationResult, error) {
	if f.ID == "" {
		return MutationResult{}, common.NewValidationError("id", "folder id is required")
	}
	if f.OwnerID == "" {
		f.OwnerID = callerID
	}
	if f.OwnerID != callerID {
		return MutationResult{}, fmt.Errorf("folder %s: %w", f.ID, common.ErrForbidden)
	}

	res := MutationResult{ID: f.ID, DtModify: f.DtModify}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Folders(tx)

		existing, err := optional(repo.Get(ctx, f.ID))
		if err != nil {
			return err
		}
		if existing != nil && existing.OwnerID != callerID {
			return fmt.Errorf("folder %s: %w", f.ID, common.ErrForbidden)
		}

		secondRoot := false
		if f.IsRoot && !f.IsRemoved {
			root, err := optional(repo.FindLiveRoot(ctx, callerID))
			if err != nil {
				return err
			}
			if root != nil && root.ID != f.ID {
				f.IsRemoved = true
				secondRoot = true
			}
		}

		applied, err := repo.Upsert(ctx, &f)
		if err != nil {
			return err
		}
		res.Applied = applied && !secondRoot
		if !applied {
			stored, err := repo.Get(ctx, f.ID)
			if err != nil {
				return err
			}
			res.DtModify = stored.DtModify
		}
		return nil
	})
	if err != nil {
		return MutationResult{}, err
	}
	return res, nil
}

// MutateNote applies a pushed note with last-writer-wins on DtModify. The
// caller needs access to the target folder and, when the note moves, to the
// folder it leaves. Notes pushed into a tombstoned root land in the owner's
// live root.
func (s *NotesService) MutateNote(ctx context.Context, callerID string, n models.Note) (MutationResult, error) {
	if n.ID == "" {
		return MutationResult{}, common.NewValidationError("id", "note id is required")
	}
	if n.FolderID == "" {
		return MutationResult{}, common.NewValidationError("folder_id", "folder id is required")
	}
	if n.AuthorID == "" {
		n.AuthorID = callerID
	}

	res := MutationResult{ID: n.ID, DtModify: n.DtModify}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		folderRepo := s.repomanager.Folders(tx)
		noteRepo := s.repomanager.Notes(tx)

		folder, err := folderRepo.Get(ctx, n.FolderID)
		if err != nil {
			return fmt.Errorf("folder %s: %w", n.FolderID, err)
		}
		if err := checkAccess(ctx, folderRepo, folder.ID, callerID); err != nil {
			return err
		}
		if folder.IsRoot && folder.IsRemoved {
			root, err := optional(folderRepo.FindLiveRoot(ctx, folder.OwnerID))
			if err != nil {
				return err
			}
			if root != nil {
				n.FolderID = root.ID
			}
		}

		existing, err := optional(noteRepo.Get(ctx, n.ID))
		if err != nil {
			return err
		}
		if existing != nil && existing.FolderID != n.FolderID {
			if err := checkAccess(ctx, folderRepo, existing.FolderID, callerID); err != nil {
				return err
			}
		}

		applied, err := noteRepo.Upsert(ctx, &n)
		if err != nil {
			return err
		}
		res.Applied = applied
		if !applied {
			stored, err := noteRepo.Get(ctx, n.ID)
			if err != nil {
				return err
			}
			res.DtModify = stored.DtModify
		}
		return nil
	})
	if err != nil {
		return MutationResult{}, err
	}
	return res, nil
}

func checkAccess(ctx context.Context, repo folders.Repository, folderID, userID string) error {
	ok, err := repo.CanAccess(ctx, folderID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("folder %s: %w", folderID, common.ErrForbidden)
	}
	return nil
}

// optional turns common.ErrNotFound into a nil result.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
