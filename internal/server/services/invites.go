package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/cryptox"
	"github.com/dmitrijs2005/codexnotes/internal/server/models"
	"github.com/google/uuid"
)

// Invitation is handed back to the inviting client. Token is shown once.
type Invitation struct {
	ID    string
	Token string
	Email string
}

// VerifyResult reports a redeemed invitation.
type VerifyResult struct {
	Success        bool
	CollaboratorID string
	FolderID       string
	UserID         string
}

// Invite shares a folder owned by callerID with email. Inviting again under
// the same id replaces the token of a pending invitation.
func (s *NotesService) Invite(ctx context.Context, callerID string, c models.Collaborator) (*Invitation, error) {
	c.Email = strings.TrimSpace(c.Email)
	if err := common.ValidateEmail(c.Email); err != nil {
		return nil, err
	}
	if c.FolderID == "" {
		return nil, common.NewValidationError("folder_id", "folder id is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.DtInvite == 0 {
		c.DtInvite = s.clock.Unix()
	}

	folder, err := s.repomanager.Folders(s.db).Get(ctx, c.FolderID)
	if err != nil {
		return nil, fmt.Errorf("folder %s: %w", c.FolderID, err)
	}
	if folder.IsRemoved {
		return nil, fmt.Errorf("folder %s: %w", c.FolderID, common.ErrNotFound)
	}
	if folder.OwnerID != callerID {
		return nil, fmt.Errorf("folder %s: %w", c.FolderID, common.ErrForbidden)
	}

	token, err := cryptox.NewToken()
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}
	if c.TokenHash, err = s.hasher.Hash(token); err != nil {
		return nil, err
	}

	stored, err := s.repomanager.Collaborators(s.db).Upsert(ctx, &c)
	if err != nil {
		return nil, err
	}
	if !stored {
		return nil, common.NewValidationError("id", "invitation was already accepted")
	}
	return &Invitation{ID: c.ID, Token: token, Email: c.Email}, nil
}

// Verify redeems the pending invitation for email whose token matches,
// binding it to callerID. A token that matches nothing is not an error; the
// result just reports no success.
func (s *NotesService) Verify(ctx context.Context, callerID, email, token string) (VerifyResult, error) {
	email = strings.TrimSpace(email)
	if err := common.ValidateEmail(email); err != nil {
		return VerifyResult{}, err
	}
	if strings.TrimSpace(token) == "" {
		return VerifyResult{}, common.NewValidationError("token", "invitation token is required")
	}

	repo := s.repomanager.Collaborators(s.db)
	pending, err := repo.ListPendingByEmail(ctx, email)
	if err != nil {
		return VerifyResult{}, err
	}
	for _, c := range pending {
		ok, err := s.hasher.Verify(token, c.TokenHash)
		if err != nil {
			return VerifyResult{}, err
		}
		if !ok {
			continue
		}
		accepted, err := repo.Accept(ctx, c.ID, callerID)
		if err != nil {
			return VerifyResult{}, err
		}
		if !accepted {
			break
		}
		return VerifyResult{Success: true, CollaboratorID: c.ID, FolderID: c.FolderID, UserID: callerID}, nil
	}
	return VerifyResult{}, nil
}
