package sync

import (
	"fmt"

	"github.com/dmitrijs2005/codexnotes/internal/api"
	"github.com/dmitrijs2005/codexnotes/internal/client/models"
	"github.com/dmitrijs2005/codexnotes/internal/common"
)

// snapshot is a validated pull response converted to local models.
type snapshot struct {
	user          api.UserNode
	folders       []models.Folder
	notes         []models.Note
	collaborators []models.Collaborator
	root          *models.Folder
}

// decodeSnapshot validates the whole response before anything is written so
// that a bad payload leaves the store untouched.
func decodeSnapshot(resp *api.SyncResponse, userID string) (*snapshot, error) {
	if resp == nil || resp.User == nil {
		return nil, fmt.Errorf("%w: missing user", common.ErrMalformedSnapshot)
	}
	if resp.User.ID != userID {
		return nil, fmt.Errorf("%w: snapshot for user %q, expected %q", common.ErrMalformedSnapshot, resp.User.ID, userID)
	}

	s := &snapshot{user: *resp.User}
	s.user.Folders = nil

	folderIDs := make(map[string]struct{}, len(resp.User.Folders))
	noteIDs := make(map[string]struct{})
	for i := range resp.User.Folders {
		fn := &resp.User.Folders[i]
		if fn.ID == "" {
			return nil, fmt.Errorf("%w: folder #%d has no id", common.ErrMalformedSnapshot, i)
		}
		if _, dup := folderIDs[fn.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate folder %s", common.ErrMalformedSnapshot, fn.ID)
		}
		folderIDs[fn.ID] = struct{}{}

		f := folderFromNode(fn)
		if f.IsRoot && !f.IsRemoved {
			if s.root != nil {
				return nil, fmt.Errorf("%w: more than one live root folder", common.ErrMalformedSnapshot)
			}
			root := f
			s.root = &root
		}
		s.folders = append(s.folders, f)

		for j := range fn.Notes {
			nn := &fn.Notes[j]
			if nn.ID == "" {
				return nil, fmt.Errorf("%w: note #%d in folder %s has no id", common.ErrMalformedSnapshot, j, fn.ID)
			}
			if _, dup := noteIDs[nn.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate note %s", common.ErrMalformedSnapshot, nn.ID)
			}
			noteIDs[nn.ID] = struct{}{}
			s.notes = append(s.notes, noteFromNode(nn, fn.ID))
		}
		for j := range fn.Collaborators {
			cn := &fn.Collaborators[j]
			if cn.ID == "" {
				return nil, fmt.Errorf("%w: collaborator #%d in folder %s has no id", common.ErrMalformedSnapshot, j, fn.ID)
			}
			s.collaborators = append(s.collaborators, collaboratorFromNode(cn, fn.ID))
		}
	}
	return s, nil
}

func folderFromNode(n *api.FolderNode) models.Folder {
	ids := make([]string, 0, len(n.Collaborators))
	for _, c := range n.Collaborators {
		ids = append(ids, c.ID)
	}
	return models.Folder{
		ID:              n.ID,
		Title:           n.Title,
		OwnerID:         n.Owner.ID,
		IsRoot:          n.IsRoot,
		CollaboratorIDs: ids,
		DtCreate:        n.DtCreate,
		DtModify:        n.DtModify,
		IsRemoved:       n.IsRemoved,
	}
}

func noteFromNode(n *api.NoteNode, folderID string) models.Note {
	return models.Note{
		ID:            n.ID,
		Title:         n.Title,
		FolderID:      folderID,
		AuthorID:      n.Author.ID,
		Content:       n.Content,
		EditorVersion: n.EditorVersion,
		DtCreate:      n.DtCreate,
		DtModify:      n.DtModify,
		IsRemoved:     n.IsRemoved,
	}
}

func collaboratorFromNode(n *api.CollaboratorNode, folderID string) models.Collaborator {
	c := models.Collaborator{
		ID:          n.ID,
		FolderID:    folderID,
		Email:       n.Email,
		InviteToken: n.Token,
		DtInvite:    n.DtInvite,
	}
	if n.User != nil {
		c.UserID = n.User.ID
	}
	return c
}

func folderMutation(f models.Folder) *api.FolderMutationRequest {
	return &api.FolderMutationRequest{
		OwnerID:   f.OwnerID,
		ID:        f.ID,
		Title:     f.Title,
		DtModify:  f.DtModify,
		DtCreate:  f.DtCreate,
		IsRoot:    f.IsRoot,
		IsRemoved: f.IsRemoved,
	}
}

func noteMutation(n models.Note) *api.NoteMutationRequest {
	return &api.NoteMutationRequest{
		AuthorID:      n.AuthorID,
		ID:            n.ID,
		FolderID:      n.FolderID,
		Title:         n.Title,
		Content:       n.Content,
		EditorVersion: n.EditorVersion,
		DtModify:      n.DtModify,
		DtCreate:      n.DtCreate,
		IsRemoved:     n.IsRemoved,
	}
}
