package grpc

import (
	"github.com/dmitrijs2005/codexnotes/internal/api"
	"github.com/dmitrijs2005/codexnotes/internal/server/models"
	"github.com/dmitrijs2005/codexnotes/internal/server/services"
)

// graphToNode nests the flat graph the way clients read it: folders carry
// their notes and invitations, every user reference is expanded. Invitation
// tokens never leave the backend.
func graphToNode(g *services.Graph) *api.UserNode {
	ref := func(id string) api.UserRef {
		u, ok := g.Users[id]
		if !ok {
			return api.UserRef{ID: id}
		}
		return userRef(u)
	}

	notesByFolder := make(map[string][]api.NoteNode)
	for _, n := range g.Notes {
		notesByFolder[n.FolderID] = append(notesByFolder[n.FolderID], api.NoteNode{
			ID:            n.ID,
			Title:         n.Title,
			Content:       n.Content,
			EditorVersion: n.EditorVersion,
			DtCreate:      n.DtCreate,
			DtModify:      n.DtModify,
			Author:        ref(n.AuthorID),
			IsRemoved:     n.IsRemoved,
		})
	}

	collabsByFolder := make(map[string][]api.CollaboratorNode)
	for _, c := range g.Collaborators {
		node := api.CollaboratorNode{ID: c.ID, Email: c.Email, DtInvite: c.DtInvite}
		if c.UserID != "" {
			r := ref(c.UserID)
			node.User = &r
		}
		collabsByFolder[c.FolderID] = append(collabsByFolder[c.FolderID], node)
	}

	folders := make([]api.FolderNode, 0, len(g.Folders))
	for _, f := range g.Folders {
		folders = append(folders, api.FolderNode{
			ID:            f.ID,
			Title:         f.Title,
			Owner:         ref(f.OwnerID),
			IsRoot:        f.IsRoot,
			DtCreate:      f.DtCreate,
			DtModify:      f.DtModify,
			IsRemoved:     f.IsRemoved,
			Notes:         orEmpty(notesByFolder[f.ID]),
			Collaborators: orEmpty(collabsByFolder[f.ID]),
		})
	}

	return &api.UserNode{
		ID:       g.User.ID,
		Name:     g.User.Name,
		Email:    g.User.Email,
		Photo:    g.User.Photo,
		GoogleID: g.User.GoogleID,
		DtReg:    g.User.DtReg,
		DtModify: g.User.DtModify,
		Folders:  folders,
	}
}

func userRef(u models.User) api.UserRef {
	return api.UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Photo: u.Photo}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
