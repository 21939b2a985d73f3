package grpc

import (
	"context"

	"github.com/dmitrijs2005/codexnotes/internal/api"
	"github.com/dmitrijs2005/codexnotes/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) caller(ctx context.Context) (string, error) {
	id, ok := identityFrom(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return id.UserID, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Sync(ctx context.Context, req *api.SyncRequest) (*api.SyncResponse, error) {
	callerID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	g, err := s.notes.Snapshot(ctx, callerID, req.UserID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Sync", "user_id", callerID, "folders", len(g.Folders), "notes", len(g.Notes))
	return &api.SyncResponse{User: graphToNode(g)}, nil
}

func (s *GRPCServer) FolderMutation(ctx context.Context, req *api.FolderMutationRequest) (*api.FolderMutationResponse, error) {
	callerID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.notes.MutateFolder(ctx, callerID, models.Folder{
		ID:        req.ID,
		OwnerID:   req.OwnerID,
		Title:     req.Title,
		IsRoot:    req.IsRoot,
		DtCreate:  req.DtCreate,
		DtModify:  req.DtModify,
		IsRemoved: req.IsRemoved,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.FolderMutationResponse{ID: res.ID, DtModify: res.DtModify, Applied: res.Applied}, nil
}

func (s *GRPCServer) NoteMutation(ctx context.Context, req *api.NoteMutationRequest) (*api.NoteMutationResponse, error) {
	callerID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.notes.MutateNote(ctx, callerID, models.Note{
		ID:            req.ID,
		FolderID:      req.FolderID,
		AuthorID:      req.AuthorID,
		Title:         req.Title,
		Content:       req.Content,
		EditorVersion: req.EditorVersion,
		DtCreate:      req.DtCreate,
		DtModify:      req.DtModify,
		IsRemoved:     req.IsRemoved,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.NoteMutationResponse{ID: res.ID, DtModify: res.DtModify, Applied: res.Applied}, nil
}

func (s *GRPCServer) InviteCollaborator(ctx context.Context, req *api.InviteCollaboratorRequest) (*api.InviteCollaboratorResponse, error) {
	callerID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != "" && req.OwnerID != callerID {
		return nil, status.Error(codes.PermissionDenied, "owner mismatch")
	}

	inv, err := s.notes.Invite(ctx, callerID, models.Collaborator{
		ID:       req.ID,
		FolderID: req.FolderID,
		Email:    req.Email,
		DtInvite: req.DtInvite,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Collaborator invited", "folder_id", req.FolderID, "collaborator_id", inv.ID)
	return &api.InviteCollaboratorResponse{Token: inv.Token, Email: inv.Email}, nil
}

func (s *GRPCServer) VerifyCollaborator(ctx context.Context, req *api.VerifyCollaboratorRequest) (*api.VerifyCollaboratorResponse, error) {
	callerID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.UserID != "" && req.UserID != callerID {
		return nil, status.Error(codes.PermissionDenied, "user mismatch")
	}

	res, err := s.notes.Verify(ctx, callerID, req.Email, req.Token)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.VerifyCollaboratorResponse{
		Success:        res.Success,
		CollaboratorID: res.CollaboratorID,
		FolderID:       res.FolderID,
		UserID:         res.UserID,
	}, nil
}
