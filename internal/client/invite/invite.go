// Package invite shares folders with other people. The owner invites an
// email address and gets back a single-use token; the invited person accepts
// through a codex://join/<email>/<token> link.
package invite

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/codexnotes/internal/api"
	"github.com/dmitrijs2005/codexnotes/internal/client/models"
	"github.com/dmitrijs2005/codexnotes/internal/client/notify"
	"github.com/dmitrijs2005/codexnotes/internal/client/store"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/logging"
	"github.com/dmitrijs2005/codexnotes/internal/timex"
	"github.com/google/uuid"
)

// Remote is the part of the backend client the flow uses.
type Remote interface {
	InviteCollaborator(ctx context.Context, req *api.InviteCollaboratorRequest) (*api.InviteCollaboratorResponse, error)
	VerifyCollaborator(ctx context.Context, req *api.VerifyCollaboratorRequest) (*api.VerifyCollaboratorResponse, error)
}

// Session is the part of the session the flow uses.
type Session interface {
	UserID() string
	RequestSync(ctx context.Context)
}

type Service struct {
	store    *store.Store
	remote   Remote
	session  Session
	pub      notify.Publisher
	clock    timex.Clock
	protocol string
	log      logging.Logger
}

func NewService(st *store.Store, r Remote, sess Session, pub notify.Publisher, protocol string, clock timex.Clock, log logging.Logger) *Service {
	if protocol == "" {
		protocol = common.DefaultAppProtocol
	}
	if clock == nil {
		clock = timex.System
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		store:    st,
		remote:   r,
		session:  sess,
		pub:      pub,
		clock:    clock,
		protocol: protocol,
		log:      log.With("module", "invite"),
	}
}

// ValidateEmail accepts a bare address such as "ann@example.com".
func ValidateEmail(email string) error {
	return common.ValidateEmail(email)
}

// Invite asks the backend for an invitation to folderID and records it as a
// pending collaborator. Nothing is sent or stored when the email is invalid.
func (s *Service) Invite(ctx context.Context, folderID, email string) (models.Collaborator, error) {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return models.Collaborator{}, err
	}
	folder, err := s.store.Folders().Get(ctx, folderID)
	if err != nil {
		return models.Collaborator{}, err
	}
	if folder == nil || folder.IsRemoved {
		return models.Collaborator{}, fmt.Errorf("folder %s: %w", folderID, common.ErrNotFound)
	}

	c := models.Collaborator{
		ID:       uuid.NewString(),
		FolderID: folderID,
		Email:    email,
		DtInvite: s.clock.Unix(),
	}
	resp, err := s.remote.InviteCollaborator(ctx, &api.InviteCollaboratorRequest{
		ID:       c.ID,
		Email:    c.Email,
		FolderID: c.FolderID,
		OwnerID:  s.session.UserID(),
		DtInvite: c.DtInvite,
	})
	if err != nil {
		return models.Collaborator{}, err
	}
	c.InviteToken = resp.Token
	if resp.Email != "" {
		c.Email = resp.Email
	}

	if _, err := s.store.Collaborators().Insert(ctx, c); err != nil {
		return models.Collaborator{}, err
	}
	ids := append(append([]string(nil), folder.CollaboratorIDs...), c.ID)
	if _, err := s.store.Folders().Patch(ctx, store.Query{"id": folderID}, store.Doc{"collaboratorIds": ids}, store.UpdateOptions{}); err != nil {
		return models.Collaborator{}, err
	}

	s.log.Info(ctx, "collaborator invited", "folder_id", folderID, "collaborator_id", c.ID)
	if s.pub != nil {
		s.pub.Publish(ctx, notify.CollaboratorEvent(c))
	}
	return c, nil
}

// JoinURI is the link the invited person opens to accept.
func (s *Service) JoinURI(c models.Collaborator) string {
	return BuildJoinURI(s.protocol, c.Email, c.InviteToken)
}

// AcceptInvite redeems an invitation for the current user. Local state is
// only touched after the backend confirmed it.
func (s *Service) AcceptInvite(ctx context.Context, email, token string) (*api.VerifyCollaboratorResponse, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		return nil, common.NewValidationError("token", "invitation token is required")
	}
	userID := s.session.UserID()

	resp, err := s.remote.VerifyCollaborator(ctx, &api.VerifyCollaboratorRequest{Email: email, Token: token, UserID: userID})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return resp, common.NewValidationError("token", "invitation is invalid or was already used")
	}

	q := store.Query{"email": email, "inviteToken": token}
	if resp.CollaboratorID != "" {
		q = store.Query{"id": resp.CollaboratorID}
	}
	if _, err := s.store.Collaborators().Patch(ctx, q, store.Doc{"userId": userID}, store.UpdateOptions{Multi: true}); err != nil {
		return resp, err
	}

	s.log.Info(ctx, "invitation accepted", "folder_id", resp.FolderID)
	s.session.RequestSync(ctx)
	return resp, nil
}

// BuildJoinURI formats protocol://join/<email>/<token>.
func BuildJoinURI(protocol, email, token string) string {
	return fmt.Sprintf("%s://join/%s/%s", protocol, url.PathEscape(email), url.PathEscape(token))
}

// ParseJoinURI extracts email and token from protocol://join/<email>/<token>.
func ParseJoinURI(protocol, raw string) (email, token string, err error) {
	bad := func(msg string) error {
		return common.NewValidationError("uri", msg)
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", bad("malformed link")
	}
	if u.Scheme != protocol {
		return "", "", bad(fmt.Sprintf("unexpected scheme %q", u.Scheme))
	}
	if u.Host != "join" {
		return "", "", bad(fmt.Sprintf("unsupported action %q", u.Host))
	}
	parts := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	if len(parts) != 2 {
		return "", "", bad("expected join/<email>/<token>")
	}
	if email, err = url.PathUnescape(parts[0]); err != nil {
		return "", "", bad("malformed email")
	}
	if token, err = url.PathUnescape(parts[1]); err != nil {
		return "", "", bad("malformed token")
	}
	if err := ValidateEmail(email); err != nil {
		return "", "", err
	}
	if token == "" {
		return "", "", bad("empty token")
	}
	return email, token, nil
}

// Outcome reports what happened to one deep-link activation.
type Outcome struct {
	URI    string
	Email  string
	Result *api.VerifyCollaboratorResponse
	Err    error
}

// Listen accepts every join link received on links until ctx is done or the
// channel is closed. report, if set, sees each outcome.
func (s *Service) Listen(ctx context.Context, links <-chan string, report func(Outcome)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case uri, ok := <-links:
			if !ok {
				return nil
			}
			o := Outcome{URI: uri}
			email, token, err := ParseJoinURI(s.protocol, uri)
			if err == nil {
				o.Email = email
				o.Result, err = s.AcceptInvite(ctx, email, token)
			}
			o.Err = err
			if err != nil {
				s.log.Warn(ctx, "join link rejected", "error", err)
			}
			if report != nil {
				report(o)
			}
		}
	}
}
