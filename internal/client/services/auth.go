package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/codexnotes/internal/client/models"
	"github.com/dmitrijs2005/codexnotes/internal/client/oauth"
	"github.com/dmitrijs2005/codexnotes/internal/client/session"
)

// AuthService covers the account commands.
//
//   - Login: interactive OAuth, then adopt the identity and start syncing.
//   - Logout: final sync and local wipe; confirm is asked before losing
//     unsynced work.
//   - Whoami: the active user.
//   - Online: backend reachability.
type AuthService interface {
	Login(ctx context.Context) (models.User, error)
	Logout(ctx context.Context, confirm session.ConfirmFunc) error
	Whoami() models.User
	Online(ctx context.Context) bool
}

// Identity is the session as seen by the auth commands.
type Identity interface {
	BeginOAuth(ctx context.Context) (oauth.Profile, error)
	AdoptIdentity(ctx context.Context, p oauth.Profile) error
	Logout(ctx context.Context, confirm session.ConfirmFunc) error
	User() models.User
}

type authService struct {
	identity Identity
	online   session.OnlineChecker
}

func NewAuthService(id Identity, online session.OnlineChecker) AuthService {
	return &authService{identity: id, online: online}
}

func (a *authService) Login(ctx context.Context) (models.User, error) {
	p, err := a.identity.BeginOAuth(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("login: %w", err)
	}
	if err := a.identity.AdoptIdentity(ctx, p); err != nil {
		return models.User{}, fmt.Errorf("login: %w", err)
	}
	return a.identity.User(), nil
}

func (a *authService) Logout(ctx context.Context, confirm session.ConfirmFunc) error {
	return a.identity.Logout(ctx, confirm)
}

func (a *authService) Whoami() models.User {
	return a.identity.User()
}

func (a *authService) Online(ctx context.Context) bool {
	return a.online != nil && a.online.Online(ctx)
}
