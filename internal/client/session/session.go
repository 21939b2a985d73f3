// Package session owns the identity of the single active user on this
// device: the auth token, the last-sync cursor and the login/logout flows.
// A *Session is created once at startup and handed to every component that
// needs it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/codexnotes/internal/client/models"
	"github.com/dmitrijs2005/codexnotes/internal/client/oauth"
	"github.com/dmitrijs2005/codexnotes/internal/client/store"
	clientsync "github.com/dmitrijs2005/codexnotes/internal/client/sync"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/logging"
	"github.com/dmitrijs2005/codexnotes/internal/timex"
	"github.com/google/uuid"
)

// Syncer is the sync engine as seen by the session.
type Syncer interface {
	Sync(ctx context.Context) (clientsync.Report, error)
	Trigger(ctx context.Context)
}

// Authenticator runs an interactive login.
type Authenticator interface {
	Login(ctx context.Context) (oauth.Profile, error)
}

// OnlineChecker reports backend reachability.
type OnlineChecker interface {
	Online(ctx context.Context) bool
}

// ConfirmFunc asks the user to accept losing dirty unsynced changes.
// dirty is the number of affected folders and notes.
type ConfirmFunc func(ctx context.Context, dirty int) bool

type Session struct {
	store  *store.Store
	auth   Authenticator
	online OnlineChecker
	clock  timex.Clock
	log    logging.Logger

	mu        sync.RWMutex
	user      models.User
	suspended error
	syncer    Syncer
}

func New(st *store.Store, a Authenticator, online OnlineChecker, clock timex.Clock, log logging.Logger) *Session {
	if clock == nil {
		clock = timex.System
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Session{store: st, auth: a, online: online, clock: clock, log: log.With("module", "session")}
}

// SetSyncer wires the engine in after construction; the engine itself needs
// the session.
func (s *Session) SetSyncer(sy Syncer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncer = sy
}

func (s *Session) getSyncer() Syncer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncer
}

// Init loads the stored user, creating an anonymous one on first launch,
// and makes sure a live root folder exists.
func (s *Session) Init(ctx context.Context) error {
	u, err := s.store.Users().FindOne(ctx, store.Query{})
	if err != nil {
		return err
	}
	if u == nil {
		created, err := s.store.Users().Insert(ctx, models.User{ID: uuid.NewString()})
		if err != nil {
			return err
		}
		u = &created
		s.log.Info(ctx, "created anonymous user", "user_id", u.ID)
	}

	if _, created, err := s.store.EnsureRootFolder(ctx, u.ID, s.clock.Unix()); err != nil {
		return err
	} else if created {
		s.log.Info(ctx, "created root folder")
	}

	s.mu.Lock()
	s.user = *u
	s.suspended = nil
	s.mu.Unlock()
	return nil
}

// User returns a copy of the active user.
func (s *Session) User() models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.ID
}

func (s *Session) AuthToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.AuthToken
}

func (s *Session) LastSyncAt() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.LastSyncAt
}

// CanSync is true with a token and no auth suspension.
func (s *Session) CanSync() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.AuthToken != "" && s.suspended == nil
}

// Suspended returns the auth error that stopped remote sync, if any.
func (s *Session) Suspended() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.suspended
}

func (s *Session) Suspend(ctx context.Context, cause error) {
	s.mu.Lock()
	s.suspended = cause
	s.mu.Unlock()
	s.log.Warn(ctx, "remote sync suspended, login required", "error", cause)
}

// SetLastSyncAt persists the cursor. It never moves backwards.
func (s *Session) SetLastSyncAt(ctx context.Context, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at < s.user.LastSyncAt {
		return nil
	}
	if _, err := s.store.Users().Patch(ctx, store.Query{"id": s.user.ID}, store.Doc{"lastSyncAt": at}, store.UpdateOptions{}); err != nil {
		return err
	}
	s.user.LastSyncAt = at
	return nil
}

// RequestSync schedules a background pass after a local mutation.
func (s *Session) RequestSync(ctx context.Context) {
	if !s.CanSync() {
		return
	}
	if sy := s.getSyncer(); sy != nil {
		sy.Trigger(ctx)
	}
}

// BeginOAuth runs the interactive login. It does not touch the user; pass
// the profile to AdoptIdentity.
func (s *Session) BeginOAuth(ctx context.Context) (oauth.Profile, error) {
	if s.auth == nil {
		return oauth.Profile{}, errors.New("login is not configured")
	}
	return s.auth.Login(ctx)
}

// AdoptIdentity turns the current user into the logged in account p. Local
// folders and notes owned by the previous id are re-owned. Any suspension is
// lifted and a sync pass is scheduled.
func (s *Session) AdoptIdentity(ctx context.Context, p oauth.Profile) error {
	if p.UserID == "" || p.Token == "" {
		return common.NewValidationError("profile", "user id and token are required")
	}

	s.mu.Lock()
	prev := s.user
	next := prev
	next.ID = p.UserID
	next.ExternalID = p.ExternalID
	next.Name = p.Name
	next.Email = p.Email
	next.Photo = p.Photo
	next.AuthToken = p.Token
	if prev.ID != p.UserID {
		next.LastSyncAt = 0
	}

	if err := s.replaceUser(ctx, prev.ID, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.user = next
	s.suspended = nil
	s.mu.Unlock()

	s.log.Info(ctx, "identity adopted", "user_id", next.ID, "email", next.Email)

	if sy := s.getSyncer(); sy != nil {
		sy.Trigger(ctx)
	}
	return nil
}

func (s *Session) replaceUser(ctx context.Context, prevID string, next models.User) error {
	users := s.store.Users()
	if prevID == next.ID {
		_, err := users.Upsert(ctx, next.ID, next)
		return err
	}

	if _, err := users.Collection().Remove(ctx, store.Query{"id": prevID}, store.RemoveOptions{}); err != nil {
		return err
	}
	if _, err := users.Insert(ctx, next); err != nil {
		return err
	}
	if prevID == "" {
		return nil
	}
	if _, err := s.store.Folders().Patch(ctx, store.Query{"ownerId": prevID}, store.Doc{"ownerId": next.ID}, store.UpdateOptions{Multi: true}); err != nil {
		return err
	}
	if _, err := s.store.Notes().Patch(ctx, store.Query{"authorId": prevID}, store.Doc{"authorId": next.ID}, store.UpdateOptions{Multi: true}); err != nil {
		return err
	}
	return nil
}

// Dirty counts folders and notes changed after the last completed sync.
func (s *Session) Dirty(ctx context.Context) (int, error) {
	ch, err := s.store.ModifiedSince(ctx, s.LastSyncAt(), false)
	if err != nil {
		return 0, err
	}
	return len(ch.Folders) + len(ch.Notes), nil
}

// Logout wipes the device and starts over as a fresh anonymous user.
//
// With unsynced changes and no backend, or when the final sync fails, confirm
// decides whether to go on and lose them; a nil confirm or a "no" returns
// common.ErrLogoutAborted and leaves everything as it was.
func (s *Session) Logout(ctx context.Context, confirm ConfirmFunc) error {
	dirty, err := s.Dirty(ctx)
	if err != nil {
		return err
	}

	ask := func() error {
		if confirm == nil || !confirm(ctx, dirty) {
			return common.ErrLogoutAborted
		}
		return nil
	}

	online := s.online != nil && s.online.Online(ctx)
	switch {
	case dirty > 0 && !online:
		if err := ask(); err != nil {
			return err
		}
	case online && s.CanSync():
		if sy := s.getSyncer(); sy != nil {
			if _, err := sy.Sync(ctx); err != nil {
				s.log.Warn(ctx, "final sync before logout failed", "error", err)
				if dirty > 0 {
					if err := ask(); err != nil {
						return err
					}
				}
			}
		}
	}

	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.mu.Lock()
	s.user = models.User{}
	s.mu.Unlock()
	if err := s.Init(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info(ctx, "logged out", "unsynced_before_logout", dirty)
	return nil
}
