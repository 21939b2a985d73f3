package session

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/codexnotes/internal/client/models"
	"github.com/dmitrijs2005/codexnotes/internal/client/oauth"
	"github.com/dmitrijs2005/codexnotes/internal/client/store"
	clientsync "github.com/dmitrijs2005/codexnotes/internal/client/sync"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	mu       sync.Mutex
	syncs    int
	triggers int
	err      error
	onSync   func()
}

func (f *fakeSyncer) Sync(context.Context) (clientsync.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs++
	if f.onSync != nil {
		f.onSync()
	}
	return clientsync.Report{}, f.err
}

func (f *fakeSyncer) Trigger(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers++
}

type fixedOnline bool

func (o fixedOnline) Online(context.Context) bool { return bool(o) }

type fakeAuth struct {
	p   oauth.Profile
	err error
}

func (a fakeAuth) Login(context.Context) (oauth.Profile, error) { return a.p, a.err }

func newSession(t *testing.T, online bool) (*Session, *store.Store) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	st, err := store.New(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	s := New(st, fakeAuth{}, fixedOnline(online), timex.Fixed(1000), nil)
	require.NoError(t, s.Init(context.Background()))
	return s, st
}

func login(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.AdoptIdentity(context.Background(), oauth.Profile{
		UserID: "u1", Name: "Ann", Email: "ann@example.com", Token: "jwt",
	}))
}

func TestInit_FirstRunCreatesUserAndRootOnce(t *testing.T) {
	s, st := newSession(t, false)
	ctx := context.Background()

	u := s.User()
	assert.NotEmpty(t, u.ID)
	assert.True(t, u.Anonymous())
	assert.False(t, s.CanSync())

	require.NoError(t, s.Init(ctx))
	assert.Equal(t, u.ID, s.UserID(), "a second init reuses the stored user")

	roots, err := st.Folders().Find(ctx, store.Query{"isRoot": true, "isRemoved": false})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, common.RootFolderTitle, roots[0].Title)
	assert.Equal(t, u.ID, roots[0].OwnerID)
	assert.Equal(t, int64(1000), roots[0].DtCreate)
}

func TestAdoptIdentity_ReownsAndTriggersSync(t *testing.T) {
	s, st := newSession(t, true)
	ctx := context.Background()
	sy := &fakeSyncer{}
	s.SetSyncer(sy)
	anonID := s.UserID()

	_, err := st.Notes().Insert(ctx, models.Note{ID: "n1", AuthorID: anonID})
	require.NoError(t, err)
	s.Suspend(ctx, common.ErrUnauthorized)

	login(t, s)

	assert.Equal(t, "u1", s.UserID())
	assert.Equal(t, "jwt", s.AuthToken())
	assert.True(t, s.CanSync())
	assert.NoError(t, s.Suspended())
	assert.Equal(t, 1, sy.triggers)

	users, err := st.Users().Find(ctx, store.Query{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ann@example.com", users[0].Email)

	root, err := st.RootFolder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", root.OwnerID)
	n, err := st.Notes().Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "u1", n.AuthorID)
}

func TestAdoptIdentity_RejectsEmptyProfile(t *testing.T) {
	s, _ := newSession(t, true)
	err := s.AdoptIdentity(context.Background(), oauth.Profile{UserID: "u1"})
	assert.ErrorIs(t, err, common.ErrValidation)
	u := s.User()
	assert.True(t, u.Anonymous())
}

func TestBeginOAuth_FailureLeavesUserAlone(t *testing.T) {
	s, _ := newSession(t, true)
	s.auth = fakeAuth{err: common.ErrCancelled}
	before := s.User()

	_, err := s.BeginOAuth(context.Background())
	assert.ErrorIs(t, err, common.ErrCancelled)
	assert.Equal(t, before, s.User())
}

func TestSetLastSyncAt_PersistsAndNeverRewinds(t *testing.T) {
	s, st := newSession(t, true)
	ctx := context.Background()

	require.NoError(t, s.SetLastSyncAt(ctx, 500))
	require.NoError(t, s.SetLastSyncAt(ctx, 100))
	assert.Equal(t, int64(500), s.LastSyncAt())

	u, err := st.Users().Get(ctx, s.UserID())
	require.NoError(t, err)
	assert.Equal(t, int64(500), u.LastSyncAt)
}

func TestRequestSync_OnlyWhenLoggedIn(t *testing.T) {
	s, _ := newSession(t, true)
	sy := &fakeSyncer{}
	s.SetSyncer(sy)

	s.RequestSync(context.Background())
	assert.Zero(t, sy.triggers)

	login(t, s)
	s.RequestSync(context.Background())
	assert.Equal(t, 2, sy.triggers)
}

func TestLogout_OfflineWithDirtyAsksFirst(t *testing.T) {
	s, st := newSession(t, false)
	ctx := context.Background()
	sy := &fakeSyncer{}
	s.SetSyncer(sy)
	login(t, s)
	require.NoError(t, s.SetLastSyncAt(ctx, 1000))

	_, err := st.Notes().Insert(ctx, models.Note{ID: "unsynced", DtModify: 1500})
	require.NoError(t, err)

	var asked int
	err = s.Logout(ctx, func(_ context.Context, dirty int) bool {
		asked = dirty
		return false
	})
	require.ErrorIs(t, err, common.ErrLogoutAborted)
	assert.Equal(t, 1, asked)
	assert.Equal(t, "u1", s.UserID())
	n, err := st.Notes().Get(ctx, "unsynced")
	require.NoError(t, err)
	assert.NotNil(t, n, "declined logout keeps the data")

	require.NoError(t, s.Logout(ctx, func(context.Context, int) bool { return true }))
	assert.Zero(t, sy.syncs, "no sync attempt while offline")
	u := s.User()
	assert.True(t, u.Anonymous())
	assert.NotEqual(t, "u1", s.UserID())

	n, err = st.Notes().Get(ctx, "unsynced")
	require.NoError(t, err)
	assert.Nil(t, n)
	root, err := st.RootFolder(ctx)
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, s.UserID(), root.OwnerID)
}

func TestLogout_OfflineNilConfirmAborts(t *testing.T) {
	s, st := newSession(t, false)
	ctx := context.Background()
	_, err := st.Notes().Insert(ctx, models.Note{ID: "n", DtModify: 2000})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Logout(ctx, nil), common.ErrLogoutAborted)
}

func TestLogout_OnlineRunsFinalSyncWithoutPrompt(t *testing.T) {
	s, st := newSession(t, true)
	ctx := context.Background()
	login(t, s)

	_, err := st.Notes().Insert(ctx, models.Note{ID: "n", DtModify: 2000})
	require.NoError(t, err)
	sy := &fakeSyncer{onSync: func() {}}
	s.SetSyncer(sy)

	require.NoError(t, s.Logout(ctx, func(context.Context, int) bool {
		t.Fatal("confirmation must not be requested")
		return false
	}))
	assert.Equal(t, 1, sy.syncs)
	u := s.User()
	assert.True(t, u.Anonymous())
}

func TestLogout_FailedFinalSyncWithDirtyAsks(t *testing.T) {
	s, st := newSession(t, true)
	ctx := context.Background()
	login(t, s)
	_, err := st.Notes().Insert(ctx, models.Note{ID: "n", DtModify: 2000})
	require.NoError(t, err)
	s.SetSyncer(&fakeSyncer{err: errors.New("transport down")})

	err = s.Logout(ctx, func(context.Context, int) bool { return false })
	assert.ErrorIs(t, err, common.ErrLogoutAborted)
	assert.Equal(t, "u1", s.UserID())
}
