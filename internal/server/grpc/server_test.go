package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/codexnotes/internal/api"
	"github.com/dmitrijs2005/codexnotes/internal/auth"
	"github.com/dmitrijs2005/codexnotes/internal/client/remote"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func startBufconn(t *testing.T, s *GRPCServer) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return lis
}

func dial(t *testing.T, lis *bufconn.Listener, token string) *remote.GRPCClient {
	t.Helper()
	c, err := remote.NewGRPCClient("passthrough:///bufnet",
		remote.TokenFunc(func() string { return token }),
		remote.WithCallTimeout(5*time.Second),
		remote.WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		})))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestServe_EndToEndWithClient(t *testing.T) {
	users := &fakeUsers{}
	notes := &fakeNotes{result: services.MutationResult{ID: "f1", DtModify: 7, Applied: true}}
	s := newServer(users, notes)
	lis := startBufconn(t, s)
	ctx := context.Background()

	anon := dial(t, lis, "")
	require.NoError(t, anon.Ping(ctx), "ping needs no token")

	_, err := anon.FolderMutation(ctx, &api.FolderMutationRequest{ID: "f1"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	token, err := auth.GenerateToken(auth.Identity{UserID: "u1", Email: "ann@example.com"}, []byte("k"), time.Hour)
	require.NoError(t, err)
	c := dial(t, lis, token)

	resp, err := c.FolderMutation(ctx, &api.FolderMutationRequest{ID: "f1", OwnerID: "u1", DtModify: 7})
	require.NoError(t, err)
	assert.True(t, resp.Applied)
	assert.Equal(t, []string{"u1"}, notes.callers)
	require.Len(t, users.ensured, 1)

	notes.err = common.NewValidationError("email", "bad")
	_, err = c.InviteCollaborator(ctx, &api.InviteCollaboratorRequest{FolderID: "f1", Email: "x"})
	assert.ErrorIs(t, err, common.ErrValidation)

	notes.err = common.ErrNotFound
	_, err = c.NoteMutation(ctx, &api.NoteMutationRequest{ID: "n1", FolderID: "zz"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	notes.err = common.ErrForbidden
	_, err = c.FolderMutation(ctx, &api.FolderMutationRequest{ID: "f2", OwnerID: "u1"})
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.NotErrorIs(t, err, common.ErrUnauthorized)
}
