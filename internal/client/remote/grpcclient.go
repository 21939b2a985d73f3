// Package remote is the client side of the notes backend protocol. It wraps
// the gRPC stubs from internal/api, attaches the session's bearer token to
// every call and maps transport failures onto the sentinels in
// internal/common.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/codexnotes/internal/api"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Client is what the sync engine, session and invite flow need from the
// backend. Every error matches common.ErrTransport, common.ErrUnauthorized,
// common.ErrValidation or common.ErrNotFound.
type Client interface {
	Sync(ctx context.Context, userID string) (*api.SyncResponse, error)
	FolderMutation(ctx context.Context, req *api.FolderMutationRequest) (*api.FolderMutationResponse, error)
	NoteMutation(ctx context.Context, req *api.NoteMutationRequest) (*api.NoteMutationResponse, error)
	InviteCollaborator(ctx context.Context, req *api.InviteCollaboratorRequest) (*api.InviteCollaboratorResponse, error)
	VerifyCollaborator(ctx context.Context, req *api.VerifyCollaboratorRequest) (*api.VerifyCollaboratorResponse, error)
	Ping(ctx context.Context) error
	Close() error
}

// TokenSource yields the bearer token for the next call; "" sends none.
type TokenSource interface {
	AuthToken() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) AuthToken() string { return f() }

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      api.NotesClient
	tokens      TokenSource
	callTimeout time.Duration
	dialOpts    []grpc.DialOption
}

// Option tweaks a GRPCClient.
type Option func(*GRPCClient)

// WithCallTimeout bounds each unary call. Zero leaves calls unbounded.
func WithCallTimeout(d time.Duration) Option {
	return func(c *GRPCClient) { c.callTimeout = d }
}

// WithDialOptions is used by tests to dial an in-memory listener.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *GRPCClient) { c.dialOpts = append(c.dialOpts, opts...) }
}

func withBearer(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Delete(common.AuthorizationHeaderName)
	if token != "" {
		md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) authInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.tokens != nil {
		ctx = withBearer(ctx, s.tokens.AuthToken())
	}
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient prepares a lazily connecting client for endpointURL.
func NewGRPCClient(endpointURL string, tokens TokenSource, opts ...Option) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, tokens: tokens}
	for _, o := range opts {
		o(c)
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.authInterceptor),
	}, c.dialOpts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = api.NewNotesClient(conn)
	return c, nil
}

func (s *GRPCClient) Sync(ctx context.Context, userID string) (*api.SyncResponse, error) {
	resp, err := s.client.Sync(ctx, &api.SyncRequest{UserID: userID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) FolderMutation(ctx context.Context, req *api.FolderMutationRequest) (*api.FolderMutationResponse, error) {
	resp, err := s.client.FolderMutation(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) NoteMutation(ctx context.Context, req *api.NoteMutationRequest) (*api.NoteMutationResponse, error) {
	resp, err := s.client.NoteMutation(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) InviteCollaborator(ctx context.Context, req *api.InviteCollaboratorRequest) (*api.InviteCollaboratorResponse, error) {
	resp, err := s.client.InviteCollaborator(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) VerifyCollaborator(ctx context.Context, req *api.VerifyCollaboratorRequest) (*api.VerifyCollaboratorResponse, error) {
	resp, err := s.client.VerifyCollaborator(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return fmt.Errorf("%w: ping status %q", common.ErrTransport, resp.Status)
	}
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %w", common.ErrTransport, err)
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrForbidden, st.Message())
	case codes.InvalidArgument:
		return common.NewValidationError("", st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, st.Message())
	default:
		return fmt.Errorf("%w: %s: %s", common.ErrTransport, st.Code(), st.Message())
	}
}
