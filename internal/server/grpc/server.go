// Package grpc serves the notes API to desktop clients.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/codexnotes/internal/api"
	"github.com/dmitrijs2005/codexnotes/internal/auth"
	"github.com/dmitrijs2005/codexnotes/internal/logging"
	"github.com/dmitrijs2005/codexnotes/internal/server/models"
	"github.com/dmitrijs2005/codexnotes/internal/server/services"
	"google.golang.org/grpc"
)

type userSvc interface {
	Ensure(ctx context.Context, id auth.Identity) (*models.User, error)
}

type notesSvc interface {
	Snapshot(ctx context.Context, callerID, userID string) (*services.Graph, error)
	MutateFolder(ctx context.Context, callerID string, f models.Folder) (services.MutationResult, error)
	MutateNote(ctx context.Context, callerID string, n models.Note) (services.MutationResult, error)
	Invite(ctx context.Context, callerID string, c models.Collaborator) (*services.Invitation, error)
	Verify(ctx context.Context, callerID, email, token string) (services.VerifyResult, error)
}

type GRPCServer struct {
	api.UnimplementedNotesServer
	address   string
	users     userSvc
	notes     notesSvc
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, us userSvc, ns notesSvc, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		notes:     ns,
		jwtSecret: []byte(secretKey),
	}
}

// NewServer builds the gRPC server with the auth interceptor and the notes
// service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor)}, opts...)
	srv := grpc.NewServer(opts...)
	api.RegisterNotesServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
