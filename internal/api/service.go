package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "codexnotes.api.Notes"

// Full method names, also used by interceptors to tell calls apart.
const (
	MethodSync               = "/" + ServiceName + "/Sync"
	MethodFolderMutation     = "/" + ServiceName + "/FolderMutation"
	MethodNoteMutation       = "/" + ServiceName + "/NoteMutation"
	MethodInviteCollaborator = "/" + ServiceName + "/InviteCollaborator"
	MethodVerifyCollaborator = "/" + ServiceName + "/VerifyCollaborator"
	MethodPing               = "/" + ServiceName + "/Ping"
)

// NotesClient is the client API of the notes service.
type NotesClient interface {
	Sync(ctx context.Context, in *SyncRequest, opts ...grpc.CallOption) (*SyncResponse, error)
	FolderMutation(ctx context.Context, in *FolderMutationRequest, opts ...grpc.CallOption) (*FolderMutationResponse, error)
	NoteMutation(ctx context.Context, in *NoteMutationRequest, opts ...grpc.CallOption) (*NoteMutationResponse, error)
	InviteCollaborator(ctx context.Context, in *InviteCollaboratorRequest, opts ...grpc.CallOption) (*InviteCollaboratorResponse, error)
	VerifyCollaborator(ctx context.Context, in *VerifyCollaboratorRequest, opts ...grpc.CallOption) (*VerifyCollaboratorResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
}

type notesClient struct {
	cc grpc.ClientConnInterface
}

func NewNotesClient(cc grpc.ClientConnInterface) NotesClient {
	return &notesClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *notesClient) Sync(ctx context.Context, in *SyncRequest, opts ...grpc.CallOption) (*SyncResponse, error) {
	return invoke[SyncResponse](ctx, c.cc, MethodSync, in, opts)
}

func (c *notesClient) FolderMutation(ctx context.Context, in *FolderMutationRequest, opts ...grpc.CallOption) (*FolderMutationResponse, error) {
	return invoke[FolderMutationResponse](ctx, c.cc, MethodFolderMutation, in, opts)
}

func (c *notesClient) NoteMutation(ctx context.Context, in *NoteMutationRequest, opts ...grpc.CallOption) (*NoteMutationResponse, error) {
	return invoke[NoteMutationResponse](ctx, c.cc, MethodNoteMutation, in, opts)
}

func (c *notesClient) InviteCollaborator(ctx context.Context, in *InviteCollaboratorRequest, opts ...grpc.CallOption) (*InviteCollaboratorResponse, error) {
	return invoke[InviteCollaboratorResponse](ctx, c.cc, MethodInviteCollaborator, in, opts)
}

func (c *notesClient) VerifyCollaborator(ctx context.Context, in *VerifyCollaboratorRequest, opts ...grpc.CallOption) (*VerifyCollaboratorResponse, error) {
	return invoke[VerifyCollaboratorResponse](ctx, c.cc, MethodVerifyCollaborator, in, opts)
}

func (c *notesClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}

// NotesServer is the server API of the notes service.
type NotesServer interface {
	Sync(context.Context, *SyncRequest) (*SyncResponse, error)
	FolderMutation(context.Context, *FolderMutationRequest) (*FolderMutationResponse, error)
	NoteMutation(context.Context, *NoteMutationRequest) (*NoteMutationResponse, error)
	InviteCollaborator(context.Context, *InviteCollaboratorRequest) (*InviteCollaboratorResponse, error)
	VerifyCollaborator(context.Context, *VerifyCollaboratorRequest) (*VerifyCollaboratorResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// UnimplementedNotesServer can be embedded to have forward compatible
// implementations.
type UnimplementedNotesServer struct{}

func (UnimplementedNotesServer) Sync(context.Context, *SyncRequest) (*SyncResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Sync not implemented")
}

func (UnimplementedNotesServer) FolderMutation(context.Context, *FolderMutationRequest) (*FolderMutationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method FolderMutation not implemented")
}

func (UnimplementedNotesServer) NoteMutation(context.Context, *NoteMutationRequest) (*NoteMutationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method NoteMutation not implemented")
}

func (UnimplementedNotesServer) InviteCollaborator(context.Context, *InviteCollaboratorRequest) (*InviteCollaboratorResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method InviteCollaborator not implemented")
}

func (UnimplementedNotesServer) VerifyCollaborator(context.Context, *VerifyCollaboratorRequest) (*VerifyCollaboratorResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyCollaborator not implemented")
}

func (UnimplementedNotesServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

// RegisterNotesServer registers srv on s.
func RegisterNotesServer(s grpc.ServiceRegistrar, srv NotesServer) {
	s.RegisterService(&notesServiceDesc, srv)
}

// unaryHandler adapts a typed server method to grpc's untyped handler shape.
func unaryHandler[Req any, Resp any](method string, call func(NotesServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NotesServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NotesServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var notesServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NotesServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Sync", Handler: unaryHandler(MethodSync, NotesServer.Sync)},
		{MethodName: "FolderMutation", Handler: unaryHandler(MethodFolderMutation, NotesServer.FolderMutation)},
		{MethodName: "NoteMutation", Handler: unaryHandler(MethodNoteMutation, NotesServer.NoteMutation)},
		{MethodName: "InviteCollaborator", Handler: unaryHandler(MethodInviteCollaborator, NotesServer.InviteCollaborator)},
		{MethodName: "VerifyCollaborator", Handler: unaryHandler(MethodVerifyCollaborator, NotesServer.VerifyCollaborator)},
		{MethodName: "Ping", Handler: unaryHandler(MethodPing, NotesServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "codexnotes/api",
}
