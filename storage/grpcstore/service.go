package grpcstore

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName = "catalyst.storage.grpcstore.v1.ContentStore"

	// ContentIDHeader carries the content identifier of a Store request.
	ContentIDHeader = "x-content-id"
)

// ContentStoreServer is the server API for the ContentStore gRPC service.
//
// Messages are protobuf well-known wrapper types, so no protoc toolchain is
// needed. Store receives the identifier in the ContentIDHeader metadata and
// echoes it back on success.
type ContentStoreServer interface {
	Store(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	Retrieve(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	Exists(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

// UnimplementedContentStoreServer can be embedded to have forward compatible implementations.
type UnimplementedContentStoreServer struct{}

func (UnimplementedContentStoreServer) Store(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Store not implemented")
}
func (UnimplementedContentStoreServer) Retrieve(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Retrieve not implemented")
}
func (UnimplementedContentStoreServer) Exists(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Exists not implemented")
}

// RegisterContentStoreServer registers the service on a gRPC server.
func RegisterContentStoreServer(s grpc.ServiceRegistrar, srv ContentStoreServer) {
	s.RegisterService(&ContentStore_ServiceDesc, srv)
}

// ContentStoreClient is the client API for the ContentStore gRPC service.
type ContentStoreClient interface {
	Store(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Retrieve(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Exists(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
}

type contentStoreClient struct{ cc grpc.ClientConnInterface }

func NewContentStoreClient(cc grpc.ClientConnInterface) ContentStoreClient {
	return &contentStoreClient{cc: cc}
}

func (c *contentStoreClient) Store(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Store", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *contentStoreClient) Retrieve(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Retrieve", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *contentStoreClient) Exists(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Exists", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _ContentStore_Store_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ContentStoreServer).Store(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Store"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ContentStoreServer).Store(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _ContentStore_Retrieve_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ContentStoreServer).Retrieve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Retrieve"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ContentStoreServer).Retrieve(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _ContentStore_Exists_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ContentStoreServer).Exists(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Exists"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ContentStoreServer).Exists(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ContentStore_ServiceDesc is the grpc.ServiceDesc for the ContentStore service.
var ContentStore_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ContentStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Store", Handler: _ContentStore_Store_Handler},
		{MethodName: "Retrieve", Handler: _ContentStore_Retrieve_Handler},
		{MethodName: "Exists", Handler: _ContentStore_Exists_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "content_store.proto",
}
