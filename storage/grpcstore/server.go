package grpcstore

import (
	"context"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/decentraland/catalyst-commons-go/storage"
)

// Server exposes a storage.ContentStore over the ContentStore gRPC service.
type Server struct {
	UnimplementedContentStoreServer
	Backend storage.ContentStore
}

// NewServer wraps s.
func NewServer(s storage.ContentStore) *Server { return &Server{Backend: s} }

func (s *Server) backend() (storage.ContentStore, error) {
	if s == nil || s.Backend == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing content store")
	}
	return s.Backend, nil
}

func decodeID(v string) (cid.Cid, error) {
	id, err := cid.Decode(v)
	if err != nil || !id.Defined() {
		return cid.Undef, status.Error(codes.InvalidArgument, storage.ErrInvalidHash.Error())
	}
	return id, nil
}

func (s *Server) Store(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	backend, err := s.backend()
	if err != nil {
		return nil, err
	}
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(ContentIDHeader)
	if len(vals) != 1 {
		return nil, status.Errorf(codes.InvalidArgument, "expected exactly one %s header", ContentIDHeader)
	}
	id, err := decodeID(vals[0])
	if err != nil {
		return nil, err
	}
	// Verify on the server too; backends are not trusted to.
	if err := storage.Verify(id, in.GetValue()); err != nil {
		return nil, mapErr(err)
	}
	if err := backend.Store(ctx, id, in.GetValue()); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(id.String()), nil
}

func (s *Server) Retrieve(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	backend, err := s.backend()
	if err != nil {
		return nil, err
	}
	id, err := decodeID(in.GetValue())
	if err != nil {
		return nil, err
	}
	b, err := backend.Retrieve(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := storage.Verify(id, b); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Exists(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	backend, err := s.backend()
	if err != nil {
		return nil, err
	}
	id, err := decodeID(in.GetValue())
	if err != nil {
		return nil, err
	}
	ok, err := backend.Exists(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(ok), nil
}
