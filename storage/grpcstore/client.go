package grpcstore

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/decentraland/catalyst-commons-go/storage"
)

// Client implements storage.ContentStore over the ContentStore gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client ContentStoreClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ storage.ContentStore = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	if opts.Timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		defer cancel()
		dialOpts = append(dialOpts, grpc.WithBlock())
		cc, err := grpc.DialContext(ctx, target, dialOpts...)
		if err != nil {
			return nil, err
		}
		return NewClient(cc), nil
	}
	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an established connection. Close closes cc.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewContentStoreClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Store(ctx context.Context, id cid.Cid, data []byte) error {
	if err := storage.Verify(id, data); err != nil {
		return err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	ctx = metadata.AppendToOutgoingContext(ctx, ContentIDHeader, id.String())
	reply, err := c.client.Store(ctx, wrapperspb.Bytes(data))
	if err != nil {
		return mapRPC(err)
	}
	got, err := cid.Decode(reply.GetValue())
	if err != nil || !got.Equals(id) {
		return storage.ErrHashMismatch
	}
	return nil
}

func (c *Client) Retrieve(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidHash
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Retrieve(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, mapRPC(err)
	}
	b := reply.GetValue()
	if err := storage.Verify(id, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Client) Exists(ctx context.Context, id cid.Cid) (bool, error) {
	if !id.Defined() {
		return false, nil
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Exists(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
