// Package s3store is a content store backed by an S3 (or S3-compatible) bucket.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/ipfs/go-cid"

	"github.com/decentraland/catalyst-commons-go/storage"
)

// API is the subset of *s3.Client the store uses.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type Options struct {
	Bucket string
	// Prefix is prepended to every object key, e.g. "contents/".
	Prefix string
	// Region overrides the region from the shared AWS config.
	Region string
	// Endpoint targets an S3-compatible service such as MinIO.
	Endpoint string
	// PathStyle forces path-style addressing, which most S3-compatible
	// services require.
	PathStyle bool
}

// Store keeps one object per content identifier under Prefix+id.
type Store struct {
	api    API
	bucket string
	prefix string
}

var _ storage.ContentStore = (*Store)(nil)

// New loads the default AWS configuration (environment, shared files,
// instance roles) and returns a store for opts.Bucket.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3store: bucket is required")
	}
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3store: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return NewWithAPI(client, opts.Bucket, opts.Prefix), nil
}

// NewWithAPI returns a store using an existing client.
func NewWithAPI(api API, bucket, prefix string) *Store {
	return &Store{api: api, bucket: bucket, prefix: prefix}
}

func (s *Store) key(id cid.Cid) *string {
	return aws.String(s.prefix + id.String())
}

func (s *Store) Store(ctx context.Context, id cid.Cid, data []byte) error {
	if err := storage.Verify(id, data); err != nil {
		return err
	}
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		return s.checkExisting(ctx, id, data)
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         s.key(id),
		Body:        bytes.NewReader(data),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			// Lost a race with another writer of the same id.
			return s.checkExisting(ctx, id, data)
		}
		return fmt.Errorf("s3store: put %s: %w", id, err)
	}
	return nil
}

func (s *Store) checkExisting(ctx context.Context, id cid.Cid, data []byte) error {
	existing, err := s.Retrieve(ctx, id)
	if err != nil || !bytes.Equal(existing, data) {
		return storage.ErrImmutable
	}
	return nil
}

func (s *Store) Retrieve(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidHash
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(id),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("s3store: get %s: %w", id, err)
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3store: read %s: %w", id, err)
	}
	if err := storage.Verify(id, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) Exists(ctx context.Context, id cid.Cid) (bool, error) {
	if !id.Defined() {
		return false, nil
	}
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(id),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("s3store: head %s: %w", id, err)
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && strings.EqualFold(apiErr.ErrorCode(), "PreconditionFailed")
}
