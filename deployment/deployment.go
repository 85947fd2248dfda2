// Package deployment prepares entity deployments and moves them between
// content stores and bundle files.
package deployment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ipfs/go-cid"

	"github.com/decentraland/catalyst-commons-go/entity"
	"github.com/decentraland/catalyst-commons-go/storage"
)

var (
	ErrInvalidMetadata = errors.New("deployment: metadata rejected by entity type")
	ErrTooLarge        = errors.New("deployment: content exceeds entity type size limit")
	ErrMissingContent  = errors.New("deployment: referenced content file not present")
)

// PrepareOptions describe a deployment before hashing.
type PrepareOptions struct {
	// Version defaults to entity.CurrentVersion when empty.
	Version   entity.Version
	Type      entity.Type
	Pointers  []entity.Pointer
	Timestamp entity.Timestamp
	// Files maps file names to the bytes to upload.
	Files map[string][]byte
	// ExtraContent references files that are already stored and are not
	// uploaded again.
	ExtraContent []entity.ContentItemReference
	Metadata     any
}

// Deployment is an entity together with the bytes it is built from.
type Deployment struct {
	Entity     entity.Entity
	EntityFile []byte
	// Files maps content hashes to file bytes. Identical files share one entry.
	Files map[entity.ContentFileHash][]byte
}

// Prepare hashes every file in the version's hash family, builds the
// entity and checks it against the type's registry parameters.
//
// Content references list Files in file-name order, then ExtraContent in
// caller order. The size limit applies to the bytes of Files.
func Prepare(opts PrepareOptions) (Deployment, error) {
	version := opts.Version
	if version == "" {
		version = entity.CurrentVersion
	}
	family, err := version.HashFamily()
	if err != nil {
		return Deployment{}, err
	}
	params, err := entity.ParametersFor(opts.Type)
	if err != nil {
		return Deployment{}, err
	}

	names := make([]string, 0, len(opts.Files))
	for name := range opts.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	files := make(map[entity.ContentFileHash][]byte, len(names))
	content := make([]entity.ContentItemReference, 0, len(names)+len(opts.ExtraContent))
	var size int64
	for _, name := range names {
		b := opts.Files[name]
		id, err := family.HashCID(b)
		if err != nil {
			return Deployment{}, fmt.Errorf("deployment: hash %s: %w", name, err)
		}
		h := id.String()
		if _, ok := files[h]; !ok {
			files[h] = b
			size += int64(len(b))
		}
		content = append(content, entity.ContentItemReference{File: name, Hash: h})
	}
	content = append(content, opts.ExtraContent...)

	e, file, err := entity.Build(entity.Options{
		Version:   version,
		Type:      opts.Type,
		Pointers:  opts.Pointers,
		Timestamp: opts.Timestamp,
		Content:   content,
		Metadata:  opts.Metadata,
	})
	if err != nil {
		return Deployment{}, err
	}

	if !params.Validate(opts.Metadata) {
		return Deployment{}, fmt.Errorf("%w: %s", ErrInvalidMetadata, opts.Type)
	}
	if size > params.MaxSizeInBytes() {
		return Deployment{}, fmt.Errorf("%w: %d bytes, %s allows %d MB", ErrTooLarge, size, opts.Type, params.MaxSizeInMB)
	}
	return Deployment{Entity: e, EntityFile: file, Files: files}, nil
}

// Hashes returns the hashes of d.Files, sorted.
func (d Deployment) Hashes() []entity.ContentFileHash {
	out := make([]entity.ContentFileHash, 0, len(d.Files))
	for h := range d.Files {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// UploadResult reports which objects Upload wrote and which were already present.
type UploadResult struct {
	Stored  []string
	Skipped []string
}

// Upload stores the entity file and every content file of d. Objects the
// store already has are skipped. Content files are stored before the entity
// file so a stored entity never references missing content.
func Upload(ctx context.Context, store storage.ContentStore, d Deployment) (UploadResult, error) {
	var res UploadResult
	if store == nil {
		return res, errors.New("deployment: nil content store")
	}
	put := func(hash string, data []byte) error {
		id, err := cid.Decode(hash)
		if err != nil {
			return fmt.Errorf("deployment: %s: %w", hash, storage.ErrInvalidHash)
		}
		ok, err := store.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("deployment: exists %s: %w", hash, err)
		}
		if ok {
			res.Skipped = append(res.Skipped, hash)
			return nil
		}
		if err := store.Store(ctx, id, data); err != nil {
			return fmt.Errorf("deployment: store %s: %w", hash, err)
		}
		res.Stored = append(res.Stored, hash)
		return nil
	}

	for _, h := range d.Hashes() {
		if err := put(h, d.Files[h]); err != nil {
			return res, err
		}
	}
	if err := put(d.Entity.ID, d.EntityFile); err != nil {
		return res, err
	}
	return res, nil
}

// Fetch reads entity id and all content it references from store.
func Fetch(ctx context.Context, store storage.ContentStore, id entity.ID) (Deployment, error) {
	if store == nil {
		return Deployment{}, errors.New("deployment: nil content store")
	}
	get := func(hash string) ([]byte, error) {
		c, err := cid.Decode(hash)
		if err != nil {
			return nil, fmt.Errorf("deployment: %s: %w", hash, storage.ErrInvalidHash)
		}
		b, err := store.Retrieve(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("deployment: retrieve %s: %w", hash, err)
		}
		return b, nil
	}

	file, err := get(id)
	if err != nil {
		return Deployment{}, err
	}
	e, err := entity.ParseEntityFile(id, file)
	if err != nil {
		return Deployment{}, err
	}
	files := make(map[entity.ContentFileHash][]byte, len(e.Content))
	for _, h := range e.ContentHashes() {
		if _, ok := files[h]; ok {
			continue
		}
		b, err := get(h)
		if err != nil {
			return Deployment{}, err
		}
		files[h] = b
	}
	return Deployment{Entity: e, EntityFile: file, Files: files}, nil
}
