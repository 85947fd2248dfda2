// Package leveldbstore keeps content objects in an embedded LevelDB database.
package leveldbstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/decentraland/catalyst-commons-go/storage"
)

var keyPrefix = []byte("content/")

// Store maps content/<id> to object bytes.
type Store struct {
	db *leveldb.DB
}

var _ storage.ContentStore = (*Store)(nil)

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("leveldbstore: path is required")
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbstore: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func key(id cid.Cid) []byte {
	return append(append([]byte(nil), keyPrefix...), id.Bytes()...)
}

func (s *Store) Store(ctx context.Context, id cid.Cid, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.Verify(id, data); err != nil {
		return err
	}
	k := key(id)
	existing, err := s.db.Get(k, nil)
	switch {
	case err == nil:
		if !bytes.Equal(existing, data) {
			return storage.ErrImmutable
		}
		return nil
	case !errors.Is(err, leveldb.ErrNotFound):
		return fmt.Errorf("leveldbstore: get %s: %w", id, err)
	}
	if err := s.db.Put(k, data, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("leveldbstore: put %s: %w", id, err)
	}
	return nil
}

func (s *Store) Retrieve(ctx context.Context, id cid.Cid) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !id.Defined() {
		return nil, storage.ErrInvalidHash
	}
	b, err := s.db.Get(key(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldbstore: get %s: %w", id, err)
	}
	if err := storage.Verify(id, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) Exists(ctx context.Context, id cid.Cid) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !id.Defined() {
		return false, nil
	}
	ok, err := s.db.Has(key(id), nil)
	if err != nil {
		return false, fmt.Errorf("leveldbstore: has %s: %w", id, err)
	}
	return ok, nil
}
