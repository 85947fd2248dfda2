package storage

import (
	"context"
	"errors"

	"github.com/ipfs/go-cid"
)

// Fallback provides deterministic, ordered fallback across several stores.
//
// Reads try Stores in slice order; callers MUST supply a fixed order.
// Store writes only to the first store.
type Fallback struct {
	Stores []ContentStore
}

var _ ContentStore = Fallback{}

func (f Fallback) Store(ctx context.Context, id cid.Cid, data []byte) error {
	if len(f.Stores) == 0 {
		return errors.New("storage: Fallback has no stores")
	}
	return f.Stores[0].Store(ctx, id, data)
}

func (f Fallback) Retrieve(ctx context.Context, id cid.Cid) ([]byte, error) {
	for _, s := range f.Stores {
		b, err := s.Retrieve(ctx, id)
		if err == nil {
			return b, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (f Fallback) Exists(ctx context.Context, id cid.Cid) (bool, error) {
	for _, s := range f.Stores {
		ok, err := s.Exists(ctx, id)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
