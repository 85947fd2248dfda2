package storage

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"
)

// NamedStore associates a store with a stable backend name for reporting.
type NamedStore struct {
	Name  string
	Store ContentStore
}

// Replicating writes to every backend and reads with ordered fallback.
// Exists holds only once all backends have the object.
type Replicating struct {
	Backends []NamedStore
}

var _ ContentStore = Replicating{}

// Store writes data to all backends, stopping at the first failure.
// The error names the backend that failed.
func (r Replicating) Store(ctx context.Context, id cid.Cid, data []byte) error {
	if len(r.Backends) == 0 {
		return fmt.Errorf("storage: Replicating has no backends")
	}
	if err := Verify(id, data); err != nil {
		return err
	}
	for _, b := range r.Backends {
		if b.Store == nil {
			return fmt.Errorf("storage: nil store for backend %q", b.Name)
		}
		if err := b.Store.Store(ctx, id, data); err != nil {
			return fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
	}
	return nil
}

func (r Replicating) Retrieve(ctx context.Context, id cid.Cid) ([]byte, error) {
	for _, b := range r.Backends {
		if b.Store == nil {
			continue
		}
		out, err := b.Store.Retrieve(ctx, id)
		if err == nil {
			return out, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// Exists reports whether every backend has id. An object held by only some
// backends is not yet replicated, so callers that skip existing objects
// still write it.
func (r Replicating) Exists(ctx context.Context, id cid.Cid) (bool, error) {
	if len(r.Backends) == 0 {
		return false, nil
	}
	for _, b := range r.Backends {
		if b.Store == nil {
			return false, fmt.Errorf("storage: nil store for backend %q", b.Name)
		}
		ok, err := b.Store.Exists(ctx, id)
		if err != nil {
			return false, fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Missing reports, per backend name, whether id is absent. It is used to
// audit replication after partial failures.
func (r Replicating) Missing(ctx context.Context, id cid.Cid) (map[string]bool, error) {
	out := make(map[string]bool, len(r.Backends))
	for _, b := range r.Backends {
		if b.Store == nil {
			continue
		}
		ok, err := b.Store.Exists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
		out[b.Name] = !ok
	}
	return out, nil
}
