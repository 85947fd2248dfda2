package storage_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ipfs/go-cid"

	"github.com/decentraland/catalyst-commons-go/hashing"
	"github.com/decentraland/catalyst-commons-go/storage"
	"github.com/decentraland/catalyst-commons-go/storage/testkit"
)

// memStore is an in-memory ContentStore for exercising composite stores.
type memStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	storeErr error
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Store(_ context.Context, id cid.Cid, data []byte) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	if err := storage.Verify(id, data); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[id.KeyString()] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Retrieve(_ context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidHash
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[id.KeyString()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *memStore) Exists(_ context.Context, id cid.Cid) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[id.KeyString()]
	return ok, nil
}

func TestMemStore_Conformance(t *testing.T) {
	testkit.RunConformance(t, func(t *testing.T) storage.ContentStore { return newMemStore() })
}

func TestFallback_Conformance(t *testing.T) {
	testkit.RunConformance(t, func(t *testing.T) storage.ContentStore {
		return storage.Fallback{Stores: []storage.ContentStore{newMemStore(), newMemStore()}}
	})
}

func TestReplicating_Conformance(t *testing.T) {
	testkit.RunConformance(t, func(t *testing.T) storage.ContentStore {
		return storage.Replicating{Backends: []storage.NamedStore{
			{Name: "a", Store: newMemStore()},
			{Name: "b", Store: newMemStore()},
		}}
	})
}

func TestFallback_ReadsInOrder(t *testing.T) {
	ctx := context.Background()
	first, second := newMemStore(), newMemStore()
	data := []byte("only in second")
	id, _ := hashing.HashV0CID(data)
	if err := second.Store(ctx, id, data); err != nil {
		t.Fatalf("Store: %v", err)
	}

	f := storage.Fallback{Stores: []storage.ContentStore{first, second}}
	got, err := f.Retrieve(ctx, id)
	if err != nil || string(got) != string(data) {
		t.Fatalf("Retrieve: %q, %v", got, err)
	}
	if ok, err := f.Exists(ctx, id); err != nil || !ok {
		t.Fatalf("Exists: %v, %v", ok, err)
	}

	other := []byte("written")
	otherID, _ := hashing.HashV1CID(other)
	if err := f.Store(ctx, otherID, other); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if ok, _ := second.Exists(ctx, otherID); ok {
		t.Fatalf("Fallback must write only to the first store")
	}
}

func TestReplicating_NamesFailingBackend(t *testing.T) {
	ctx := context.Background()
	broken := newMemStore()
	broken.storeErr = errors.New("disk full")
	r := storage.Replicating{Backends: []storage.NamedStore{
		{Name: "ok", Store: newMemStore()},
		{Name: "broken", Store: broken},
	}}
	data := []byte("x")
	id, _ := hashing.HashV1CID(data)
	err := r.Store(ctx, id, data)
	if err == nil || !strings.Contains(err.Error(), `"broken"`) {
		t.Fatalf("expected error naming backend, got %v", err)
	}
	missing, err := r.Missing(ctx, id)
	if err != nil {
		t.Fatalf("Missing: %v", err)
	}
	if missing["ok"] || !missing["broken"] {
		t.Fatalf("unexpected missing map: %v", missing)
	}
	if ok, err := r.Exists(ctx, id); err != nil || ok {
		t.Fatalf("Exists on partially replicated object: ok=%v err=%v", ok, err)
	}
	if got, err := r.Retrieve(ctx, id); err != nil || string(got) != "x" {
		t.Fatalf("Retrieve from the backend that has it: %q %v", got, err)
	}
}

func TestVerify_MapsErrors(t *testing.T) {
	data := []byte("data")
	id, _ := hashing.HashV1CID(data)
	if err := storage.Verify(id, data); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := storage.Verify(id, []byte("other")); !errors.Is(err, storage.ErrHashMismatch) {
		t.Fatalf("mismatch: got %v", err)
	}
	if err := storage.Verify(cid.Undef, data); !errors.Is(err, storage.ErrInvalidHash) {
		t.Fatalf("undef: got %v", err)
	}
}
