// Package testkit is a conformance suite for storage.ContentStore implementations.
package testkit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"github.com/decentraland/catalyst-commons-go/hashing"
	"github.com/decentraland/catalyst-commons-go/storage"
)

// NewStore constructs a fresh, empty store for a test.
// The returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.ContentStore

func mustCID(t *testing.T, f hashing.Family, data []byte) cid.Cid {
	t.Helper()
	id, err := f.HashCID(data)
	if err != nil {
		t.Fatalf("HashCID(%s): %v", f, err)
	}
	return id
}

func RunConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	for _, family := range []hashing.Family{hashing.FamilyLegacy, hashing.FamilyModern} {
		family := family
		t.Run("StoreRetrieveRoundTrip/"+family.String(), func(t *testing.T) {
			s := newStore(t)
			want := []byte("hello, content store " + family.String())
			id := mustCID(t, family, want)

			if err := s.Store(ctx, id, want); err != nil {
				t.Fatalf("Store failed: %v", err)
			}
			got, err := s.Retrieve(ctx, id)
			if err != nil {
				t.Fatalf("Retrieve failed: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("Retrieve bytes mismatch")
			}
			if err := hashing.VerifyCID(id, got); err != nil {
				t.Fatalf("Retrieve returned bytes not matching id: %v", err)
			}
		})
	}

	t.Run("StoreIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := []byte("same bytes")
		id := mustCID(t, hashing.FamilyModern, b)
		if err := s.Store(ctx, id, b); err != nil {
			t.Fatalf("Store(1) failed: %v", err)
		}
		if err := s.Store(ctx, id, b); err != nil {
			t.Fatalf("Store(2) failed: %v", err)
		}
	})

	t.Run("StoreRejectsMismatch", func(t *testing.T) {
		s := newStore(t)
		id := mustCID(t, hashing.FamilyModern, []byte("expected"))
		err := s.Store(ctx, id, []byte("different"))
		if !errors.Is(err, storage.ErrHashMismatch) {
			t.Fatalf("Store mismatch: got %v want ErrHashMismatch", err)
		}
		if ok, _ := s.Exists(ctx, id); ok {
			t.Fatalf("mismatched bytes must not be stored")
		}
	})

	t.Run("ExistsAndNotFound", func(t *testing.T) {
		s := newStore(t)
		b := []byte("missing")
		id := mustCID(t, hashing.FamilyLegacy, b)

		ok, err := s.Exists(ctx, id)
		if err != nil || ok {
			t.Fatalf("Exists on missing id: ok=%v err=%v", ok, err)
		}
		if _, err := s.Retrieve(ctx, id); !storage.IsNotFound(err) {
			t.Fatalf("Retrieve missing: got err=%v want ErrNotFound", err)
		}
		if err := s.Store(ctx, id, b); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
		if ok, err := s.Exists(ctx, id); err != nil || !ok {
			t.Fatalf("Exists after Store: ok=%v err=%v", ok, err)
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		s := newStore(t)
		var undef cid.Cid
		if ok, _ := s.Exists(ctx, undef); ok {
			t.Fatalf("Exists should be false for undefined id")
		}
		if _, err := s.Retrieve(ctx, undef); err == nil {
			t.Fatalf("Retrieve should fail for undefined id")
		}
		if err := s.Store(ctx, undef, []byte("x")); err == nil {
			t.Fatalf("Store should fail for undefined id")
		}
	})
}
