// Package storage defines content stores for entity files and content files.
//
// Objects are keyed by their content identifier in either hash family
// (CIDv0 or CIDv1); stores verify bytes against the identifier on every
// write and read.
package storage

import (
	"context"

	"github.com/ipfs/go-cid"
)

// ContentStore is a content-addressable store keyed by content identifier.
//
// Contract:
//   - Store MUST verify data hashes to id (in id's family) and MUST be idempotent.
//   - Stored objects MUST be immutable.
//   - Retrieve MUST return ErrNotFound when id is absent and MUST NOT return
//     bytes that do not hash to id.
type ContentStore interface {
	Store(ctx context.Context, id cid.Cid, data []byte) error
	Retrieve(ctx context.Context, id cid.Cid) ([]byte, error)
	Exists(ctx context.Context, id cid.Cid) (bool, error)
}
