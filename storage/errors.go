package storage

import (
	"errors"

	"github.com/ipfs/go-cid"

	"github.com/decentraland/catalyst-commons-go/hashing"
)

var (
	ErrNotFound     = errors.New("storage: not found")
	ErrInvalidHash  = errors.New("storage: invalid content identifier")
	ErrHashMismatch = errors.New("storage: content does not match identifier")
	ErrImmutable    = errors.New("storage: immutable object mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Verify checks data against id, mapping hashing errors to storage errors.
func Verify(id cid.Cid, data []byte) error {
	if !id.Defined() {
		return ErrInvalidHash
	}
	switch err := hashing.VerifyCID(id, data); {
	case err == nil:
		return nil
	case errors.Is(err, hashing.ErrUnsupportedHash):
		return ErrInvalidHash
	case errors.Is(err, hashing.ErrHashMismatch):
		return ErrHashMismatch
	default:
		return err
	}
}
