// Package hashing derives IPFS-compatible content identifiers for catalyst
// content files, entity files, and ADR32 content manifests.
package hashing

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

var (
	ErrUnsupportedHash = errors.New("hashing: unsupported content identifier")
	ErrHashMismatch    = errors.New("hashing: content does not match hash")
)

// Family is a content identifier scheme. Hashes of different families are
// never comparable.
type Family int

const (
	FamilyUnknown Family = iota
	// FamilyLegacy is CIDv0 (dag-pb, base58btc, "Qm...").
	// Only kept to reproduce previously issued identifiers.
	FamilyLegacy
	// FamilyModern is CIDv1 with raw leaves (base32, "bafkrei..."/"bafybei...").
	FamilyModern
)

func (f Family) String() string {
	switch f {
	case FamilyLegacy:
		return "legacy"
	case FamilyModern:
		return "modern"
	default:
		return "unknown"
	}
}

// Hash returns the content identifier of data in family f, or "" if f is
// unknown. Callers holding a Family from outside this package should use
// HashCID, which reports that error.
func (f Family) Hash(data []byte) string {
	id, err := f.HashCID(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// HashCID returns the content identifier of data in family f.
func (f Family) HashCID(data []byte) (cid.Cid, error) {
	switch f {
	case FamilyLegacy:
		return layoutV0.buildFile(data)
	case FamilyModern:
		return layoutV1.buildFile(data)
	default:
		return cid.Undef, fmt.Errorf("hashing: unknown family %d", int(f))
	}
}

// HashV0 returns the legacy CIDv0 of data, as `ipfs add --cid-version=0` would.
func HashV0(data []byte) string {
	return FamilyLegacy.Hash(data)
}

// HashV0CID is HashV0 returning the parsed identifier.
func HashV0CID(data []byte) (cid.Cid, error) {
	return FamilyLegacy.HashCID(data)
}

// HashV1 returns the CIDv1 of data, as `ipfs add --cid-version=1 --raw-leaves` would.
func HashV1(data []byte) string {
	return FamilyModern.Hash(data)
}

// HashV1CID is HashV1 returning the parsed identifier.
func HashV1CID(data []byte) (cid.Cid, error) {
	return FamilyModern.HashCID(data)
}

// FamilyOfCID reports the family that can have produced id.
func FamilyOfCID(id cid.Cid) Family {
	if !id.Defined() {
		return FamilyUnknown
	}
	pref := id.Prefix()
	if pref.MhType != multihash.SHA2_256 {
		return FamilyUnknown
	}
	switch {
	case pref.Version == 0:
		return FamilyLegacy
	case pref.Version == 1 && (pref.Codec == cid.Raw || pref.Codec == cid.DagProtobuf):
		return FamilyModern
	default:
		return FamilyUnknown
	}
}

// FamilyOf parses hash and reports its family.
func FamilyOf(hash string) (Family, error) {
	id, err := cid.Decode(hash)
	if err != nil {
		return FamilyUnknown, fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
	}
	f := FamilyOfCID(id)
	if f == FamilyUnknown {
		return FamilyUnknown, ErrUnsupportedHash
	}
	return f, nil
}

// VerifyCID recomputes the identifier of data in the family of id.
func VerifyCID(id cid.Cid, data []byte) error {
	f := FamilyOfCID(id)
	if f == FamilyUnknown {
		return ErrUnsupportedHash
	}
	got, err := f.HashCID(data)
	if err != nil {
		return err
	}
	if !got.Equals(id) {
		return ErrHashMismatch
	}
	return nil
}

// Verify is VerifyCID for a string identifier.
func Verify(hash string, data []byte) error {
	id, err := cid.Decode(hash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
	}
	return VerifyCID(id, data)
}
