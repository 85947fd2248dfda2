// Package entity builds and verifies content-addressed catalyst entities.
//
// An entity binds pointers, content file references and metadata into one
// document whose id is the content identifier of its own canonical
// serialization (without the id).
package entity

import (
	"fmt"

	"github.com/decentraland/catalyst-commons-go/hashing"
)

type (
	ContentFileHash = string
	ID              = ContentFileHash
	Pointer         = string
	Timestamp       = int64
)

// ContentItemReference binds a file name inside the entity to its hash.
type ContentItemReference = hashing.ContentReference

// Type is the entity type tag. The set is open; the registry knows the
// types it has policies for.
type Type string

const (
	TypeScene    Type = "scene"
	TypeProfile  Type = "profile"
	TypeWearable Type = "wearable"
	TypeStore    Type = "store"
)

// Version is the entity protocol version.
type Version string

const (
	V2 Version = "v2"
	V3 Version = "v3"
	V4 Version = "v4"

	CurrentVersion = V4
)

type versionInfo struct {
	order   int
	retired bool
	family  hashing.Family
}

// versions is the exhaustive version table. A new version must be added
// here with its hash family.
var versions = map[Version]versionInfo{
	V2: {order: 2, retired: true, family: hashing.FamilyUnknown},
	V3: {order: 3, family: hashing.FamilyLegacy},
	V4: {order: 4, family: hashing.FamilyModern},
}

// Known reports whether v is a protocol version this package knows.
func (v Version) Known() bool {
	_, ok := versions[v]
	return ok
}

// Retired reports whether v can no longer be built.
func (v Version) Retired() bool {
	return versions[v].retired
}

// Compare orders versions; unknown versions sort first.
func (v Version) Compare(o Version) int {
	a, b := versions[v].order, versions[o].order
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// HashFamily returns the hash family used to derive ids for v.
func (v Version) HashFamily() (hashing.Family, error) {
	info, ok := versions[v]
	if !ok {
		return hashing.FamilyUnknown, newError(KindUnsupportedVersion, "ENTITY-VER-002", string(v), fmt.Sprintf("unknown entity version %q", v))
	}
	if info.retired {
		return hashing.FamilyUnknown, newError(KindUnsupportedVersion, "ENTITY-VER-001", string(v), fmt.Sprintf("%s is not supported.", v))
	}
	return info.family, nil
}

// Entity is a built, identity-bearing entity. Treat it as immutable:
// any change requires building a new entity.
type Entity struct {
	ID        ID                     `json:"id"`
	Version   Version                `json:"version"`
	Type      Type                   `json:"type"`
	Pointers  []Pointer              `json:"pointers"`
	Timestamp Timestamp              `json:"timestamp"`
	Content   []ContentItemReference `json:"content,omitempty"`
	Metadata  any                    `json:"metadata,omitempty"`
}

// ContentHashes returns the hash of every referenced file, in entity order.
func (e Entity) ContentHashes() []ContentFileHash {
	out := make([]ContentFileHash, 0, len(e.Content))
	for _, c := range e.Content {
		out = append(out, c.Hash)
	}
	return out
}

// payload is the hashed form of an entity. It has no id field so the id can
// never be part of its own preimage.
//
// Content is a pointer so that a nil list is omitted while an empty list is
// written as [].
type payload struct {
	Version   Version                 `json:"version"`
	Type      Type                    `json:"type"`
	Pointers  []Pointer               `json:"pointers"`
	Timestamp Timestamp               `json:"timestamp"`
	Content   *[]ContentItemReference `json:"content,omitempty"`
	Metadata  any                     `json:"metadata,omitempty"`
}

func (p payload) withID(id ID) Entity {
	e := Entity{
		ID:        id,
		Version:   p.Version,
		Type:      p.Type,
		Pointers:  p.Pointers,
		Timestamp: p.Timestamp,
		Metadata:  p.Metadata,
	}
	if p.Content != nil {
		e.Content = *p.Content
	}
	return e
}
