package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/decentraland/catalyst-commons-go/internal/canonjson"
)

// Options are the caller-supplied fields of an entity.
type Options struct {
	// Version defaults to CurrentVersion when empty.
	Version   Version
	Type      Type
	Pointers  []Pointer
	Timestamp Timestamp
	// Content is omitted from the entity file when nil and written as []
	// when empty.
	Content []ContentItemReference
	// Metadata is any JSON-encodable value. Pass a json.RawMessage to keep
	// the caller's key order.
	Metadata any
}

// Build validates opts, serializes the entity file and derives the entity
// id from it. It returns the entity and the exact bytes that were hashed.
//
// Validation order is fixed: pointers, version, content file names. On
// error nothing is returned.
func Build(opts Options) (Entity, []byte, error) {
	if len(opts.Pointers) == 0 {
		return Entity{}, nil, newError(KindValidation, "ENTITY-VAL-001", "", "All entities must have at least one pointer.")
	}

	version := opts.Version
	if version == "" {
		version = CurrentVersion
	}
	family, err := version.HashFamily()
	if err != nil {
		return Entity{}, nil, err
	}

	if err := checkDuplicateFiles(opts.Content); err != nil {
		return Entity{}, nil, err
	}

	p := payload{
		Version:   version,
		Type:      opts.Type,
		Pointers:  opts.Pointers,
		Timestamp: opts.Timestamp,
		Metadata:  opts.Metadata,
	}
	if opts.Content != nil {
		content := opts.Content
		p.Content = &content
	}

	file, err := canonjson.Marshal(p)
	if err != nil {
		return Entity{}, nil, wrapError(KindValidation, "ENTITY-VAL-002", "entity is not JSON-serializable", err)
	}
	id, err := family.HashCID(file)
	if err != nil {
		return Entity{}, nil, wrapError(KindInternal, "ENTITY-INTERNAL-001", "entity id derivation failed", err)
	}
	return p.withID(id.String()), file, nil
}

// checkDuplicateFiles rejects file names that collide once lower-cased,
// since content storage treats them as the same path.
func checkDuplicateFiles(content []ContentItemReference) error {
	seen := make(map[string]struct{}, len(content))
	for _, c := range content {
		key := strings.ToLower(c.File)
		if _, ok := seen[key]; ok {
			return newError(KindDuplicateContentFile, "ENTITY-CONTENT-001", c.File, fmt.Sprintf("duplicate content file: %s", c.File))
		}
		seen[key] = struct{}{}
	}
	return nil
}

// VerifyEntityFile checks that file is the canonical serialization of e
// and that e.ID is its hash under e's version.
func VerifyEntityFile(e Entity, file []byte) error {
	p := payload{
		Version:   e.Version,
		Type:      e.Type,
		Pointers:  e.Pointers,
		Timestamp: e.Timestamp,
		Metadata:  e.Metadata,
	}
	if e.Content != nil {
		content := e.Content
		p.Content = &content
	}
	want, err := canonjson.Marshal(p)
	if err != nil {
		return wrapError(KindValidation, "ENTITY-VAL-002", "entity is not JSON-serializable", err)
	}
	if !bytes.Equal(want, file) {
		return newError(KindIntegrity, "ENTITY-INT-002", e.ID, "entity file does not match entity")
	}
	return verifyID(e.Version, e.ID, file)
}

// ParseEntityFile decodes a stored entity file and checks it hashes to id.
// Metadata is returned as a json.RawMessage.
func ParseEntityFile(id ID, file []byte) (Entity, error) {
	var raw struct {
		Version   Version                 `json:"version"`
		Type      Type                    `json:"type"`
		Pointers  []Pointer               `json:"pointers"`
		Timestamp Timestamp               `json:"timestamp"`
		Content   *[]ContentItemReference `json:"content"`
		Metadata  json.RawMessage         `json:"metadata"`
	}
	if err := json.Unmarshal(file, &raw); err != nil {
		return Entity{}, wrapError(KindIntegrity, "ENTITY-INT-003", "malformed entity file", err)
	}
	if len(raw.Pointers) == 0 {
		return Entity{}, newError(KindValidation, "ENTITY-VAL-001", "", "All entities must have at least one pointer.")
	}
	if err := verifyID(raw.Version, id, file); err != nil {
		return Entity{}, err
	}
	p := payload{
		Version:   raw.Version,
		Type:      raw.Type,
		Pointers:  raw.Pointers,
		Timestamp: raw.Timestamp,
		Content:   raw.Content,
	}
	if len(raw.Metadata) > 0 {
		p.Metadata = raw.Metadata
	}
	return p.withID(id), nil
}

func verifyID(v Version, id ID, file []byte) error {
	family, err := v.HashFamily()
	if err != nil {
		return err
	}
	got, err := family.HashCID(file)
	if err != nil {
		return wrapError(KindInternal, "ENTITY-INTERNAL-001", "entity id derivation failed", err)
	}
	if got.String() != id {
		return newError(KindIntegrity, "ENTITY-INT-001", id, fmt.Sprintf("entity id mismatch: got %s want %s", got, id))
	}
	return nil
}
