package hashing

import (
	"slices"

	"github.com/decentraland/catalyst-commons-go/internal/canonjson"
)

// ContentReference binds a file name to the content identifier of its bytes.
type ContentReference struct {
	File string `json:"file"`
	Hash string `json:"hash"`
}

// ADR32Result is a serialized content manifest and its content identifier.
type ADR32Result struct {
	Data []byte
	Hash string
}

type adr32Entry struct {
	Key  string `json:"key"`
	Hash string `json:"hash"`
}

type adr32Manifest struct {
	Content  []adr32Entry `json:"content"`
	Metadata any          `json:"metadata,omitempty"`
}

// CalculateMultipleHashesADR32 computes the ADR32 hash of a set of content
// references plus optional metadata. The result does not depend on the
// order of refs, and is what gets committed on-chain.
func CalculateMultipleHashesADR32(refs []ContentReference, metadata any) (ADR32Result, error) {
	return calculateADR32(FamilyModern, refs, metadata)
}

// CalculateMultipleHashesADR32LegacyQmHash is CalculateMultipleHashesADR32
// hashed with the legacy family.
//
// Deprecated: only kept to reproduce previously issued "Qm" commitments.
func CalculateMultipleHashesADR32LegacyQmHash(refs []ContentReference, metadata any) (ADR32Result, error) {
	return calculateADR32(FamilyLegacy, refs, metadata)
}

// PrepareADR32Data returns the canonical manifest bytes that get hashed.
func PrepareADR32Data(refs []ContentReference, metadata any) ([]byte, error) {
	sorted := slices.Clone(refs)
	slices.SortStableFunc(sorted, compareReferences)

	content := make([]adr32Entry, 0, len(sorted))
	for _, r := range sorted {
		content = append(content, adr32Entry{Key: r.File, Hash: r.Hash})
	}
	return canonjson.Marshal(adr32Manifest{Content: content, Metadata: metadata})
}

func calculateADR32(f Family, refs []ContentReference, metadata any) (ADR32Result, error) {
	data, err := PrepareADR32Data(refs, metadata)
	if err != nil {
		return ADR32Result{}, err
	}
	id, err := f.HashCID(data)
	if err != nil {
		return ADR32Result{}, err
	}
	return ADR32Result{Data: data, Hash: id.String()}, nil
}

// compareReferences orders by hash, then by file name.
func compareReferences(a, b ContentReference) int {
	if c := canonjson.CompareStrings(a.Hash, b.Hash); c != 0 {
		return c
	}
	return canonjson.CompareStrings(a.File, b.File)
}
