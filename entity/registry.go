package entity

import (
	"fmt"
	"slices"
)

// Parameters is the deployment policy for one entity type.
type Parameters struct {
	Validate    func(metadata any) bool
	MaxSizeInMB int64
}

// MaxSizeInBytes is MaxSizeInMB in bytes (1 MB = 1024*1024 bytes).
func (p Parameters) MaxSizeInBytes() int64 {
	return p.MaxSizeInMB * 1024 * 1024
}

var parameters = map[Type]Parameters{
	TypeScene:    {Validate: validateScene, MaxSizeInMB: 15},
	TypeProfile:  {Validate: validateProfile, MaxSizeInMB: 2},
	TypeWearable: {Validate: validateWearable, MaxSizeInMB: 3},
	TypeStore:    {Validate: validateStore, MaxSizeInMB: 1},
}

// ParametersFor returns the policy for t. An unknown type is a
// configuration error.
func ParametersFor(t Type) (Parameters, error) {
	p, ok := parameters[t]
	if !ok {
		return Parameters{}, newError(KindUnknownEntityType, "ENTITY-TYPE-001", string(t), fmt.Sprintf("Unknown entity type: %s", t))
	}
	return p, nil
}

// Types lists the registered entity types, sorted.
func Types() []Type {
	out := make([]Type, 0, len(parameters))
	for t := range parameters {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// ValidateMetadata reports whether metadata is acceptable for t.
func ValidateMetadata(t Type, metadata any) (bool, error) {
	p, err := ParametersFor(t)
	if err != nil {
		return false, err
	}
	return p.Validate(metadata), nil
}

// ValidateSize reports whether sizeInBytes of content fits t's limit.
func ValidateSize(t Type, sizeInBytes int64) (bool, error) {
	p, err := ParametersFor(t)
	if err != nil {
		return false, err
	}
	return sizeInBytes <= p.MaxSizeInBytes(), nil
}
