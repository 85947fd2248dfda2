package entity

import (
	"encoding/json"
	"regexp"
)

// Metadata validators check the document shape each entity type requires.
// They accept any value that encodes to a JSON object.

var parcelPattern = regexp.MustCompile(`^-?\d+,-?\d+$`)

type document map[string]any

func toDocument(metadata any) (document, bool) {
	if metadata == nil {
		return nil, false
	}
	var raw []byte
	switch m := metadata.(type) {
	case json.RawMessage:
		raw = m
	case []byte:
		raw = m
	default:
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, false
		}
		raw = b
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return nil, false
	}
	return doc, true
}

func (d document) str(key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok && s != ""
}

func (d document) obj(key string) (document, bool) {
	m, ok := d[key].(map[string]any)
	return document(m), ok
}

func (d document) list(key string) ([]any, bool) {
	l, ok := d[key].([]any)
	return l, ok && len(l) > 0
}

func validateScene(metadata any) bool {
	doc, ok := toDocument(metadata)
	if !ok {
		return false
	}
	if _, ok := doc.str("main"); !ok {
		return false
	}
	scene, ok := doc.obj("scene")
	if !ok {
		return false
	}
	base, ok := scene.str("base")
	if !ok || !parcelPattern.MatchString(base) {
		return false
	}
	parcels, ok := scene.list("parcels")
	if !ok {
		return false
	}
	for _, p := range parcels {
		s, ok := p.(string)
		if !ok || !parcelPattern.MatchString(s) {
			return false
		}
	}
	return true
}

func validateProfile(metadata any) bool {
	doc, ok := toDocument(metadata)
	if !ok {
		return false
	}
	avatars, ok := doc.list("avatars")
	if !ok {
		return false
	}
	for _, a := range avatars {
		m, ok := a.(map[string]any)
		if !ok {
			return false
		}
		avatar := document(m)
		if _, ok := avatar.str("name"); !ok {
			return false
		}
		if _, ok := avatar.obj("avatar"); !ok {
			return false
		}
	}
	return true
}

func validateWearable(metadata any) bool {
	doc, ok := toDocument(metadata)
	if !ok {
		return false
	}
	for _, key := range []string{"id", "name"} {
		if _, ok := doc.str(key); !ok {
			return false
		}
	}
	data, ok := doc.obj("data")
	if !ok {
		return false
	}
	if _, ok := data.str("category"); !ok {
		return false
	}
	_, ok = data.list("representations")
	return ok
}

func validateStore(metadata any) bool {
	doc, ok := toDocument(metadata)
	if !ok {
		return false
	}
	for _, key := range []string{"id", "owner"} {
		if _, ok := doc.str(key); !ok {
			return false
		}
	}
	return true
}
