package entity

import (
	"encoding/json"
	"testing"
)

func TestParametersFor(t *testing.T) {
	want := map[Type]int64{
		TypeScene:    15,
		TypeProfile:  2,
		TypeWearable: 3,
		TypeStore:    1,
	}
	for typ, mb := range want {
		p, err := ParametersFor(typ)
		if err != nil {
			t.Fatalf("ParametersFor(%s): %v", typ, err)
		}
		if p.MaxSizeInMB != mb {
			t.Fatalf("%s: max size %d want %d", typ, p.MaxSizeInMB, mb)
		}
	}
	if got := Types(); len(got) != 4 || got[0] != TypeProfile {
		t.Fatalf("Types: %v", got)
	}
}

func TestParametersFor_UnknownType(t *testing.T) {
	_, err := ParametersFor("emote")
	if !IsKind(err, KindUnknownEntityType) || RuleID(err) != "ENTITY-TYPE-001" {
		t.Fatalf("expected unknown type error, got %v", err)
	}
	if _, err := ValidateMetadata("emote", nil); !IsKind(err, KindUnknownEntityType) {
		t.Fatalf("ValidateMetadata: expected unknown type error, got %v", err)
	}
	if _, err := ValidateSize("emote", 0); !IsKind(err, KindUnknownEntityType) {
		t.Fatalf("ValidateSize: expected unknown type error, got %v", err)
	}
}

func TestValidateSize(t *testing.T) {
	ok, err := ValidateSize(TypeStore, 1024*1024)
	if err != nil || !ok {
		t.Fatalf("1MB store: ok=%v err=%v", ok, err)
	}
	ok, err = ValidateSize(TypeStore, 1024*1024+1)
	if err != nil || ok {
		t.Fatalf("1MB+1 store: ok=%v err=%v", ok, err)
	}
}

func TestValidateMetadata(t *testing.T) {
	cases := []struct {
		name string
		typ  Type
		meta any
		want bool
	}{
		{"scene ok", TypeScene, json.RawMessage(`{"main":"bin/game.js","scene":{"base":"0,0","parcels":["0,0","-1,0"]}}`), true},
		{"scene bad parcel", TypeScene, json.RawMessage(`{"main":"bin/game.js","scene":{"base":"0,0","parcels":["a,b"]}}`), false},
		{"scene missing main", TypeScene, map[string]any{"scene": map[string]any{"base": "0,0", "parcels": []string{"0,0"}}}, false},
		{"profile ok", TypeProfile, map[string]any{"avatars": []any{map[string]any{"name": "n", "avatar": map[string]any{}}}}, true},
		{"profile no avatars", TypeProfile, map[string]any{"avatars": []any{}}, false},
		{"wearable ok", TypeWearable, json.RawMessage(`{"id":"urn:w","name":"hat","data":{"category":"hat","representations":[{}]}}`), true},
		{"wearable no data", TypeWearable, json.RawMessage(`{"id":"urn:w","name":"hat"}`), false},
		{"store ok", TypeStore, map[string]string{"id": "urn:s", "owner": "0xabc"}, true},
		{"store nil", TypeStore, nil, false},
		{"not an object", TypeStore, []int{1}, false},
	}
	for _, tc := range cases {
		got, err := ValidateMetadata(tc.typ, tc.meta)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}
