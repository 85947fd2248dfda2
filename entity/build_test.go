package entity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/decentraland/catalyst-commons-go/hashing"
)

func sceneOptions(v Version) Options {
	return Options{
		Version:   v,
		Type:      TypeScene,
		Pointers:  []Pointer{"0,0", "0,1"},
		Timestamp: 1700000000000,
		Content: []ContentItemReference{
			{File: "scene.json", Hash: "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku"},
			{File: "bin/game.js", Hash: "QmbFMke1KXqnYyBBWxB74N4c5SBnJMVAiMNRcGu6x1AwQH"},
		},
		Metadata: map[string]any{"main": "bin/game.js"},
	}
}

func TestBuild_CanonicalEntityFile(t *testing.T) {
	e, file, err := Build(sceneOptions(V4))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := `{"version":"v4","type":"scene","pointers":["0,0","0,1"],"timestamp":1700000000000,` +
		`"content":[{"file":"scene.json","hash":"bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku"},` +
		`{"file":"bin/game.js","hash":"QmbFMke1KXqnYyBBWxB74N4c5SBnJMVAiMNRcGu6x1AwQH"}],` +
		`"metadata":{"main":"bin/game.js"}}`
	if string(file) != want {
		t.Fatalf("entity file mismatch:\n got %s\nwant %s", file, want)
	}
	if e.ID != hashing.HashV1([]byte(want)) {
		t.Fatalf("id must be HashV1 of the entity file")
	}
}

func TestBuild_IDMatchesVersionFamily(t *testing.T) {
	cases := []struct {
		version Version
		hash    func([]byte) string
	}{
		{V3, hashing.HashV0},
		{V4, hashing.HashV1},
		{"", hashing.HashV1},
	}
	for _, tc := range cases {
		e, file, err := Build(sceneOptions(tc.version))
		if err != nil {
			t.Fatalf("Build(%q): %v", tc.version, err)
		}
		if got := tc.hash(file); got != e.ID {
			t.Fatalf("Build(%q): id %s, recomputed %s", tc.version, e.ID, got)
		}
		if err := VerifyEntityFile(e, file); err != nil {
			t.Fatalf("VerifyEntityFile(%q): %v", tc.version, err)
		}
	}
}

func TestBuild_DefaultsToCurrentVersion(t *testing.T) {
	e, _, err := Build(sceneOptions(""))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if e.Version != CurrentVersion {
		t.Fatalf("version: got %s want %s", e.Version, CurrentVersion)
	}
}

func TestBuild_OmitsNilOptionalFields(t *testing.T) {
	_, file, err := Build(Options{Version: V4, Type: TypeProfile, Pointers: []Pointer{"0xabc"}, Timestamp: 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if string(file) != `{"version":"v4","type":"profile","pointers":["0xabc"],"timestamp":1}` {
		t.Fatalf("unexpected file: %s", file)
	}

	_, file, err = Build(Options{Version: V4, Type: TypeProfile, Pointers: []Pointer{"0xabc"}, Timestamp: 1, Content: []ContentItemReference{}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if string(file) != `{"version":"v4","type":"profile","pointers":["0xabc"],"timestamp":1,"content":[]}` {
		t.Fatalf("empty content must be kept: %s", file)
	}
}

func TestBuild_EmptyPointers(t *testing.T) {
	for _, v := range []Version{"", V2, V3, V4} {
		opts := sceneOptions(v)
		opts.Pointers = nil
		e, file, err := Build(opts)
		if !IsKind(err, KindValidation) || RuleID(err) != "ENTITY-VAL-001" {
			t.Fatalf("Build(%q) no pointers: got %v", v, err)
		}
		if e.ID != "" || file != nil {
			t.Fatalf("no partial result on failure")
		}
	}
}

func TestBuild_RetiredVersion(t *testing.T) {
	opts := sceneOptions(V2)
	opts.Content = append(opts.Content, ContentItemReference{File: "SCENE.JSON", Hash: "x"})
	_, _, err := Build(opts)
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if e.Kind != KindUnsupportedVersion || e.RuleID != "ENTITY-VER-001" || e.Subject != "v2" {
		t.Fatalf("unexpected error: %+v", e)
	}
	if e.Error() != "v2 is not supported." {
		t.Fatalf("message: %q", e.Error())
	}
}

func TestBuild_UnknownVersion(t *testing.T) {
	_, _, err := Build(sceneOptions("v9"))
	if !IsKind(err, KindUnsupportedVersion) || RuleID(err) != "ENTITY-VER-002" {
		t.Fatalf("unknown version: got %v", err)
	}
}

func TestBuild_DuplicateContentFile(t *testing.T) {
	opts := sceneOptions(V4)
	opts.Content = []ContentItemReference{
		{File: "a.png", Hash: "H1"},
		{File: "b.png", Hash: "H2"},
		{File: "A.PNG", Hash: "H3"},
	}
	_, _, err := Build(opts)
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if e.Kind != KindDuplicateContentFile || e.Subject != "A.PNG" {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestBuild_DuplicateCheckIsNotUnicodeNormalized(t *testing.T) {
	// "é" precomposed vs "e" + combining acute: distinct after lower-casing.
	opts := sceneOptions(V4)
	opts.Content = []ContentItemReference{
		{File: "caf\u00e9.png", Hash: "H1"},
		{File: "cafe\u0301.png", Hash: "H2"},
	}
	if _, _, err := Build(opts); err != nil {
		t.Fatalf("expected no duplicate, got %v", err)
	}
}

func TestBuild_RawMetadataKeepsOrder(t *testing.T) {
	opts := sceneOptions(V4)
	opts.Content = nil
	opts.Metadata = json.RawMessage(`{"z": true, "a": {"y": 1, "b": 2}}`)
	_, file, err := Build(opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := `{"version":"v4","type":"scene","pointers":["0,0","0,1"],"timestamp":1700000000000,"metadata":{"z":true,"a":{"y":1,"b":2}}}`
	if string(file) != want {
		t.Fatalf("got %s", file)
	}
}

func TestBuild_LineSeparatorsStayRaw(t *testing.T) {
	opts := sceneOptions(V4)
	opts.Content = nil
	opts.Metadata = map[string]any{"title": "a\u2028b"}
	e, file, err := Build(opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "{\"version\":\"v4\",\"type\":\"scene\",\"pointers\":[\"0,0\",\"0,1\"],\"timestamp\":1700000000000,\"metadata\":{\"title\":\"a\xe2\x80\xa8b\"}}"
	if string(file) != want {
		t.Fatalf("got %q", file)
	}
	if _, err := ParseEntityFile(e.ID, file); err != nil {
		t.Fatalf("ParseEntityFile: %v", err)
	}
}

func TestParseEntityFile_RoundTrip(t *testing.T) {
	built, file, err := Build(sceneOptions(V3))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	parsed, err := ParseEntityFile(built.ID, file)
	if err != nil {
		t.Fatalf("ParseEntityFile: %v", err)
	}
	if parsed.ID != built.ID || parsed.Version != V3 || len(parsed.Content) != 2 {
		t.Fatalf("unexpected parsed entity: %+v", parsed)
	}
	if err := VerifyEntityFile(parsed, file); err != nil {
		t.Fatalf("VerifyEntityFile(parsed): %v", err)
	}
}

func TestParseEntityFile_Tampered(t *testing.T) {
	built, file, err := Build(sceneOptions(V4))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tampered := append([]byte(nil), file...)
	tampered[len(tampered)-4] = 'X'
	if _, err := ParseEntityFile(built.ID, tampered); !IsKind(err, KindIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}

	other := built
	other.Timestamp++
	if err := VerifyEntityFile(other, file); !IsKind(err, KindIntegrity) {
		t.Fatalf("expected integrity error for modified entity, got %v", err)
	}
}

func TestVersion_Compare(t *testing.T) {
	if V2.Compare(V3) >= 0 || V4.Compare(V3) <= 0 || V4.Compare(V4) != 0 {
		t.Fatalf("unexpected version ordering")
	}
	if !V2.Retired() || V3.Retired() || V4.Retired() {
		t.Fatalf("only v2 is retired")
	}
	if Version("v9").Known() {
		t.Fatalf("v9 must be unknown")
	}
}
