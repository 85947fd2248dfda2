package hashing

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

func TestHashV0_KnownVectors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, "QmbFMke1KXqnYyBBWxB74N4c5SBnJMVAiMNRcGu6x1AwQH"},
		{"hello world newline", []byte("hello world\n"), "QmT78zSuBmuS4z925WZfrqQ1qHaJ56DQaTfyMUF7F8ff5o"},
	}
	for _, tc := range cases {
		if got := HashV0(tc.in); got != tc.want {
			t.Fatalf("%s: HashV0 got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestHashV1_KnownVectors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku"},
		{"hello world", []byte("hello world"), "bafkreifzjut3te2nhyekklss27nh3k72ysco7y32koao5eei66wof36n5e"},
	}
	for _, tc := range cases {
		if got := HashV1(tc.in); got != tc.want {
			t.Fatalf("%s: HashV1 got %s want %s", tc.name, got, tc.want)
		}
	}
}

// patternBytes returns n bytes cycling through 0..250, so neighbouring
// chunks differ.
func patternBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestHash_MultiChunkKnownVectors(t *testing.T) {
	cases := []struct {
		name   string
		size   int
		v0, v1 string
	}{
		// Root with two leaves.
		{"two chunks", ChunkSize + 1000,
			"QmXjrFdqUNB1w3dgyYcReVkvKSKAp3SdPknPb8Y1oHGdFF",
			"bafybeifveyx4virafv2qt2jfzgl5vq7g7vfemac4cmc2kn7v35o2ktkzcq"},
		// 175 leaves: a full 174-leaf subtree plus one wrapping the last leaf.
		{"second tree level", 175 * ChunkSize,
			"Qmbp67kThKoJFnWu7pUgwCu81WttemMnD13oG4uj9DiY5E",
			"bafybeie73j3heycdgkdsehpoe6cxh2y3iywtf6djpi3dzqrywevvjmazny"},
	}
	for _, tc := range cases {
		if tc.size > MaxLinksPerNode*ChunkSize && testing.Short() {
			continue
		}
		data := patternBytes(tc.size)
		if got := HashV0(data); got != tc.v0 {
			t.Fatalf("%s: HashV0 got %s want %s", tc.name, got, tc.v0)
		}
		if got := HashV1(data); got != tc.v1 {
			t.Fatalf("%s: HashV1 got %s want %s", tc.name, got, tc.v1)
		}
	}
}

func TestHashV1_SingleChunkIsRawBlock(t *testing.T) {
	data := bytes.Repeat([]byte{0x5a}, ChunkSize)
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	want := cid.NewCidV1(cid.Raw, mh).String()
	if got := HashV1(data); got != want {
		t.Fatalf("single chunk: got %s want %s", got, want)
	}
	if !strings.HasPrefix(want, "bafkrei") {
		t.Fatalf("unexpected raw CID prefix: %s", want)
	}
}

func TestHashV1_MultiChunkIsDagPBRoot(t *testing.T) {
	data := bytes.Repeat([]byte{0x5a}, ChunkSize+1)
	id, err := HashV1CID(data)
	if err != nil {
		t.Fatalf("HashV1CID: %v", err)
	}
	if id.Version() != 1 || id.Type() != cid.DagProtobuf {
		t.Fatalf("expected CIDv1 dag-pb root, got v%d codec %x", id.Version(), id.Type())
	}
	if !strings.HasPrefix(id.String(), "bafybei") {
		t.Fatalf("unexpected root prefix: %s", id)
	}
}

func TestHashV0_MultiChunkIsCIDv0(t *testing.T) {
	data := bytes.Repeat([]byte{0x01}, 2*ChunkSize+7)
	id, err := HashV0CID(data)
	if err != nil {
		t.Fatalf("HashV0CID: %v", err)
	}
	if id.Version() != 0 {
		t.Fatalf("expected CIDv0, got v%d", id.Version())
	}
	if s := id.String(); len(s) != 46 || !strings.HasPrefix(s, "Qm") {
		t.Fatalf("unexpected CIDv0 string: %s", s)
	}
}

func TestHash_Deterministic(t *testing.T) {
	data := bytes.Repeat([]byte("catalyst"), ChunkSize/4)
	if HashV0(data) != HashV0(append([]byte(nil), data...)) {
		t.Fatalf("HashV0 not deterministic")
	}
	if HashV1(data) != HashV1(append([]byte(nil), data...)) {
		t.Fatalf("HashV1 not deterministic")
	}
	if HashV0(data) == HashV1(data) {
		t.Fatalf("families must not collide")
	}
}

func TestFamily_UnknownReportsError(t *testing.T) {
	f := Family(99)
	if _, err := f.HashCID([]byte("a")); err == nil {
		t.Fatalf("HashCID with unknown family must fail")
	}
	if got := f.Hash([]byte("a")); got != "" {
		t.Fatalf("Hash with unknown family: got %q", got)
	}
}

func TestFamilyOf(t *testing.T) {
	cases := []struct {
		hash string
		want Family
	}{
		{HashV0([]byte("a")), FamilyLegacy},
		{HashV1([]byte("a")), FamilyModern},
		{HashV1(bytes.Repeat([]byte("a"), ChunkSize+1)), FamilyModern},
	}
	for _, tc := range cases {
		got, err := FamilyOf(tc.hash)
		if err != nil {
			t.Fatalf("FamilyOf(%s): %v", tc.hash, err)
		}
		if got != tc.want {
			t.Fatalf("FamilyOf(%s): got %s want %s", tc.hash, got, tc.want)
		}
	}

	if _, err := FamilyOf("not-a-cid"); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected ErrUnsupportedHash, got %v", err)
	}

	mh, err := multihash.Sum([]byte("a"), multihash.SHA2_512, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	if _, err := FamilyOf(cid.NewCidV1(cid.Raw, mh).String()); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("sha2-512 CID: expected ErrUnsupportedHash, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	data := []byte("scene.json contents")
	for _, h := range []string{HashV0(data), HashV1(data)} {
		if err := Verify(h, data); err != nil {
			t.Fatalf("Verify(%s): %v", h, err)
		}
		if err := Verify(h, []byte("tampered")); !errors.Is(err, ErrHashMismatch) {
			t.Fatalf("Verify(%s) tampered: got %v want ErrHashMismatch", h, err)
		}
	}
}

func TestCalculateHashes_PreservesOrder(t *testing.T) {
	files := [][]byte{[]byte("b"), []byte("a"), []byte("b")}

	legacy := CalculateHashes(files)
	modern := CalculateIPFSHashes(files)
	if len(legacy) != 3 || len(modern) != 3 {
		t.Fatalf("unexpected result sizes: %d %d", len(legacy), len(modern))
	}
	for i, f := range files {
		if !bytes.Equal(legacy[i].File, f) || legacy[i].Hash != HashV0(f) {
			t.Fatalf("legacy[%d] mismatch", i)
		}
		if !bytes.Equal(modern[i].File, f) || modern[i].Hash != HashV1(f) {
			t.Fatalf("modern[%d] mismatch", i)
		}
	}
	if modern[0].Hash != modern[2].Hash {
		t.Fatalf("same bytes must hash identically")
	}
}
