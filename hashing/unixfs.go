package hashing

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// ChunkSize is the fixed chunker size used by `ipfs add` defaults.
	ChunkSize = 262144
	// MaxLinksPerNode is the fan-out of the balanced DAG layout.
	MaxLinksPerNode = 174

	unixfsTypeFile = 2
)

// dagNode is one block of a UnixFS file DAG as seen by its parent.
type dagNode struct {
	id       cid.Cid
	tsize    uint64 // cumulative encoded size (block plus descendants)
	fileSize uint64 // bytes of file content under this node
}

// layout describes how leaves and intermediate nodes are encoded.
type layout struct {
	version   uint64
	rawLeaves bool
	chunkSize int
	maxLinks  int
}

var (
	layoutV0 = layout{version: 0, rawLeaves: false, chunkSize: ChunkSize, maxLinks: MaxLinksPerNode}
	layoutV1 = layout{version: 1, rawLeaves: true, chunkSize: ChunkSize, maxLinks: MaxLinksPerNode}
)

// buildFile imports data as a UnixFS file and returns the root identifier.
//
// The output matches ipfs-unixfs-importer / go-unixfs with the fixed-size
// chunker and the balanced builder. A file that fits in one chunk is
// represented by its leaf.
func (l layout) buildFile(data []byte) (cid.Cid, error) {
	level, err := l.leaves(data)
	if err != nil {
		return cid.Undef, err
	}
	if len(level) == 1 {
		return level[0].id, nil
	}
	for {
		parents := make([]dagNode, 0, (len(level)+l.maxLinks-1)/l.maxLinks)
		for start := 0; start < len(level); start += l.maxLinks {
			end := min(start+l.maxLinks, len(level))
			p, err := l.parent(level[start:end])
			if err != nil {
				return cid.Undef, err
			}
			parents = append(parents, p)
		}
		if len(parents) == 1 {
			return parents[0].id, nil
		}
		level = parents
	}
}

func (l layout) leaves(data []byte) ([]dagNode, error) {
	// An empty input still produces one (empty) chunk.
	n := max(1, (len(data)+l.chunkSize-1)/l.chunkSize)
	out := make([]dagNode, 0, n)
	for i := 0; i < n; i++ {
		start := i * l.chunkSize
		end := min(start+l.chunkSize, len(data))
		leaf, err := l.leaf(data[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, leaf)
	}
	return out, nil
}

func (l layout) leaf(chunk []byte) (dagNode, error) {
	if l.rawLeaves {
		id, err := sum(chunk, 1, cid.Raw)
		if err != nil {
			return dagNode{}, err
		}
		return dagNode{id: id, tsize: uint64(len(chunk)), fileSize: uint64(len(chunk))}, nil
	}
	block := encodePBNode(nil, encodeUnixFSFile(chunk, uint64(len(chunk)), nil))
	id, err := sum(block, l.version, cid.DagProtobuf)
	if err != nil {
		return dagNode{}, err
	}
	return dagNode{id: id, tsize: uint64(len(block)), fileSize: uint64(len(chunk))}, nil
}

func (l layout) parent(children []dagNode) (dagNode, error) {
	var fileSize, linked uint64
	blockSizes := make([]uint64, 0, len(children))
	links := make([]pbLink, 0, len(children))
	for _, c := range children {
		fileSize += c.fileSize
		linked += c.tsize
		blockSizes = append(blockSizes, c.fileSize)
		links = append(links, pbLink{hash: c.id.Bytes(), tsize: c.tsize})
	}
	block := encodePBNode(links, encodeUnixFSFile(nil, fileSize, blockSizes))
	id, err := sum(block, l.version, cid.DagProtobuf)
	if err != nil {
		return dagNode{}, err
	}
	return dagNode{id: id, tsize: uint64(len(block)) + linked, fileSize: fileSize}, nil
}

func sum(block []byte, version, codec uint64) (cid.Cid, error) {
	mh, err := multihash.Sum(block, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	if version == 0 {
		return cid.NewCidV0(mh), nil
	}
	return cid.NewCidV1(codec, mh), nil
}

type pbLink struct {
	hash  []byte
	tsize uint64
}

// encodeUnixFSFile encodes a UnixFS Data message of type File.
// Empty payloads are omitted; filesize is always present.
func encodeUnixFSFile(payload []byte, fileSize uint64, blockSizes []uint64) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, unixfsTypeFile)
	if len(payload) > 0 {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, payload)
	}
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, fileSize)
	for _, s := range blockSizes {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, s)
	}
	return b
}

// encodePBNode encodes a dag-pb PBNode. Links precede Data in the canonical
// dag-pb byte form, and every link carries an (empty) Name.
func encodePBNode(links []pbLink, data []byte) []byte {
	var b []byte
	for _, l := range links {
		var lb []byte
		lb = protowire.AppendTag(lb, 1, protowire.BytesType)
		lb = protowire.AppendBytes(lb, l.hash)
		lb = protowire.AppendTag(lb, 2, protowire.BytesType)
		lb = protowire.AppendBytes(lb, nil)
		lb = protowire.AppendTag(lb, 3, protowire.VarintType)
		lb = protowire.AppendVarint(lb, l.tsize)

		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, lb)
	}
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, data)
	return b
}
