package hashing

// FileHash pairs a file's bytes with its content identifier.
type FileHash struct {
	Hash string
	File []byte
}

// CalculateHashes hashes each file with the legacy family, preserving order.
//
// Deprecated: use CalculateIPFSHashes. Only kept to reproduce CIDv0 identifiers.
func CalculateHashes(files [][]byte) []FileHash {
	return calculate(FamilyLegacy, files)
}

// CalculateIPFSHashes hashes each file with the modern family, preserving order.
func CalculateIPFSHashes(files [][]byte) []FileHash {
	return calculate(FamilyModern, files)
}

func calculate(f Family, files [][]byte) []FileHash {
	out := make([]FileHash, 0, len(files))
	for _, file := range files {
		out = append(out, FileHash{Hash: f.Hash(file), File: file})
	}
	return out
}
