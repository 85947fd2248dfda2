package deployment

import (
	"archive/tar"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/decentraland/catalyst-commons-go/entity"
	"github.com/decentraland/catalyst-commons-go/hashing"
	"github.com/decentraland/catalyst-commons-go/internal/canonjson"
)

// BundleFormatVersion is the current bundle index schema version.
const BundleFormatVersion = 1

const (
	entityPrefix  = "entity/"
	contentPrefix = "contents/"
	indexName     = "index.json"
)

var epoch0 = time.Unix(0, 0).UTC()

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// BundleOptions controls bundle export.
type BundleOptions struct {
	// IncludeIndex adds a non-authoritative index.json entry.
	IncludeIndex bool
	// Compress wraps the TAR stream in a single zstd frame.
	Compress bool
}

type bundleIndex struct {
	Version    int               `json:"version"`
	Entity     entity.ID         `json:"entity"`
	EntityType entity.Type       `json:"entityType"`
	Files      []bundleIndexFile `json:"files"`
}

type bundleIndexFile struct {
	Hash string `json:"hash"`
	Size int    `json:"size"`
}

// ExportBundle writes d as a deterministic TAR: entries are in lexicographic
// order and headers are normalized, so equal deployments give equal bytes.
// Every file is verified against its hash before it is written.
func ExportBundle(w io.Writer, d Deployment, opts BundleOptions) error {
	if err := entity.VerifyEntityFile(d.Entity, d.EntityFile); err != nil {
		return err
	}
	if !opts.Compress {
		return writeTar(w, d, opts)
	}
	zw, err := zstd.NewWriter(w,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		return err
	}
	if err := writeTar(zw, d, opts); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

func writeTar(w io.Writer, d Deployment, opts BundleOptions) error {
	tw := tar.NewWriter(w)
	files := make([]bundleIndexFile, 0, len(d.Files))
	// "contents/" sorts before "entity/", which sorts before "index.json".
	for _, h := range d.Hashes() {
		b := d.Files[h]
		if err := hashing.Verify(h, b); err != nil {
			_ = tw.Close()
			return fmt.Errorf("deployment: bundle content %s: %w", h, err)
		}
		if err := writeFile(tw, contentPrefix+h, b); err != nil {
			_ = tw.Close()
			return err
		}
		files = append(files, bundleIndexFile{Hash: h, Size: len(b)})
	}
	if err := writeFile(tw, entityPrefix+d.Entity.ID, d.EntityFile); err != nil {
		_ = tw.Close()
		return err
	}

	if opts.IncludeIndex {
		b, err := canonjson.Marshal(bundleIndex{
			Version:    BundleFormatVersion,
			Entity:     d.Entity.ID,
			EntityType: d.Entity.Type,
			Files:      files,
		})
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, indexName, append(b, '\n')); err != nil {
			_ = tw.Close()
			return err
		}
	}
	return tw.Close()
}

// ImportBundle reads a bundle written by ExportBundle.
//
// It fails closed: unknown or non-regular entries, duplicate entries, a
// missing or second entity, content not referenced by the entity, and any
// hash mismatch are errors. index.json is ignored. zstd-compressed bundles
// are detected by their frame magic.
func ImportBundle(r io.Reader) (Deployment, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, _ := br.Peek(len(zstdMagic)); bytes.Equal(magic, zstdMagic) {
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return Deployment{}, err
		}
		defer zr.Close()
		src = zr
	}
	tr := tar.NewReader(src)
	var (
		entityID   entity.ID
		entityFile []byte
		files      = map[entity.ContentFileHash][]byte{}
	)

	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Deployment{}, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return Deployment{}, fmt.Errorf("deployment: bundle: invalid entry path: %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg {
			return Deployment{}, fmt.Errorf("deployment: bundle: unexpected entry type %v (%s)", h.Typeflag, name)
		}

		switch {
		case name == indexName:
			_, _ = io.Copy(io.Discard, tr)

		case strings.HasPrefix(name, entityPrefix):
			if entityFile != nil {
				return Deployment{}, fmt.Errorf("deployment: bundle: more than one entity")
			}
			b, err := io.ReadAll(tr)
			if err != nil {
				return Deployment{}, err
			}
			entityID, entityFile = strings.TrimPrefix(name, entityPrefix), b

		case strings.HasPrefix(name, contentPrefix):
			hash := strings.TrimPrefix(name, contentPrefix)
			if _, ok := files[hash]; ok {
				return Deployment{}, fmt.Errorf("deployment: bundle: duplicate content entry: %s", hash)
			}
			b, err := io.ReadAll(tr)
			if err != nil {
				return Deployment{}, err
			}
			if err := hashing.Verify(hash, b); err != nil {
				return Deployment{}, fmt.Errorf("deployment: bundle content %s: %w", hash, err)
			}
			files[hash] = b

		default:
			return Deployment{}, fmt.Errorf("deployment: bundle: unknown entry: %s", name)
		}
	}

	if entityFile == nil {
		return Deployment{}, fmt.Errorf("deployment: bundle: no entity entry")
	}
	e, err := entity.ParseEntityFile(entityID, entityFile)
	if err != nil {
		return Deployment{}, err
	}
	referenced := make(map[string]struct{}, len(e.Content))
	for _, h := range e.ContentHashes() {
		referenced[h] = struct{}{}
	}
	for h := range files {
		if _, ok := referenced[h]; !ok {
			return Deployment{}, fmt.Errorf("deployment: bundle: content %s is not referenced by entity %s", h, entityID)
		}
	}
	return Deployment{Entity: e, EntityFile: entityFile, Files: files}, nil
}

// Missing returns referenced hashes that d does not carry bytes for, in
// entity order. These must already be in the target store.
func (d Deployment) Missing() []entity.ContentFileHash {
	var out []entity.ContentFileHash
	seen := map[string]struct{}{}
	for _, h := range d.Entity.ContentHashes() {
		if _, ok := d.Files[h]; ok {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
