package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/decentraland/catalyst-commons-go/entity"
	"github.com/decentraland/catalyst-commons-go/hashing"
)

func cmdHash(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var legacy bool
	fs.BoolVar(&legacy, "legacy", false, "use the legacy (CIDv0, Qm...) hash family")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: dcl-entity hash [--legacy] <file> [<file> ...]")
		return 2
	}

	files := make([][]byte, 0, fs.NArg())
	for _, p := range fs.Args() {
		b, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(p), err)
			return 1
		}
		files = append(files, b)
	}
	var hashes []hashing.FileHash
	if legacy {
		hashes = hashing.CalculateHashes(files)
	} else {
		hashes = hashing.CalculateIPFSHashes(files)
	}
	for i, h := range hashes {
		_, _ = fmt.Fprintf(out, "%s  %s\n", h.Hash, fs.Arg(i))
	}
	return 0
}

func cmdADR32(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("adr32", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var contentPath, metadataPath string
	var legacy, printData bool
	fs.StringVar(&contentPath, "content", "", "JSON array of content references")
	fs.StringVar(&metadataPath, "metadata", "", "JSON metadata file")
	fs.BoolVar(&legacy, "legacy", false, "use the legacy (CIDv0, Qm...) hash family")
	fs.BoolVar(&printData, "print-data", false, "print the hashed manifest instead of the hash")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if contentPath == "" || fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: dcl-entity adr32 --content <refs.json> [--metadata <file.json>] [--legacy] [--print-data]")
		return 2
	}
	refs, err := readContent(contentPath)
	if err != nil {
		fmt.Fprintf(errOut, "read --content: %v\n", err)
		return 1
	}
	metadata, err := readMetadata(metadataPath)
	if err != nil {
		fmt.Fprintf(errOut, "read --metadata: %v\n", err)
		return 1
	}

	var res hashing.ADR32Result
	if legacy {
		res, err = hashing.CalculateMultipleHashesADR32LegacyQmHash(refs, metadata)
	} else {
		res, err = hashing.CalculateMultipleHashesADR32(refs, metadata)
	}
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if printData {
		_, _ = out.Write(res.Data)
		return 0
	}
	_, _ = fmt.Fprintln(out, res.Hash)
	return 0
}

// entityFlags are the entity fields shared by build and deploy.
type entityFlags struct {
	version      string
	typ          string
	pointers     stringList
	timestamp    int64
	metadataPath string
}

func (e *entityFlags) add(fs *flag.FlagSet) {
	fs.StringVar(&e.version, "version", string(entity.CurrentVersion), "entity version")
	fs.StringVar(&e.typ, "type", "", "entity type (see 'dcl-entity types')")
	fs.Var(&e.pointers, "pointer", "entity pointer (repeatable)")
	fs.Int64Var(&e.timestamp, "timestamp", 0, "entity timestamp in ms since the epoch (default now)")
	fs.StringVar(&e.metadataPath, "metadata", "", "JSON metadata file")
}

func (e *entityFlags) resolve() (entity.Version, entity.Type, []entity.Pointer, entity.Timestamp, any, error) {
	metadata, err := readMetadata(e.metadataPath)
	if err != nil {
		return "", "", nil, 0, nil, fmt.Errorf("read --metadata: %w", err)
	}
	ts := e.timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	pointers := make([]entity.Pointer, 0, len(e.pointers))
	pointers = append(pointers, e.pointers...)
	return entity.Version(e.version), entity.Type(e.typ), pointers, ts, metadata, nil
}

func cmdBuild(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var ef entityFlags
	ef.add(fs)
	var contentPath, outPath string
	fs.StringVar(&contentPath, "content", "", "JSON array of content references")
	fs.StringVar(&outPath, "out", "", "write the entity file here and print the id")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if ef.typ == "" || fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: dcl-entity build --type <t> --pointer <p> [--pointer ...] [flags]")
		return 2
	}

	version, typ, pointers, ts, metadata, err := ef.resolve()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	var content []entity.ContentItemReference
	if contentPath != "" {
		if content, err = readContent(contentPath); err != nil {
			fmt.Fprintf(errOut, "read --content: %v\n", err)
			return 1
		}
	}

	e, file, err := entity.Build(entity.Options{
		Version:   version,
		Type:      typ,
		Pointers:  pointers,
		Timestamp: ts,
		Content:   content,
		Metadata:  metadata,
	})
	if err != nil {
		printEntityError(errOut, err)
		return 1
	}
	if outPath == "" {
		_, _ = out.Write(file)
		return 0
	}
	if err := os.WriteFile(outPath, file, 0o644); err != nil {
		fmt.Fprintf(errOut, "write --out: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, e.ID)
	return 0
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var id string
	fs.StringVar(&id, "id", "", "expected entity id")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if id == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dcl-entity verify --id <entity id> <entity file>")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read entity file: %v\n", err)
		return 1
	}
	e, err := entity.ParseEntityFile(id, b)
	if err != nil {
		printEntityError(errOut, err)
		return 1
	}
	if ok, err := entity.ValidateMetadata(e.Type, e.Metadata); err != nil || !ok {
		if err == nil {
			err = fmt.Errorf("metadata rejected by entity type %s", e.Type)
		}
		fmt.Fprintf(errOut, "invalid: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, "OK")
	return 0
}

func cmdTypes(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(errOut, "usage: dcl-entity types")
		return 2
	}
	for _, t := range entity.Types() {
		p, err := entity.ParametersFor(t)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		_, _ = fmt.Fprintf(out, "%s\t%d MB\n", t, p.MaxSizeInMB)
	}
	return 0
}

func printEntityError(w io.Writer, err error) {
	if id := entity.RuleID(err); id != "" {
		fmt.Fprintf(w, "%s: %v\n", id, err)
		return
	}
	fmt.Fprintln(w, err)
}

func readContent(path string) ([]entity.ContentItemReference, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	refs := []entity.ContentItemReference{}
	if err := json.Unmarshal(b, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// readMetadata returns the file as a json.RawMessage so key order is kept.
func readMetadata(path string) (any, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("%s: invalid JSON", filepath.Base(path))
	}
	return json.RawMessage(b), nil
}
