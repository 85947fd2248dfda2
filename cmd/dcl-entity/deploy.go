package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"github.com/decentraland/catalyst-commons-go/deployment"
	"github.com/decentraland/catalyst-commons-go/storage"
)

func cmdDeploy(args []string, out io.Writer, errOut io.Writer) int {
	fset := flag.NewFlagSet("deploy", flag.ContinueOnError)
	fset.SetOutput(errOut)
	var ef entityFlags
	ef.add(fset)
	var sf storeFlags
	sf.add(fset)
	var dir, bundlePath string
	var dryRun bool
	var bopts deployment.BundleOptions
	fset.StringVar(&dir, "dir", "", "directory whose files are deployed")
	fset.StringVar(&bundlePath, "bundle", "", "write a bundle file instead of uploading")
	fset.BoolVar(&bopts.IncludeIndex, "index", false, "include index.json in --bundle")
	fset.BoolVar(&bopts.Compress, "zstd", false, "zstd-compress --bundle")
	fset.BoolVar(&dryRun, "dry-run", false, "prepare and validate only; print the entity id")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if sf.listBackends {
		printBackends(out)
		return 0
	}
	if dir == "" || ef.typ == "" || fset.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: dcl-entity deploy --dir <dir> --type <t> --pointer <p> [...] [flags]")
		return 2
	}

	files, err := readDir(dir)
	if err != nil {
		fmt.Fprintf(errOut, "read --dir: %v\n", err)
		return 1
	}
	version, typ, pointers, ts, metadata, err := ef.resolve()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	d, err := deployment.Prepare(deployment.PrepareOptions{
		Version:   version,
		Type:      typ,
		Pointers:  pointers,
		Timestamp: ts,
		Files:     files,
		Metadata:  metadata,
	})
	if err != nil {
		printEntityError(errOut, err)
		return 1
	}

	switch {
	case dryRun:
	case bundlePath != "":
		if err := writeBundle(bundlePath, d, bopts); err != nil {
			fmt.Fprintf(errOut, "write --bundle: %v\n", err)
			return 1
		}
	default:
		if code := upload(&sf, d, errOut); code != 0 {
			return code
		}
	}
	_, _ = fmt.Fprintln(out, d.Entity.ID)
	return 0
}

func cmdBundle(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: dcl-entity bundle <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: export, import")
		return 2
	}
	switch args[0] {
	case "export":
		return cmdBundleExport(args[1:], out, errOut)
	case "import":
		return cmdBundleImport(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown bundle subcommand: %s\n", args[0])
		return 2
	}
}

func cmdBundleExport(args []string, out io.Writer, errOut io.Writer) int {
	fset := flag.NewFlagSet("bundle export", flag.ContinueOnError)
	fset.SetOutput(errOut)
	var sf storeFlags
	sf.add(fset)
	var id, outPath string
	var bopts deployment.BundleOptions
	fset.StringVar(&id, "id", "", "entity id")
	fset.StringVar(&outPath, "out", "", "bundle file to write")
	fset.BoolVar(&bopts.IncludeIndex, "index", false, "include index.json")
	fset.BoolVar(&bopts.Compress, "zstd", false, "zstd-compress the bundle")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if sf.listBackends {
		printBackends(out)
		return 0
	}
	if id == "" || outPath == "" || fset.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: dcl-entity bundle export --id <entity id> --out <file.tar> [--index] [--zstd] [store flags]")
		return 2
	}

	store, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}
	d, err := deployment.Fetch(context.Background(), store, id)
	if err != nil {
		printEntityError(errOut, err)
		return 1
	}
	if err := writeBundle(outPath, d, bopts); err != nil {
		fmt.Fprintf(errOut, "write --out: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, d.Entity.ID)
	return 0
}

func cmdBundleImport(args []string, out io.Writer, errOut io.Writer) int {
	fset := flag.NewFlagSet("bundle import", flag.ContinueOnError)
	fset.SetOutput(errOut)
	var sf storeFlags
	sf.add(fset)
	var inPath string
	fset.StringVar(&inPath, "in", "", "bundle file to read")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if sf.listBackends {
		printBackends(out)
		return 0
	}
	if inPath == "" || fset.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: dcl-entity bundle import --in <file.tar> [store flags]")
		return 2
	}

	f, err := os.Open(inPath)
	if err != nil {
		fmt.Fprintf(errOut, "read --in: %v\n", err)
		return 1
	}
	defer f.Close()
	d, err := deployment.ImportBundle(f)
	if err != nil {
		printEntityError(errOut, err)
		return 1
	}
	if code := upload(&sf, d, errOut); code != 0 {
		return code
	}
	_, _ = fmt.Fprintln(out, d.Entity.ID)
	return 0
}

func upload(sf *storeFlags, d deployment.Deployment, errOut io.Writer) int {
	store, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}
	ctx := context.Background()
	if err := checkMissing(ctx, store, d); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	res, err := deployment.Upload(ctx, store, d)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(errOut, "stored %d, already present %d\n", len(res.Stored), len(res.Skipped))
	return 0
}

// checkMissing fails when content the bundle does not carry is also absent
// from the store.
func checkMissing(ctx context.Context, store storage.ContentStore, d deployment.Deployment) error {
	for _, h := range d.Missing() {
		id, err := decodeHash(h)
		if err != nil {
			return err
		}
		ok, err := store.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", deployment.ErrMissingContent, h)
		}
	}
	return nil
}

func decodeHash(h string) (cid.Cid, error) {
	id, err := cid.Decode(h)
	if err != nil {
		return cid.Undef, fmt.Errorf("%s: %w", h, storage.ErrInvalidHash)
	}
	return id, nil
}

func writeBundle(path string, d deployment.Deployment, opts deployment.BundleOptions) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return deployment.ExportBundle(f, d, opts)
}

// readDir returns every regular file under dir keyed by its slash-separated
// relative path.
func readDir(dir string) (map[string][]byte, error) {
	files := map[string][]byte{}
	err := filepath.WalkDir(dir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		if !de.Type().IsRegular() {
			return fmt.Errorf("%s: not a regular file", path)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no files")
	}
	return files, nil
}
