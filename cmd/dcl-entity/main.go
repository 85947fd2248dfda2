package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "hash":
		return cmdHash(args[1:], out, errOut)
	case "adr32":
		return cmdADR32(args[1:], out, errOut)
	case "build":
		return cmdBuild(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "types":
		return cmdTypes(args[1:], out, errOut)
	case "deploy":
		return cmdDeploy(args[1:], out, errOut)
	case "bundle":
		return cmdBundle(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "dcl-entity: build, hash and deploy Decentraland entities")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dcl-entity hash [--legacy] <file> [<file> ...]")
	fmt.Fprintln(w, "  dcl-entity adr32 --content <refs.json> [--metadata <file.json>] [--legacy] [--print-data]")
	fmt.Fprintln(w, "  dcl-entity build --type <t> --pointer <p> [--pointer ...] [--timestamp <ms>] [--version v3|v4] [--content <refs.json>] [--metadata <file.json>] [--out <file>]")
	fmt.Fprintln(w, "  dcl-entity verify --id <entity id> <entity file>")
	fmt.Fprintln(w, "  dcl-entity types")
	fmt.Fprintln(w, "  dcl-entity deploy --dir <dir> --type <t> --pointer <p> [...] [--metadata <file.json>] [--bundle <out.tar> [--zstd] | --dry-run | store flags]")
	fmt.Fprintln(w, "  dcl-entity bundle export --id <entity id> --out <file.tar> [--index] [--zstd] [store flags]")
	fmt.Fprintln(w, "  dcl-entity bundle import --in <file.tar> [store flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Store flags:")
	fmt.Fprintln(w, "  --backend localfs|ipfs|grpc (see --list-backends) plus backend flags, or --store-config <file.json|file.yaml> [--prefer <backend>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - refs.json is a JSON array of {\"file\": ..., \"hash\": ...}")
	fmt.Fprintln(w, "  - build writes the exact entity file bytes (no trailing newline); with --out it prints the entity id")
	fmt.Fprintln(w, "  - --timestamp defaults to the current time in milliseconds")
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
