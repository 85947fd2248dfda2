package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/decentraland/catalyst-commons-go/storage"
	"github.com/decentraland/catalyst-commons-go/storage/registry"
	"github.com/decentraland/catalyst-commons-go/storage/storeconfig"

	_ "github.com/decentraland/catalyst-commons-go/storage/grpcstore"
	_ "github.com/decentraland/catalyst-commons-go/storage/ipfs"
	_ "github.com/decentraland/catalyst-commons-go/storage/leveldbstore"
	_ "github.com/decentraland/catalyst-commons-go/storage/localfs"
	_ "github.com/decentraland/catalyst-commons-go/storage/s3store"
)

type storeFlags struct {
	backend      string
	config       string
	prefer       string
	listBackends bool
}

func (c *storeFlags) add(fs *flag.FlagSet) {
	fs.StringVar(&c.backend, "backend", "localfs", "content store backend name")
	fs.StringVar(&c.config, "store-config", "", "JSON or YAML store config file (overrides --backend)")
	fs.StringVar(&c.prefer, "prefer", "", "backend name or id to move first in --store-config")
	fs.BoolVar(&c.listBackends, "list-backends", false, "list supported backends and exit")
	registry.RegisterFlags(fs, registry.UsageCLI)
}

func (c *storeFlags) open() (storage.ContentStore, func() error, error) {
	if c.config != "" {
		cfg, err := storeconfig.LoadFile(c.config)
		if err != nil {
			return nil, nil, err
		}
		return cfg.Open(registry.UsageCLI, c.prefer)
	}
	return registry.Open(c.backend, registry.UsageCLI)
}

func printBackends(w io.Writer) {
	for _, b := range registry.List(registry.UsageCLI) {
		if b.Description == "" {
			_, _ = fmt.Fprintf(w, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", b.Name, b.Description)
	}
}
