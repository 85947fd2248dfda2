package leveldbstore

import (
	"flag"
	"fmt"

	"github.com/decentraland/catalyst-commons-go/storage"
	"github.com/decentraland/catalyst-commons-go/storage/registry"
)

var flagPath string

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "leveldb",
		Description: "Embedded LevelDB content store (single process)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagPath, "leveldb-path", "", "database directory (for --backend=leveldb)")
		},
		Open: func() (storage.ContentStore, func() error, error) {
			if flagPath == "" {
				return nil, nil, fmt.Errorf("missing --leveldb-path")
			}
			return open(flagPath)
		},
		OpenConfig: func(opts map[string]string) (storage.ContentStore, func() error, error) {
			p := opts["path"]
			if p == "" {
				return nil, nil, fmt.Errorf("leveldb: option %q is required", "path")
			}
			return open(p)
		},
	})
}

func open(path string) (storage.ContentStore, func() error, error) {
	s, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
