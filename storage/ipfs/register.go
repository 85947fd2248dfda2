package ipfs

import (
	"flag"
	"os"
	"strconv"

	"github.com/decentraland/catalyst-commons-go/storage"
	"github.com/decentraland/catalyst-commons-go/storage/registry"
)

var (
	flagBin  string
	flagPath string
	flagPin  bool
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "ipfs",
		Description: "Local Kubo repo via the ipfs CLI (offline)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagBin, "ipfs-bin", "ipfs", "ipfs binary (for --backend=ipfs)")
			fs.StringVar(&flagPath, "ipfs-path", "", "IPFS_PATH of the repo to use (for --backend=ipfs)")
			fs.BoolVar(&flagPin, "ipfs-pin", true, "pin added content (for --backend=ipfs)")
		},
		Open: func() (storage.ContentStore, func() error, error) {
			return New(Options{Bin: flagBin, Env: envFor(flagPath), Pin: flagPin}), nil, nil
		},
		OpenConfig: func(opts map[string]string) (storage.ContentStore, func() error, error) {
			pin := true
			if v, ok := opts["pin"]; ok {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return nil, nil, err
				}
				pin = b
			}
			return New(Options{Bin: opts["bin"], Env: envFor(opts["ipfs-path"]), Pin: pin}), nil, nil
		},
	})
}

func envFor(repo string) []string {
	if repo == "" {
		return nil
	}
	return append(os.Environ(), "IPFS_PATH="+repo)
}
