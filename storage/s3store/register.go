package s3store

import (
	"context"
	"flag"
	"strconv"

	"github.com/decentraland/catalyst-commons-go/storage"
	"github.com/decentraland/catalyst-commons-go/storage/registry"
)

var flagOpts Options

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "s3",
		Description: "S3 or S3-compatible bucket (AWS default credential chain)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagOpts.Bucket, "s3-bucket", "", "bucket name (for --backend=s3)")
			fs.StringVar(&flagOpts.Prefix, "s3-prefix", "", "object key prefix (for --backend=s3)")
			fs.StringVar(&flagOpts.Region, "s3-region", "", "region override (for --backend=s3)")
			fs.StringVar(&flagOpts.Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL (for --backend=s3)")
			fs.BoolVar(&flagOpts.PathStyle, "s3-path-style", false, "use path-style addressing (for --backend=s3)")
		},
		Open: func() (storage.ContentStore, func() error, error) {
			s, err := New(context.Background(), flagOpts)
			return s, nil, err
		},
		OpenConfig: func(opts map[string]string) (storage.ContentStore, func() error, error) {
			o := Options{
				Bucket:   opts["bucket"],
				Prefix:   opts["prefix"],
				Region:   opts["region"],
				Endpoint: opts["endpoint"],
			}
			if v := opts["path-style"]; v != "" {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return nil, nil, err
				}
				o.PathStyle = b
			}
			s, err := New(context.Background(), o)
			return s, nil, err
		},
	})
}
