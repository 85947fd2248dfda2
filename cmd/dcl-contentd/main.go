package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/decentraland/catalyst-commons-go/storage"
	"github.com/decentraland/catalyst-commons-go/storage/grpcstore"
	"github.com/decentraland/catalyst-commons-go/storage/registry"
	"github.com/decentraland/catalyst-commons-go/storage/storeconfig"

	_ "github.com/decentraland/catalyst-commons-go/storage/ipfs"
	_ "github.com/decentraland/catalyst-commons-go/storage/leveldbstore"
	_ "github.com/decentraland/catalyst-commons-go/storage/localfs"
	_ "github.com/decentraland/catalyst-commons-go/storage/s3store"
)

// requestIDHeader carries a caller-chosen request id; one is generated
// when absent.
const requestIDHeader = "x-request-id"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, errOut io.Writer) error {
	fs := flag.NewFlagSet("dcl-contentd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	backend := fs.String("backend", "localfs", "content store backend name")
	configPath := fs.String("store-config", "", "JSON or YAML store config file (overrides --backend)")
	prefer := fs.String("prefer", "", "backend name or id to move first in --store-config")
	maxMsgBytes := fs.Int("max-msg-bytes", 64<<20, "max gRPC message size in bytes (send+recv)")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	metricsListen := fs.String("metrics-listen", "", "serve Prometheus /metrics and /healthz on this address (disabled when empty)")
	listBackends := fs.Bool("list-backends", false, "list supported backends and exit")

	registry.RegisterFlags(fs, registry.UsageDaemon)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *listBackends {
		for _, b := range registry.List(registry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	store, closeFn, err := openStore(*backend, *configPath, *prefer)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer func() {
			if err := closeFn(); err != nil {
				logger.Warn("closing content store", "error", err)
			}
		}()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := serveOptions{MaxMsgBytes: *maxMsgBytes}
	if *metricsListen != "" {
		mlis, err := net.Listen("tcp", *metricsListen)
		if err != nil {
			_ = lis.Close()
			return err
		}
		opts.Metrics = newMetrics()
		metricsDone := make(chan error, 1)
		go func() { metricsDone <- serveMetrics(ctx, mlis, opts.Metrics, logger) }()
		defer func() {
			if err := <-metricsDone; err != nil {
				logger.Warn("metrics server", "error", err)
			}
		}()
		logger.Info("metrics listening", "address", mlis.Addr().String())
	}

	logger.Info("dcl-contentd listening", "address", lis.Addr().String(), "backend", backendLabel(*backend, *configPath))
	err = serve(ctx, lis, store, logger, opts)
	stop()
	return err
}

type serveOptions struct {
	// MaxMsgBytes caps gRPC send and receive sizes; 0 keeps gRPC defaults.
	MaxMsgBytes int
	Metrics     *metrics
}

func openStore(backend, configPath, prefer string) (storage.ContentStore, func() error, error) {
	if configPath != "" {
		cfg, err := storeconfig.LoadFile(configPath)
		if err != nil {
			return nil, nil, err
		}
		return cfg.Open(registry.UsageDaemon, prefer)
	}
	return registry.Open(backend, registry.UsageDaemon)
}

func backendLabel(backend, configPath string) string {
	if configPath != "" {
		return "config:" + configPath
	}
	return backend
}

// serve runs the gRPC content store on lis until ctx is done, then stops
// gracefully.
func serve(ctx context.Context, lis net.Listener, store storage.ContentStore, logger *slog.Logger, o serveOptions) error {
	interceptors := []grpc.UnaryServerInterceptor{logRequests(logger)}
	if o.Metrics != nil {
		interceptors = append(interceptors, o.Metrics.interceptor())
	}
	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(interceptors...)}
	if o.MaxMsgBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(o.MaxMsgBytes), grpc.MaxSendMsgSize(o.MaxMsgBytes))
	}
	srv := grpc.NewServer(opts...)
	grpcstore.RegisterContentStoreServer(srv, grpcstore.NewServer(store))

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(lis)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		srv.GracefulStop()
		if err := <-done; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	}
}

func logRequests(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		attrs := []any{
			"request_id", requestID(ctx),
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		}
		if err != nil {
			logger.Warn("request failed", append(attrs, "error", err)...)
		} else {
			logger.Debug("request", attrs...)
		}
		return resp, err
	}
}

func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(requestIDHeader); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return uuid.NewString()
}
