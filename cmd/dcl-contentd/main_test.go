package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"github.com/decentraland/catalyst-commons-go/hashing"
	"github.com/decentraland/catalyst-commons-go/storage"
	"github.com/decentraland/catalyst-commons-go/storage/grpcstore"
	"github.com/decentraland/catalyst-commons-go/storage/localfs"
)

// syncBuffer is a bytes.Buffer safe for the server's concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServe_RoundTripAndShutdown(t *testing.T) {
	backend, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	lis := bufconn.Listen(1024 * 1024)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	m := newMetrics()
	go func() { done <- serve(ctx, lis, backend, logger, serveOptions{Metrics: m}) }()

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client := grpcstore.NewClient(cc)
	client.Timeout = 2 * time.Second
	defer client.Close()

	data := []byte("served content")
	id, _ := hashing.HashV1CID(data)
	if err := client.Store(context.Background(), id, data); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := client.Retrieve(context.Background(), id)
	if err != nil || string(got) != string(data) {
		t.Fatalf("Retrieve: %q, %v", got, err)
	}
	missing, _ := hashing.HashV1CID([]byte("missing"))
	if _, err := client.Retrieve(context.Background(), missing); !storage.IsNotFound(err) {
		t.Fatalf("Retrieve missing: got %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop")
	}

	out := logs.String()
	for _, want := range []string{"/Store", "request failed", "code=NotFound", "shutting down", "request_id="} {
		if !strings.Contains(out, want) {
			t.Fatalf("logs missing %q:\n%s", want, out)
		}
	}

	retrieve := "/" + grpcstore.ContentStore_ServiceDesc.ServiceName + "/Retrieve"
	if got := testutil.ToFloat64(m.requests.WithLabelValues(retrieve, "NotFound")); got != 1 {
		t.Fatalf("NotFound retrieve count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues(retrieve, "OK")); got != 1 {
		t.Fatalf("OK retrieve count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.bytes.WithLabelValues("in")); got != float64(len(data)) {
		t.Fatalf("bytes in = %v, want %d", got, len(data))
	}
}

func TestRun_ListBackends(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"--list-backends"}, &out, io.Discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	s := out.String()
	for _, name := range []string{"localfs", "ipfs", "leveldb", "s3"} {
		if !strings.Contains(s, name) {
			t.Fatalf("backend %q not listed: %q", name, s)
		}
	}
	if strings.Contains(s, "grpc") {
		t.Fatalf("grpc client backend must not be offered by the daemon: %q", s)
	}
}

func TestRun_Errors(t *testing.T) {
	if err := run([]string{"--log-level", "loud", "--localfs-dir", t.TempDir()}, io.Discard, io.Discard); err == nil {
		t.Fatalf("expected bad log level error")
	}
	if err := run([]string{"--backend", "localfs"}, io.Discard, io.Discard); err == nil {
		t.Fatalf("expected missing --localfs-dir error")
	}
	if err := run([]string{"--backend", "nope"}, io.Discard, io.Discard); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestMetricsRouter(t *testing.T) {
	m := newMetrics()
	m.requests.WithLabelValues("/x/Store", "OK").Inc()
	srv := httptest.NewServer(m.router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "dcl_contentd_requests_total") {
		t.Fatalf("GET /metrics: %d\n%s", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /healthz: %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/metrics", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST /metrics: %d, want 405", resp.StatusCode)
	}
}

func TestServeMetrics_StopsWithContext(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveMetrics(ctx, lis, newMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil))) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serveMetrics: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serveMetrics did not stop")
	}
}

func TestRequestID(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDHeader, "abc"))
	if got := requestID(ctx); got != "abc" {
		t.Fatalf("requestID = %q", got)
	}
	if got := requestID(context.Background()); len(got) != 36 {
		t.Fatalf("generated requestID = %q", got)
	}
}
