// Package presets builds ready-to-use services for common situations.
package presets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/simple-ar/pkg/arcontent"
	"github.com/tendant/simple-ar/pkg/arcontent/audio"
	"github.com/tendant/simple-ar/pkg/arcontent/config"
	memorylock "github.com/tendant/simple-ar/pkg/arcontent/lock/memory"
	memoryrepo "github.com/tendant/simple-ar/pkg/arcontent/repo/memory"
	"github.com/tendant/simple-ar/pkg/arcontent/repo/sqlite"
	fsstorage "github.com/tendant/simple-ar/pkg/arcontent/storage/fs"
	memorystorage "github.com/tendant/simple-ar/pkg/arcontent/storage/memory"
)

// NewDevelopment creates a service for local development.
//
// Metadata lives in a SQLite file and blobs on the local filesystem, both under
// ./dev-data unless WithDevDataDir says otherwise. Events are logged and
// writes are serialized with an in-process locker.
//
// The cleanup function closes the database and removes the data directory.
//
//	svc, cleanup, err := presets.NewDevelopment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewDevelopment(opts ...DevelopmentOption) (arcontent.Service, func(), error) {
	cfg := &devConfig{
		dataDir: "./dev-data",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := os.MkdirAll(cfg.dataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo, err := sqlite.Open(filepath.Join(cfg.dataDir, "ar.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sqlite repository: %w", err)
	}

	fsBackend, err := fsstorage.New(fsstorage.Config{
		BaseDir: filepath.Join(cfg.dataDir, "blobs"),
	})
	if err != nil {
		_ = repo.Close()
		return nil, nil, fmt.Errorf("failed to create filesystem storage: %w", err)
	}

	svc, err := arcontent.New(
		arcontent.WithRepository(repo),
		arcontent.WithBlobStore(fsBackend),
		arcontent.WithAudioSniffer(audio.NewSniffer()),
		arcontent.WithLocker(memorylock.New()),
		arcontent.WithEventSink(arcontent.NewLoggingEventSink(cfg.logger)),
		arcontent.WithLogger(cfg.logger),
	)
	if err != nil {
		_ = repo.Close()
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	cleanup := func() {
		_ = repo.Close()
		_ = os.RemoveAll(cfg.dataDir)
	}

	return svc, cleanup, nil
}

// NewTesting creates an isolated in-memory service for tests. Nothing is
// logged and nothing needs cleaning up.
//
//	func TestMyFeature(t *testing.T) {
//	    svc := presets.NewTesting(t)
//	    ...
//	}
func NewTesting(t testing.TB, opts ...TestingOption) arcontent.Service {
	t.Helper()
	cfg := &testConfig{capacity: 16 << 20}
	for _, opt := range opts {
		opt(cfg)
	}

	svc, err := arcontent.New(
		arcontent.WithRepository(memoryrepo.New()),
		arcontent.WithBlobStore(memorystorage.New(cfg.capacity)),
		arcontent.WithAudioSniffer(audio.NewSniffer()),
		arcontent.WithEventSink(arcontent.NewNoopEventSink()),
		arcontent.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}

	for _, name := range cfg.projects {
		if _, err := svc.CreateProject(context.Background(), name); err != nil {
			t.Fatalf("failed to create fixture project %q: %v", name, err)
		}
	}

	return svc
}

// NewProduction builds a service from the environment and refuses in-memory
// metadata or blob storage.
func NewProduction(ctx context.Context, opts ...config.Option) (arcontent.Service, func(), error) {
	cfg, err := config.Load(append([]config.Option{config.WithEnv()}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseType == "memory" {
		return nil, nil, fmt.Errorf("production preset requires DATABASE_TYPE=postgres or sqlite")
	}
	if cfg.StorageType == "memory" {
		return nil, nil, fmt.Errorf("production preset requires persistent storage (fs, s3 or minio)")
	}
	return cfg.BuildService(ctx)
}

type devConfig struct {
	dataDir string
	logger  *slog.Logger
}

type testConfig struct {
	capacity int64
	projects []string
}

// DevelopmentOption is a functional option for NewDevelopment
type DevelopmentOption func(*devConfig)

// WithDevDataDir sets the directory holding the database and blobs
func WithDevDataDir(dir string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.dataDir = dir
	}
}

// WithDevLogger sets the logger used by the service and its event sink
func WithDevLogger(logger *slog.Logger) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.logger = logger
	}
}

// TestingOption is a functional option for NewTesting
type TestingOption func(*testConfig)

// WithTestCapacity sets the in-memory blob store capacity
func WithTestCapacity(bytes int64) TestingOption {
	return func(cfg *testConfig) {
		cfg.capacity = bytes
	}
}

// WithTestProjects creates the named projects up front
func WithTestProjects(names ...string) TestingOption {
	return func(cfg *testConfig) {
		cfg.projects = append(cfg.projects, names...)
	}
}
