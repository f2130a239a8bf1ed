package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-ar/pkg/arcontent"
	"github.com/tendant/simple-ar/pkg/arcontent/audio"
	redisevents "github.com/tendant/simple-ar/pkg/arcontent/events/redis"
	memorylock "github.com/tendant/simple-ar/pkg/arcontent/lock/memory"
	redislock "github.com/tendant/simple-ar/pkg/arcontent/lock/redis"
	"github.com/tendant/simple-ar/pkg/arcontent/repo/memory"
	repopg "github.com/tendant/simple-ar/pkg/arcontent/repo/postgres"
	reposqlite "github.com/tendant/simple-ar/pkg/arcontent/repo/sqlite"
	fsstorage "github.com/tendant/simple-ar/pkg/arcontent/storage/fs"
	memorystorage "github.com/tendant/simple-ar/pkg/arcontent/storage/memory"
	miniostorage "github.com/tendant/simple-ar/pkg/arcontent/storage/minio"
	s3storage "github.com/tendant/simple-ar/pkg/arcontent/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:           "8080",
		Environment:    "development",
		DatabaseType:   "memory",
		DBSchema:       "ar_content",
		AutoMigrate:    true,
		SQLitePath:     "./data/ar.db",
		StorageType:    "memory",
		MemoryCapacity: 256 << 20,
		FS:             fsstorage.Config{BaseDir: "./data/storage"},
		S3:             s3storage.Config{Region: "us-east-1", SSEAlgorithm: "AES256"},
		LockType:       "none",
		EventSink:      "log",
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			LockPrefix:  "simple-ar:lock",
			LockTTL:     30 * time.Second,
			EventStream: "simple-ar:events",
		},
	}
}

// ServerConfig represents server configuration for the simple-ar service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseType string // "memory", "postgres", "sqlite"
	DatabaseURL  string
	DBSchema     string // Postgres schema to use (default: ar_content)
	AutoMigrate  bool   // apply embedded migrations on startup
	SQLitePath   string

	// Blob storage configuration
	StorageType    string // "memory", "fs", "s3", "minio"
	MemoryCapacity int64
	FS             fsstorage.Config
	S3             s3storage.Config
	MinIO          miniostorage.Config

	// Coordination
	LockType  string // "none", "memory", "redis"
	EventSink string // "noop", "log", "redis"
	Redis     RedisConfig

	Logger *slog.Logger
}

// RedisConfig is shared by the Redis locker and event sink.
type RedisConfig struct {
	Addr        string
	Password    string
	LockPrefix  string
	LockTTL     time.Duration
	EventStream string
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("sqlite_path is required when using sqlite")
		}
	default:
		return errors.New("database_type must be 'memory', 'postgres' or 'sqlite'")
	}

	switch c.StorageType {
	case "memory":
		if c.MemoryCapacity <= 0 {
			return errors.New("memory storage capacity must be positive")
		}
	case "fs":
		if c.FS.BaseDir == "" {
			return errors.New("fs base directory is required")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required")
		}
	case "minio":
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return errors.New("minio endpoint and bucket are required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}

	switch c.LockType {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unsupported lock type: %s", c.LockType)
	}
	switch c.EventSink {
	case "noop", "log", "redis":
	default:
		return fmt.Errorf("unsupported event sink: %s", c.EventSink)
	}
	if (c.LockType == "redis" || c.EventSink == "redis") && c.Redis.Addr == "" {
		return errors.New("redis addr is required for redis lock or event sink")
	}

	return nil
}

func (c *ServerConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// BuildService creates a Service instance from the server configuration. The
// returned cleanup func closes every connection opened here.
func (c *ServerConfig) BuildService(ctx context.Context) (arcontent.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	options := []arcontent.Option{
		arcontent.WithAudioSniffer(audio.NewSniffer()),
		arcontent.WithLogger(c.logger()),
	}

	repo, closeRepo, err := c.buildRepository(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build repository: %w", err)
	}
	closers = append(closers, closeRepo)
	options = append(options, arcontent.WithRepository(repo))

	store, err := c.buildBlobStore()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to build blob store: %w", err)
	}
	options = append(options, arcontent.WithBlobStore(store))

	var redisClient *redis.Client
	if c.LockType == "redis" || c.EventSink == "redis" {
		redisClient = redis.NewClient(&redis.Options{Addr: c.Redis.Addr, Password: c.Redis.Password})
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	switch c.LockType {
	case "memory":
		options = append(options, arcontent.WithLocker(memorylock.New()))
	case "redis":
		locker, err := redislock.New(redisClient, redislock.Config{Prefix: c.Redis.LockPrefix, TTL: c.Redis.LockTTL})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to build locker: %w", err)
		}
		options = append(options, arcontent.WithLocker(locker))
	}

	switch c.EventSink {
	case "log":
		options = append(options, arcontent.WithEventSink(arcontent.NewLoggingEventSink(c.logger())))
	case "redis":
		sink, err := redisevents.New(redisClient, redisevents.Config{Stream: c.Redis.EventStream})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to build event sink: %w", err)
		}
		options = append(options, arcontent.WithEventSink(sink))
	}

	svc, err := arcontent.New(options...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context) (arcontent.Repository, func(), error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		pool, err := newPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, nil, err
		}
		if c.AutoMigrate {
			if err := repopg.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("failed to migrate: %w", err)
			}
		}
		return repopg.NewWithPool(pool), pool.Close, nil
	case "sqlite":
		store, err := reposqlite.Open(c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func newPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			// create the schema on first use so migrations have somewhere to go
			if _, err := conn.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
				return err
			}
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// PingPostgres verifies connectivity to Postgres using the configured schema.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := newPool(ctx, databaseURL, schema)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildBlobStore creates a BlobStore based on the configuration
func (c *ServerConfig) buildBlobStore() (arcontent.BlobStore, error) {
	switch c.StorageType {
	case "memory":
		return memorystorage.New(c.MemoryCapacity), nil
	case "fs":
		return fsstorage.New(c.FS)
	case "s3":
		return s3storage.New(c.S3)
	case "minio":
		return miniostorage.New(c.MinIO)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}
}
