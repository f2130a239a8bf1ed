package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig lists every environment variable read by WithEnv. Defaults match
// defaults().
type envConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DBSchema     string `env:"AR_DB_SCHEMA" env-default:"ar_content"`
	AutoMigrate  bool   `env:"AUTO_MIGRATE" env-default:"true"`
	SQLitePath   string `env:"SQLITE_PATH" env-default:"./data/ar.db"`

	StorageType    string `env:"STORAGE_TYPE" env-default:"memory"`
	MemoryCapacity int64  `env:"MEMORY_STORAGE_CAPACITY" env-default:"268435456"`
	QuotaBytes     int64  `env:"STORAGE_QUOTA_BYTES"`
	FSBaseDir      string `env:"FS_BASE_DIR" env-default:"./data/storage"`

	S3 struct {
		Region                 string `env:"S3_REGION" env-default:"us-east-1"`
		Bucket                 string `env:"S3_BUCKET"`
		Prefix                 string `env:"S3_PREFIX"`
		AccessKeyID            string `env:"S3_ACCESS_KEY_ID"`
		SecretAccessKey        string `env:"S3_SECRET_ACCESS_KEY"`
		Endpoint               string `env:"S3_ENDPOINT"`
		UsePathStyle           bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
		EnableSSE              bool   `env:"S3_ENABLE_SSE" env-default:"false"`
		SSEAlgorithm           string `env:"S3_SSE_ALGORITHM" env-default:"AES256"`
		SSEKMSKeyID            string `env:"S3_SSE_KMS_KEY_ID"`
		CreateBucketIfNotExist bool   `env:"S3_CREATE_BUCKET_IF_NOT_EXIST" env-default:"false"`
	}

	MinIO struct {
		Endpoint  string `env:"MINIO_ENDPOINT"`
		AccessKey string `env:"MINIO_ACCESS_KEY"`
		SecretKey string `env:"MINIO_SECRET_KEY"`
		Bucket    string `env:"MINIO_BUCKET"`
		UseSSL    bool   `env:"MINIO_USE_SSL" env-default:"false"`
	}

	LockType  string `env:"LOCK_TYPE" env-default:"none"`
	EventSink string `env:"EVENT_SINK" env-default:"log"`

	Redis struct {
		Addr        string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
		Password    string        `env:"REDIS_PASSWORD"`
		LockPrefix  string        `env:"REDIS_LOCK_PREFIX" env-default:"simple-ar:lock"`
		LockTTL     time.Duration `env:"REDIS_LOCK_TTL" env-default:"30s"`
		EventStream string        `env:"REDIS_EVENT_STREAM" env-default:"simple-ar:events"`
	}
}

// WithEnv reads the process environment with cleanenv and replaces every field
// it covers. Options applied after WithEnv take precedence.
//
// Database:
//
//	DATABASE_TYPE - "memory" (default), "postgres" or "sqlite"
//	DATABASE_URL  - Postgres connection string
//	SQLITE_PATH   - SQLite database file
//
// Storage:
//
//	STORAGE_TYPE  - "memory" (default), "fs", "s3" or "minio"
//	FS_BASE_DIR, S3_*, MINIO_*, STORAGE_QUOTA_BYTES
//
// Coordination:
//
//	LOCK_TYPE     - "none" (default), "memory" or "redis"
//	EVENT_SINK    - "log" (default), "noop" or "redis"
//	REDIS_*
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		env.apply(c)
		return nil
	}
}

func (e *envConfig) apply(c *ServerConfig) {
	c.Port = e.Port
	c.Environment = e.Environment

	c.DatabaseType = e.DatabaseType
	c.DatabaseURL = e.DatabaseURL
	c.DBSchema = e.DBSchema
	c.AutoMigrate = e.AutoMigrate
	c.SQLitePath = e.SQLitePath

	c.StorageType = e.StorageType
	c.MemoryCapacity = e.MemoryCapacity
	c.FS.BaseDir = e.FSBaseDir

	c.S3.Region = e.S3.Region
	c.S3.Bucket = e.S3.Bucket
	c.S3.Prefix = e.S3.Prefix
	c.S3.AccessKeyID = e.S3.AccessKeyID
	c.S3.SecretAccessKey = e.S3.SecretAccessKey
	c.S3.Endpoint = e.S3.Endpoint
	c.S3.UsePathStyle = e.S3.UsePathStyle
	c.S3.EnableSSE = e.S3.EnableSSE
	c.S3.SSEAlgorithm = e.S3.SSEAlgorithm
	c.S3.SSEKMSKeyID = e.S3.SSEKMSKeyID
	c.S3.CreateBucketIfNotExist = e.S3.CreateBucketIfNotExist
	c.S3.QuotaBytes = e.QuotaBytes

	c.MinIO.Endpoint = e.MinIO.Endpoint
	c.MinIO.AccessKey = e.MinIO.AccessKey
	c.MinIO.SecretKey = e.MinIO.SecretKey
	c.MinIO.Bucket = e.MinIO.Bucket
	c.MinIO.UseSSL = e.MinIO.UseSSL
	c.MinIO.QuotaBytes = e.QuotaBytes

	c.LockType = e.LockType
	c.EventSink = e.EventSink

	c.Redis.Addr = e.Redis.Addr
	c.Redis.Password = e.Redis.Password
	c.Redis.LockPrefix = e.Redis.LockPrefix
	c.Redis.LockTTL = e.Redis.LockTTL
	c.Redis.EventStream = e.Redis.EventStream
}
