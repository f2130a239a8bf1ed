package config

import (
	"fmt"
	"log/slog"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case "memory":
		case "postgres":
			if url == "" {
				return fmt.Errorf("database URL is required for postgres")
			}
		case "sqlite":
			if url == "" {
				return fmt.Errorf("database path is required for sqlite")
			}
			c.SQLitePath = url
		default:
			return fmt.Errorf("database type must be 'memory', 'postgres' or 'sqlite', got: %s", dbType)
		}
		c.DatabaseType = dbType
		if dbType == "postgres" {
			c.DatabaseURL = url
		}
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithMemoryStorage selects the in-memory blob store with the given capacity in bytes
func WithMemoryStorage(capacity int64) Option {
	return func(c *ServerConfig) error {
		if capacity <= 0 {
			return fmt.Errorf("memory storage capacity must be positive, got: %d", capacity)
		}
		c.StorageType = "memory"
		c.MemoryCapacity = capacity
		return nil
	}
}

// WithFilesystemStorage selects the filesystem blob store
func WithFilesystemStorage(baseDir string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.StorageType = "fs"
		c.FS.BaseDir = baseDir
		return nil
	}
}

// WithS3Storage selects the S3 blob store
func WithS3Storage(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1" // Default region
		}
		c.StorageType = "s3"
		c.S3.Bucket = bucket
		c.S3.Region = region
		return nil
	}
}

// WithS3Endpoint points the S3 store at an S3-compatible service such as MinIO
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		c.S3.Endpoint = endpoint
		c.S3.UsePathStyle = usePathStyle
		return nil
	}
}

// WithMinIOStorage selects the native MinIO blob store
func WithMinIOStorage(endpoint, bucket, accessKey, secretKey string, useSSL bool) Option {
	return func(c *ServerConfig) error {
		if endpoint == "" || bucket == "" {
			return fmt.Errorf("minio endpoint and bucket cannot be empty")
		}
		c.StorageType = "minio"
		c.MinIO.Endpoint = endpoint
		c.MinIO.Bucket = bucket
		c.MinIO.AccessKey = accessKey
		c.MinIO.SecretKey = secretKey
		c.MinIO.UseSSL = useSSL
		return nil
	}
}

// WithStorageQuota sets the total reported for bucket-backed stores
func WithStorageQuota(bytes int64) Option {
	return func(c *ServerConfig) error {
		if bytes < 0 {
			return fmt.Errorf("storage quota cannot be negative")
		}
		c.S3.QuotaBytes = bytes
		c.MinIO.QuotaBytes = bytes
		return nil
	}
}

// WithLocker selects the entity locker: "none", "memory" or "redis"
func WithLocker(lockType string) Option {
	return func(c *ServerConfig) error {
		c.LockType = lockType
		return nil
	}
}

// WithEventSink selects the event sink: "noop", "log" or "redis"
func WithEventSink(sink string) Option {
	return func(c *ServerConfig) error {
		c.EventSink = sink
		return nil
	}
}

// WithRedis sets the Redis server used by the redis locker and event sink
func WithRedis(addr, password string) Option {
	return func(c *ServerConfig) error {
		if addr == "" {
			return fmt.Errorf("redis addr cannot be empty")
		}
		c.Redis.Addr = addr
		c.Redis.Password = password
		return nil
	}
}

// WithLogger sets the logger handed to the service
func WithLogger(logger *slog.Logger) Option {
	return func(c *ServerConfig) error {
		c.Logger = logger
		return nil
	}
}
