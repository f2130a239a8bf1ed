package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tendant/simple-ar/pkg/arcontent"
)

const scheme = "minio://"

// Config options for the MinIO backend
type Config struct {
	Endpoint  string // host:port, without scheme
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool

	// QuotaBytes is reported as the total by DiskUsage.
	QuotaBytes int64
}

// Backend stores blobs in a MinIO bucket as <category>/<key>.
type Backend struct {
	client *minio.Client
	bucket string
	quota  int64
}

var _ arcontent.BlobStore = (*Backend)(nil)

// New connects to MinIO and ensures the bucket exists.
func New(config Config) (*Backend, error) {
	if config.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Backend{client: client, bucket: config.Bucket, quota: config.QuotaBytes}, nil
}

func (b *Backend) storageError(op, key string, err error) error {
	return &arcontent.StorageError{Backend: "minio", Key: key, Op: op, Err: err}
}

func (b *Backend) objectKey(locator arcontent.Locator) (string, error) {
	key, ok := strings.CutPrefix(string(locator), scheme+b.bucket+"/")
	if !ok || key == "" {
		return "", fmt.Errorf("locator %q does not belong to bucket %s", locator, b.bucket)
	}
	return key, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// Write uploads an object.
func (b *Backend) Write(ctx context.Context, category arcontent.Category, key string, data []byte) (arcontent.Locator, error) {
	objKey := string(category) + "/" + key
	_, err := b.client.PutObject(ctx, b.bucket, objKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return "", b.storageError("write", objKey, fmt.Errorf("put object: %w", err))
	}
	return arcontent.Locator(scheme + b.bucket + "/" + objKey), nil
}

// Read downloads an object.
func (b *Backend) Read(ctx context.Context, locator arcontent.Locator) ([]byte, error) {
	objKey, err := b.objectKey(locator)
	if err != nil {
		return nil, err
	}

	obj, err := b.client.GetObject(ctx, b.bucket, objKey, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, b.storageError("read", objKey, arcontent.ErrBlobNotFound)
		}
		return nil, b.storageError("read", objKey, fmt.Errorf("get object: %w", err))
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, b.storageError("read", objKey, arcontent.ErrBlobNotFound)
		}
		return nil, b.storageError("read", objKey, fmt.Errorf("read object: %w", err))
	}
	return data, nil
}

// Delete removes an object.
func (b *Backend) Delete(ctx context.Context, locator arcontent.Locator) error {
	objKey, err := b.objectKey(locator)
	if err != nil {
		return err
	}
	if err := b.client.RemoveObject(ctx, b.bucket, objKey, minio.RemoveObjectOptions{}); err != nil {
		return b.storageError("delete", objKey, fmt.Errorf("delete object: %w", err))
	}
	return nil
}

// DiskUsage sums the bucket's object sizes against the configured quota.
func (b *Backend) DiskUsage(ctx context.Context) (arcontent.Usage, error) {
	var used int64
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return arcontent.Usage{}, b.storageError("list", b.bucket, obj.Err)
		}
		used += obj.Size
	}
	return arcontent.Usage{Used: used, Total: max(b.quota, used)}, nil
}
