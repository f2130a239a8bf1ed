package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tendant/simple-ar/pkg/arcontent"
)

const scheme = "mem://"

// ErrCapacityExceeded is returned by Write when the blob would not fit.
var ErrCapacityExceeded = errors.New("memory store capacity exceeded")

// Backend is an in-memory implementation of the arcontent.BlobStore interface.
// It holds at most capacity bytes, which DiskUsage reports as the total.
type Backend struct {
	mu       sync.RWMutex
	objects  map[string][]byte
	used     int64
	capacity int64
}

// New creates a new in-memory storage backend
func New(capacity int64) *Backend {
	return &Backend{
		objects:  make(map[string][]byte),
		capacity: capacity,
	}
}

var _ arcontent.BlobStore = (*Backend)(nil)

func objectKey(category arcontent.Category, key string) string {
	return string(category) + "/" + key
}

func parseLocator(locator arcontent.Locator) (string, error) {
	key, ok := strings.CutPrefix(string(locator), scheme)
	if !ok || key == "" {
		return "", fmt.Errorf("not a memory locator: %q", locator)
	}
	return key, nil
}

// Write stores a copy of data, replacing any blob under the same key
func (b *Backend) Write(ctx context.Context, category arcontent.Category, key string, data []byte) (arcontent.Locator, error) {
	objKey := objectKey(category, key)

	b.mu.Lock()
	defer b.mu.Unlock()

	used := b.used - int64(len(b.objects[objKey])) + int64(len(data))
	if used > b.capacity {
		return "", &arcontent.StorageError{Backend: "memory", Key: objKey, Op: "write", Err: ErrCapacityExceeded}
	}

	b.objects[objKey] = append([]byte(nil), data...)
	b.used = used
	return arcontent.Locator(scheme + objKey), nil
}

// Read returns a copy of the blob behind locator
func (b *Backend) Read(ctx context.Context, locator arcontent.Locator) ([]byte, error) {
	objKey, err := parseLocator(locator)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.objects[objKey]
	if !ok {
		return nil, &arcontent.StorageError{Backend: "memory", Key: objKey, Op: "read", Err: arcontent.ErrBlobNotFound}
	}
	return append([]byte(nil), data...), nil
}

// Delete removes the blob behind locator
func (b *Backend) Delete(ctx context.Context, locator arcontent.Locator) error {
	objKey, err := parseLocator(locator)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.objects[objKey]
	if !ok {
		return &arcontent.StorageError{Backend: "memory", Key: objKey, Op: "delete", Err: arcontent.ErrBlobNotFound}
	}
	b.used -= int64(len(data))
	delete(b.objects, objKey)
	return nil
}

// DiskUsage reports the bytes held against the configured capacity
func (b *Backend) DiskUsage(ctx context.Context) (arcontent.Usage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return arcontent.Usage{Used: b.used, Total: b.capacity}, nil
}

// Len returns the number of stored blobs.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
