package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-ar/pkg/arcontent"
)

const scheme = "file://"

// Backend is a filesystem implementation of the arcontent.BlobStore interface.
// Blobs are laid out as <BaseDir>/<category>/<key>.
type Backend struct {
	baseDir string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory for storing files
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	baseDir, err := filepath.Abs(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{baseDir: baseDir}, nil
}

var _ arcontent.BlobStore = (*Backend)(nil)

func (b *Backend) storageError(op, key string, err error) error {
	return &arcontent.StorageError{Backend: "fs", Key: key, Op: op, Err: err}
}

// path returns the file for locator, refusing anything outside the base directory.
func (b *Backend) path(locator arcontent.Locator) (string, error) {
	p, ok := strings.CutPrefix(string(locator), scheme)
	if !ok {
		return "", fmt.Errorf("not a file locator: %q", locator)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(b.baseDir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("locator %q is outside %s", locator, b.baseDir)
	}
	return p, nil
}

// Write replaces the file for category/key. Data goes to a temporary file first
// and is renamed into place.
func (b *Backend) Write(ctx context.Context, category arcontent.Category, key string, data []byte) (arcontent.Locator, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", b.storageError("write", key, fmt.Errorf("invalid key %q", key))
	}
	if err := ctx.Err(); err != nil {
		return "", b.storageError("write", key, err)
	}

	dir := filepath.Join(b.baseDir, string(category))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", b.storageError("write", key, fmt.Errorf("failed to create directory: %w", err))
	}

	tmp, err := os.CreateTemp(dir, "."+key+".tmp-*")
	if err != nil {
		return "", b.storageError("write", key, fmt.Errorf("failed to create file: %w", err))
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", b.storageError("write", key, fmt.Errorf("failed to write file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", b.storageError("write", key, fmt.Errorf("failed to write file: %w", err))
	}

	target := filepath.Join(dir, key)
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", b.storageError("write", key, fmt.Errorf("failed to move file: %w", err))
	}
	return arcontent.Locator(scheme + target), nil
}

// Read returns the file contents behind locator
func (b *Backend) Read(ctx context.Context, locator arcontent.Locator) ([]byte, error) {
	p, err := b.path(locator)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, b.storageError("read", p, arcontent.ErrBlobNotFound)
	}
	if err != nil {
		return nil, b.storageError("read", p, err)
	}
	return data, nil
}

// Delete removes the file behind locator
func (b *Backend) Delete(ctx context.Context, locator arcontent.Locator) error {
	p, err := b.path(locator)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return b.storageError("delete", p, arcontent.ErrBlobNotFound)
	}
	if err != nil {
		return b.storageError("delete", p, err)
	}
	return nil
}

// DiskUsage reports the usage of the filesystem holding the base directory
func (b *Backend) DiskUsage(ctx context.Context) (arcontent.Usage, error) {
	usage, err := diskUsage(b.baseDir)
	if err != nil {
		return arcontent.Usage{}, b.storageError("statfs", b.baseDir, err)
	}
	return usage, nil
}
