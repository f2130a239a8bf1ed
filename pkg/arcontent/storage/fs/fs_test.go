package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-ar/pkg/arcontent"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("hello fs")

	loc, err := backend.Write(ctx, arcontent.CategorySound, "12", data)
	require.NoError(t, err)
	assert.Equal(t, arcontent.Locator("file://"+filepath.Join(tmp, "sound", "12")), loc)

	got, err := backend.Read(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Overwrite keeps the same path and leaves no temp files behind
	again, err := backend.Write(ctx, arcontent.CategorySound, "12", []byte("v2"))
	require.NoError(t, err)
	assert.Equal(t, loc, again)
	entries, err := os.ReadDir(filepath.Join(tmp, "sound"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, backend.Delete(ctx, loc))
	_, err = os.Stat(filepath.Join(tmp, "sound", "12"))
	assert.True(t, os.IsNotExist(err))

	_, err = backend.Read(ctx, loc)
	assert.ErrorIs(t, err, arcontent.ErrBlobNotFound)
}

func TestFSBackend_RejectsUnsafeInput(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		_, err := backend.Write(ctx, arcontent.CategoryImage, key, []byte("x"))
		assert.Error(t, err, "key %q", key)
	}

	_, err = backend.Read(ctx, arcontent.Locator("file://"+filepath.Join(tmp, "..", "etc", "passwd")))
	assert.Error(t, err)
	_, err = backend.Read(ctx, "mem://image/1")
	assert.Error(t, err)
}

func TestFSBackend_RequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestFSBackend_DiskUsage(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	usage, err := backend.DiskUsage(context.Background())
	require.NoError(t, err)
	assert.Positive(t, usage.Total)
	assert.LessOrEqual(t, usage.Used, usage.Total)
}
