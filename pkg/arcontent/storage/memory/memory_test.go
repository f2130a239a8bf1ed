package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-ar/pkg/arcontent"
	"github.com/tendant/simple-ar/pkg/arcontent/storage/memory"
)

func TestMemoryBackend(t *testing.T) {
	backend := memory.New(16)
	ctx := context.Background()

	loc, err := backend.Write(ctx, arcontent.CategoryMarker, "7.iset", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, arcontent.Locator("mem://marker/7.iset"), loc)

	t.Run("Read", func(t *testing.T) {
		data, err := backend.Read(ctx, loc)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("OverwriteKeepsLocator", func(t *testing.T) {
		again, err := backend.Write(ctx, arcontent.CategoryMarker, "7.iset", []byte("hi"))
		require.NoError(t, err)
		assert.Equal(t, loc, again)

		usage, err := backend.DiskUsage(ctx)
		require.NoError(t, err)
		assert.Equal(t, arcontent.Usage{Used: 2, Total: 16}, usage)
	})

	t.Run("CapacityExceeded", func(t *testing.T) {
		_, err := backend.Write(ctx, arcontent.CategoryImage, "1", make([]byte, 15))
		assert.ErrorIs(t, err, memory.ErrCapacityExceeded)
		assert.Equal(t, 1, backend.Len())
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, loc))
		_, err := backend.Read(ctx, loc)
		assert.ErrorIs(t, err, arcontent.ErrBlobNotFound)
		assert.ErrorIs(t, backend.Delete(ctx, loc), arcontent.ErrBlobNotFound)

		usage, err := backend.DiskUsage(ctx)
		require.NoError(t, err)
		assert.Zero(t, usage.Used)
	})

	t.Run("ForeignLocator", func(t *testing.T) {
		_, err := backend.Read(ctx, "file:///tmp/x")
		assert.Error(t, err)
	})
}
