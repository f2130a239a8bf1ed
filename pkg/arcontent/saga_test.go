package arcontent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaga_CompensatesInReverse(t *testing.T) {
	sg := newSaga("test", discardLogger())
	assert.Equal(t, SagaStatusRunning, sg.Status())

	var order []string
	for _, ref := range []string{"a", "b", "c"} {
		sg.AppendAction("step", ref, func(ctx context.Context) error {
			order = append(order, ref)
			return nil
		})
	}

	failed := sg.Compensate(context.Background())
	assert.Equal(t, 0, failed)
	assert.Equal(t, []string{"c", "b", "a"}, order)
	assert.Equal(t, SagaStatusCompensated, sg.Status())

	// Actions run once.
	sg.Compensate(context.Background())
	assert.Len(t, order, 3)
}

func TestSaga_ContinuesPastFailures(t *testing.T) {
	sg := newSaga("test", discardLogger())

	ran := 0
	sg.AppendAction("step", "ok", func(ctx context.Context) error { ran++; return nil })
	sg.AppendAction("step", "broken", func(ctx context.Context) error { ran++; return errors.New("boom") })

	assert.Equal(t, 1, sg.Compensate(context.Background()))
	assert.Equal(t, 2, ran)
}

func TestSaga_RunsWithCancelledContext(t *testing.T) {
	sg := newSaga("test", discardLogger())

	var sawErr error
	sg.AppendAction("step", "x", func(ctx context.Context) error {
		sawErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sg.Compensate(ctx)
	assert.NoError(t, sawErr)
}

func TestSaga_SucceedDropsActions(t *testing.T) {
	sg := newSaga("test", discardLogger())
	sg.AppendAction("step", "x", func(ctx context.Context) error {
		t.Fatal("compensation must not run after success")
		return nil
	})

	sg.Succeed()
	assert.Equal(t, SagaStatusSucceeded, sg.Status())
	assert.Equal(t, 0, sg.Compensate(context.Background()))
}

type mapBlobStore struct {
	blobs map[Locator][]byte
}

func (m *mapBlobStore) Write(ctx context.Context, category Category, key string, data []byte) (Locator, error) {
	loc := Locator(string(category) + "/" + key)
	m.blobs[loc] = data
	return loc, nil
}

func (m *mapBlobStore) Read(ctx context.Context, loc Locator) ([]byte, error) {
	data, ok := m.blobs[loc]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return data, nil
}

func (m *mapBlobStore) Delete(ctx context.Context, loc Locator) error {
	delete(m.blobs, loc)
	return nil
}

func (m *mapBlobStore) DiskUsage(ctx context.Context) (Usage, error) {
	return Usage{}, nil
}

func TestSaga_WriteBlobRecordsDelete(t *testing.T) {
	store := &mapBlobStore{blobs: make(map[Locator][]byte)}
	sg := newSaga("test", discardLogger())

	loc, err := sg.writeBlob(context.Background(), store, CategoryMarker, "1.iset", []byte("x"))
	require.NoError(t, err)
	assert.Contains(t, store.blobs, loc)

	sg.Compensate(context.Background())
	assert.Empty(t, store.blobs)
}

func TestError_HidesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ioFailure("create_resource", cause)

	assert.Equal(t, "create_resource: storage failure: write failed", err.Error())
	assert.ErrorIs(t, err, ErrIOFailure)
	assert.NotErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Cause())
}
