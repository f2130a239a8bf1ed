package arcontent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-ar/pkg/arcontent"
	"github.com/tendant/simple-ar/pkg/arcontent/audio"
	"github.com/tendant/simple-ar/pkg/arcontent/repo/memory"
	memorystorage "github.com/tendant/simple-ar/pkg/arcontent/storage/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []arcontent.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []arcontent.Option{},
			expectError: true,
		},
		{
			name: "missing blob store should fail",
			options: []arcontent.Option{
				arcontent.WithRepository(memory.New()),
				arcontent.WithAudioSniffer(audio.NewSniffer()),
			},
			expectError: true,
		},
		{
			name: "missing audio sniffer should fail",
			options: []arcontent.Option{
				arcontent.WithRepository(memory.New()),
				arcontent.WithBlobStore(memorystorage.New(1024)),
			},
			expectError: true,
		},
		{
			name: "repository, blob store and sniffer should succeed",
			options: []arcontent.Option{
				arcontent.WithRepository(memory.New()),
				arcontent.WithBlobStore(memorystorage.New(1024)),
				arcontent.WithAudioSniffer(audio.NewSniffer()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := arcontent.New(tt.options...)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestProjectLifecycle(t *testing.T) {
	env := setupTestService(t)
	svc := env.svc
	ctx := context.Background()

	id, err := svc.CreateProject(ctx, "hall-a")
	require.NoError(t, err)

	project, err := svc.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, project.ID)
	assert.Equal(t, "hall-a", project.Name)
	assert.Empty(t, project.ResourceIDs)

	require.NoError(t, svc.RenameProject(ctx, id, "hall-b"))
	project, err = svc.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hall-b", project.Name)

	ids, err := svc.ListProjectIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)

	require.NoError(t, svc.DeleteProject(ctx, id))
	_, err = svc.GetProject(ctx, id)
	requireKind(t, err, arcontent.ErrNotFound)

	assert.Equal(t, []arcontent.EventType{
		arcontent.EventProjectCreated,
		arcontent.EventProjectRenamed,
		arcontent.EventProjectDeleted,
	}, env.sink.types())
}

func TestProjectValidation(t *testing.T) {
	svc := setupTestService(t).svc
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "hall a")
	requireKind(t, err, arcontent.ErrInvalidName)

	id, err := svc.CreateProject(ctx, "hall")
	require.NoError(t, err)

	err = svc.RenameProject(ctx, id, "bad/name")
	requireKind(t, err, arcontent.ErrInvalidName)

	err = svc.RenameProject(ctx, "abc", "ok")
	requireKind(t, err, arcontent.ErrInvalidID)

	err = svc.RenameProject(ctx, "999999", "ok")
	requireKind(t, err, arcontent.ErrNotFound)

	err = svc.DeleteProject(ctx, "-3")
	requireKind(t, err, arcontent.ErrInvalidID)
}

// Malformed and missing ids stay distinguishable.
func TestResolveErrors(t *testing.T) {
	svc := setupTestService(t).svc
	ctx := context.Background()

	_, err := svc.GetProject(ctx, "abc")
	requireKind(t, err, arcontent.ErrInvalidID)
	assert.NotErrorIs(t, err, arcontent.ErrNotFound)

	_, err = svc.GetProject(ctx, "999999")
	requireKind(t, err, arcontent.ErrNotFound)
	assert.NotErrorIs(t, err, arcontent.ErrInvalidID)

	_, err = svc.GetResource(ctx, "999999")
	requireKind(t, err, arcontent.ErrNotFound)
}

func TestListProjects(t *testing.T) {
	svc := setupTestService(t).svc
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.CreateProject(ctx, name)
		require.NoError(t, err)
	}

	page, err := svc.ListProjects(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "a", page.Items[0].Name)
	assert.Equal(t, "b", page.Items[1].Name)

	page, err = svc.ListProjects(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c", page.Items[0].Name)

	page, err = svc.ListProjects(ctx, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	t.Run("bounds", func(t *testing.T) {
		for _, tc := range []struct{ page, size int }{{-1, 10}, {0, 0}, {0, arcontent.MaxPageSize + 1}} {
			_, err := svc.ListProjects(ctx, tc.page, tc.size)
			requireKind(t, err, arcontent.ErrInvalidParameter)
		}
	})
}

type brokenUsageStore struct {
	arcontent.BlobStore
}

func (brokenUsageStore) DiskUsage(ctx context.Context) (arcontent.Usage, error) {
	return arcontent.Usage{}, errors.New("statfs: permission denied")
}

func TestGetStorageInfo(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, err := env.svc.CreateResource(ctx, "", soundRequest("poster"))
	require.NoError(t, err)

	info, err := env.svc.GetStorageInfo(ctx)
	require.NoError(t, err)
	assert.Positive(t, info.UsedBytes)
	assert.LessOrEqual(t, info.UsedBytes, info.TotalBytes)
	assert.Equal(t, int64(1<<20), info.TotalBytes)

	broken := setupTestService(t, arcontent.WithBlobStore(brokenUsageStore{memorystorage.New(10)}))
	_, err = broken.svc.GetStorageInfo(ctx)
	requireKind(t, err, arcontent.ErrIOFailure)
	assert.NotContains(t, err.Error(), "permission denied")
}
