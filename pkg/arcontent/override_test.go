package arcontent_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-ar/pkg/arcontent"
	"github.com/tendant/simple-ar/pkg/arcontent/repo/memory"
)

func createSoundResource(t *testing.T, env *testEnv) *arcontent.ResourceView {
	t.Helper()
	view, err := env.svc.CreateResource(context.Background(), "", soundRequest("base"))
	require.NoError(t, err)
	return view
}

func TestOverrideSound(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	view := createSoundResource(t, env)

	newWav := append([]byte(nil), wavBytes...)
	newWav = append(newWav, []byte("more samples")...)
	require.NoError(t, env.svc.OverrideSound(ctx, view.Sound.ID, "louder", newWav))

	data, err := env.svc.ReadAsset(ctx, arcontent.KindSound, view.Sound.ID)
	require.NoError(t, err)
	assert.Equal(t, newWav, data)

	got, err := env.svc.GetResource(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "louder", got.Sound.Name)
	assert.Equal(t, int64(len(newWav)), got.Sound.SizeBytes)
	assert.Equal(t, view.Sound.Locator, got.Sound.Locator)
}

// A missing sound is reported as not found and nothing is written.
func TestOverrideSound_MissingRow(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	err := env.svc.OverrideSound(ctx, "999999", "x", wavBytes)
	requireKind(t, err, arcontent.ErrNotFound)
	assert.Equal(t, 0, env.store.totalWrites())

	err = env.svc.OverrideSound(ctx, "abc", "x", wavBytes)
	requireKind(t, err, arcontent.ErrInvalidID)
	assert.Equal(t, 0, env.store.totalWrites())
}

func TestOverrideSound_Rejects(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	view := createSoundResource(t, env)
	writes := env.store.totalWrites()

	err := env.svc.OverrideSound(ctx, view.Sound.ID, "x", []byte("not audio at all"))
	requireKind(t, err, arcontent.ErrInvalidParameter)

	err = env.svc.OverrideSound(ctx, view.Sound.ID, "bad name", wavBytes)
	requireKind(t, err, arcontent.ErrInvalidName)

	assert.Equal(t, writes, env.store.totalWrites())
}

func TestOverrideMarkers(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	view := createSoundResource(t, env)

	replacement := [3][]byte{[]byte("iset-v2"), []byte("fset-v2"), []byte("fset3-v2")}
	req := arcontent.MarkerRequest{
		ID:      view.Markers.ID,
		Name:    "v2",
		Marker1: b64(replacement[0]),
		Marker2: b64(replacement[1]),
		Marker3: b64(replacement[2]),
	}
	require.NoError(t, env.svc.OverrideMarkers(ctx, req))

	for slot := 1; slot <= 3; slot++ {
		data, err := env.svc.ReadMarker(ctx, view.Markers.ID, slot)
		require.NoError(t, err)
		assert.Equal(t, replacement[slot-1], data)
	}

	got, err := env.svc.GetResource(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Markers.Name)
	assert.Equal(t, view.Markers.Locators, got.Markers.Locators)

	t.Run("missing slot", func(t *testing.T) {
		partial := req
		partial.Marker3 = ""
		requireKind(t, env.svc.OverrideMarkers(ctx, partial), arcontent.ErrInvalidParameter)
	})

	t.Run("unknown set", func(t *testing.T) {
		missing := req
		missing.ID = "999999"
		requireKind(t, env.svc.OverrideMarkers(ctx, missing), arcontent.ErrNotFound)
	})
}

// Blob failures surface as a generic storage failure without the cause.
func TestOverrideMarkers_WriteFailure(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	view := createSoundResource(t, env)

	env.store.failOn = func(category arcontent.Category, key string) bool {
		return category == arcontent.CategoryMarker
	}
	err := env.svc.OverrideMarkers(ctx, arcontent.MarkerRequest{
		ID:      view.Markers.ID,
		Name:    "v2",
		Marker1: b64([]byte("a")),
		Marker2: b64([]byte("b")),
		Marker3: b64([]byte("c")),
	})
	requireKind(t, err, arcontent.ErrIOFailure)
	assert.Contains(t, err.Error(), "write failed")
	assert.NotContains(t, err.Error(), errDiskOnFire.Error())

	got, err := env.svc.GetResource(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "base", got.Markers.Name)
}

func TestOverrideVideo(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	view, err := env.svc.CreateResource(ctx, "", videoRequest("clip", "https://cdn.example.com/a.mp4"))
	require.NoError(t, err)

	require.NoError(t, env.svc.OverrideVideo(ctx, view.Video.ID, "clip2", "https://cdn.example.com/b.mp4"))
	got, err := env.svc.GetResource(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/b.mp4", got.Video.URL)
	assert.Equal(t, "clip2", got.Video.Name)

	requireKind(t, env.svc.OverrideVideo(ctx, view.Video.ID, "clip3", "not a url"), arcontent.ErrInvalidParameter)
	requireKind(t, env.svc.OverrideVideo(ctx, "999999", "clip3", "https://cdn.example.com/c.mp4"), arcontent.ErrNotFound)
}

func TestOverrideImage(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	view := createSoundResource(t, env)

	gif := padded("GIF89a", 32)
	require.NoError(t, env.svc.OverrideImage(ctx, view.Image.ID, "gif", b64(gif)))

	data, err := env.svc.ReadAsset(ctx, arcontent.KindImage, view.Image.ID)
	require.NoError(t, err)
	assert.Equal(t, gif, data)

	got, err := env.svc.GetResource(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/gif", got.Image.MimeType)

	requireKind(t, env.svc.OverrideImage(ctx, view.Image.ID, "gif", "***"), arcontent.ErrInvalidParameter)

	env.store.failOn = func(category arcontent.Category, key string) bool { return true }
	requireKind(t, env.svc.OverrideImage(ctx, view.Image.ID, "gif", b64(gif)), arcontent.ErrIOFailure)
}

type recordingLocker struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (l *recordingLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return func() {}, nil
}

func TestOverrides_HoldEntityLock(t *testing.T) {
	locker := &recordingLocker{}
	env := setupTestService(t, arcontent.WithLocker(locker))
	ctx := context.Background()
	view := createSoundResource(t, env)

	require.NoError(t, env.svc.OverrideSound(ctx, view.Sound.ID, "x", wavBytes))
	require.NoError(t, env.svc.RenameResource(ctx, view.ID, "renamed"))
	assert.Equal(t, []string{"sound:" + view.Sound.ID, "resource:" + view.ID}, locker.keys)

	locker.err = errors.New("redis unreachable")
	err := env.svc.OverrideSound(ctx, view.Sound.ID, "x", wavBytes)
	requireKind(t, err, arcontent.ErrIOFailure)
	assert.NotContains(t, err.Error(), "redis unreachable")
}

func TestOverride_PublishesEvent(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	view := createSoundResource(t, env)

	require.NoError(t, env.svc.OverrideSound(ctx, view.Sound.ID, "x", wavBytes))

	types := env.sink.types()
	assert.Equal(t, arcontent.EventAssetOverridden, types[len(types)-1])
}

// saveFailingRepo fails Save inside transactions once armed.
type saveFailingRepo struct {
	arcontent.Repository
	fail *bool
}

func (r saveFailingRepo) Save(ctx context.Context, e arcontent.Entity) error {
	if *r.fail {
		return errDiskOnFire
	}
	return r.Repository.Save(ctx, e)
}

func (r saveFailingRepo) Atomically(ctx context.Context, fn func(repo arcontent.Repository) error) error {
	return r.Repository.Atomically(ctx, func(tx arcontent.Repository) error {
		return fn(saveFailingRepo{Repository: tx, fail: r.fail})
	})
}

// A failed row update leaves the previous blob in place.
func TestOverride_SaveFailureKeepsBlob(t *testing.T) {
	fail := false
	env := setupTestService(t, arcontent.WithRepository(saveFailingRepo{Repository: memory.New(), fail: &fail}))
	ctx := context.Background()
	view := createSoundResource(t, env)
	writes := env.store.totalWrites()

	fail = true
	newWav := append(append([]byte(nil), wavBytes...), []byte("more samples")...)
	requireKind(t, env.svc.OverrideSound(ctx, view.Sound.ID, "louder", newWav), arcontent.ErrIOFailure)
	requireKind(t, env.svc.OverrideImage(ctx, view.Image.ID, "gif", b64(padded("GIF89a", 32))), arcontent.ErrIOFailure)
	requireKind(t, env.svc.OverrideMarkers(ctx, arcontent.MarkerRequest{
		ID:      view.Markers.ID,
		Name:    "v2",
		Marker1: b64([]byte("a")),
		Marker2: b64([]byte("b")),
		Marker3: b64([]byte("c")),
	}), arcontent.ErrIOFailure)
	assert.Equal(t, writes, env.store.totalWrites())

	fail = false
	data, err := env.svc.ReadAsset(ctx, arcontent.KindSound, view.Sound.ID)
	require.NoError(t, err)
	assert.Equal(t, wavBytes, data)
	data, err = env.svc.ReadAsset(ctx, arcontent.KindImage, view.Image.ID)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	marker, err := env.svc.ReadMarker(ctx, view.Markers.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, markerBytes[0], marker)
}
