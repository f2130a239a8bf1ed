package arcontent_test

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-ar/pkg/arcontent"
	"github.com/tendant/simple-ar/pkg/arcontent/audio"
	"github.com/tendant/simple-ar/pkg/arcontent/repo/memory"
	memorystorage "github.com/tendant/simple-ar/pkg/arcontent/storage/memory"
)

var errDiskOnFire = errors.New("disk on fire")

func padded(prefix string, n int) []byte {
	out := make([]byte, n)
	copy(out, prefix)
	return out
}

var (
	pngBytes = padded("\x89PNG\r\n\x1a\n", 64)
	wavBytes = func() []byte {
		b := padded("RIFF", 64)
		copy(b[8:], "WAVEfmt ")
		return b
	}()
	markerBytes = [3][]byte{[]byte("iset-data"), []byte("fset-data"), []byte("fset3-data")}
)

func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// soundRequest returns a complete image/sound request.
func soundRequest(name string) arcontent.CreateResourceRequest {
	return arcontent.CreateResourceRequest{
		Name:      name,
		Thumbnail: b64(pngBytes),
		Image:     b64(pngBytes),
		Sound:     b64(wavBytes),
		Marker1:   b64(markerBytes[0]),
		Marker2:   b64(markerBytes[1]),
		Marker3:   b64(markerBytes[2]),
	}
}

// videoRequest returns a complete video request.
func videoRequest(name, url string) arcontent.CreateResourceRequest {
	return arcontent.CreateResourceRequest{
		Name:      name,
		Thumbnail: b64(pngBytes),
		Video:     url,
		Marker1:   b64(markerBytes[0]),
		Marker2:   b64(markerBytes[1]),
		Marker3:   b64(markerBytes[2]),
	}
}

// recordingStore counts writes per category and can fail selected writes.
type recordingStore struct {
	arcontent.BlobStore

	mu      sync.Mutex
	writes  map[arcontent.Category]int
	deletes []arcontent.Locator
	failOn  func(category arcontent.Category, key string) bool
}

func newRecordingStore(inner arcontent.BlobStore) *recordingStore {
	return &recordingStore{BlobStore: inner, writes: make(map[arcontent.Category]int)}
}

func (r *recordingStore) Write(ctx context.Context, category arcontent.Category, key string, data []byte) (arcontent.Locator, error) {
	r.mu.Lock()
	fail := r.failOn != nil && r.failOn(category, key)
	if !fail {
		r.writes[category]++
	}
	r.mu.Unlock()
	if fail {
		return "", &arcontent.StorageError{Backend: "test", Key: key, Op: "write", Err: errDiskOnFire}
	}
	return r.BlobStore.Write(ctx, category, key, data)
}

func (r *recordingStore) Delete(ctx context.Context, loc arcontent.Locator) error {
	r.mu.Lock()
	r.deletes = append(r.deletes, loc)
	r.mu.Unlock()
	return r.BlobStore.Delete(ctx, loc)
}

func (r *recordingStore) totalWrites() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.writes {
		n += c
	}
	return n
}

func (r *recordingStore) writesTo(category arcontent.Category) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes[category]
}

// recordingSink keeps every published event.
type recordingSink struct {
	mu     sync.Mutex
	events []arcontent.Event
}

func (r *recordingSink) Publish(ctx context.Context, event arcontent.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []arcontent.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]arcontent.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	svc   arcontent.Service
	repo  *memory.Repository
	blobs *memorystorage.Backend
	store *recordingStore
	sink  *recordingSink
}

func setupTestService(t *testing.T, opts ...arcontent.Option) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:  memory.New(),
		blobs: memorystorage.New(1 << 20),
		sink:  &recordingSink{},
	}
	env.store = newRecordingStore(env.blobs)

	options := append([]arcontent.Option{
		arcontent.WithRepository(env.repo),
		arcontent.WithBlobStore(env.store),
		arcontent.WithAudioSniffer(audio.NewSniffer()),
		arcontent.WithEventSink(env.sink),
	}, opts...)

	svc, err := arcontent.New(options...)
	require.NoError(t, err)
	env.svc = svc
	return env
}

// rowCount returns how many rows of every kind the repository holds.
func (env *testEnv) rowCount(t *testing.T) int {
	t.Helper()
	n := 0
	for _, kind := range arcontent.Kinds() {
		ids, err := env.repo.ListIDs(context.Background(), kind)
		require.NoError(t, err)
		n += len(ids)
	}
	return n
}

func requireKind(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind, "got %v", err)
}
