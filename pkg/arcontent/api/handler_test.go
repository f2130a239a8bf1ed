package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-ar/pkg/arcontent"
	"github.com/tendant/simple-ar/pkg/arcontent/audio"
	"github.com/tendant/simple-ar/pkg/arcontent/repo/memory"
	memorystorage "github.com/tendant/simple-ar/pkg/arcontent/storage/memory"
)

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
)

func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func soundResource(name string) arcontent.CreateResourceRequest {
	return arcontent.CreateResourceRequest{
		Name:      name,
		Thumbnail: b64(pngBytes),
		Image:     b64(pngBytes),
		Sound:     b64(wavBytes),
		Marker1:   b64([]byte("iset")),
		Marker2:   b64([]byte("fset")),
		Marker3:   b64([]byte("fset3")),
	}
}

// setupHandlerTest creates a Handler backed by in-memory stores
func setupHandlerTest(t *testing.T, opts ...arcontent.Option) (http.Handler, arcontent.Service) {
	t.Helper()
	base := []arcontent.Option{
		arcontent.WithRepository(memory.New()),
		arcontent.WithBlobStore(memorystorage.New(1 << 20)),
		arcontent.WithAudioSniffer(audio.NewSniffer()),
	}
	svc, err := arcontent.New(append(base, opts...)...)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(svc, logger).Routes(), svc
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_ProjectLifecycle(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := do(t, router, http.MethodPost, "/projects", NameRequest{Name: "hall"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created IDResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	w = do(t, router, http.MethodPut, "/projects/"+created.ID+"/name", NameRequest{Name: "hall-b"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/projects/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var project arcontent.ProjectView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))
	assert.Equal(t, "hall-b", project.Name)

	w = do(t, router, http.MethodGet, "/projects/ids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ids IDsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ids))
	assert.Equal(t, []string{created.ID}, ids.IDs)

	w = do(t, router, http.MethodGet, "/projects?page=0&size=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page arcontent.Page[arcontent.ProjectView]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)

	w = do(t, router, http.MethodDelete, "/projects/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/projects/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ErrorStatus(t *testing.T) {
	router, _ := setupHandlerTest(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"invalid id", http.MethodGet, "/projects/abc", nil, http.StatusBadRequest},
		{"missing project", http.MethodGet, "/projects/999999", nil, http.StatusNotFound},
		{"invalid name", http.MethodPost, "/projects", NameRequest{Name: "a b"}, http.StatusBadRequest},
		{"bad page", http.MethodGet, "/projects?page=x", nil, http.StatusBadRequest},
		{"page size out of range", http.MethodGet, "/projects?size=0", nil, http.StatusBadRequest},
		{"both asset groups", http.MethodPost, "/resources", func() arcontent.CreateResourceRequest {
			r := soundResource("x")
			r.Video = "https://cdn.example.com/v.mp4"
			return r
		}(), http.StatusConflict},
		{"bad marker slot", http.MethodGet, "/markers/1/x", nil, http.StatusBadRequest},
		{"invalid sound encoding", http.MethodPut, "/sounds/1", SoundRequest{Name: "x", Sound: "***"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_ResourceFlow(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := do(t, router, http.MethodPost, "/projects", NameRequest{Name: "hall"})
	require.Equal(t, http.StatusCreated, w.Code)
	var project IDResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))

	w = do(t, router, http.MethodPost, "/projects/"+project.ID+"/resources", soundResource("poster"))
	require.Equal(t, http.StatusCreated, w.Code)
	var view arcontent.ResourceView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, project.ID, view.ProjectID)
	require.NotNil(t, view.Sound)

	w = do(t, router, http.MethodGet, "/projects/"+project.ID+"/resources", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ids IDsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ids))
	assert.Equal(t, []string{view.ID}, ids.IDs)

	w = do(t, router, http.MethodGet, "/resources/"+view.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got arcontent.ResourceView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(1), got.AccessCount)

	w = do(t, router, http.MethodGet, "/images/"+view.Image.ID+"/content", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, w.Body.Bytes())

	w = do(t, router, http.MethodGet, "/markers/"+view.Markers.ID+"/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fset", w.Body.String())

	louder := append(append([]byte(nil), wavBytes...), "tail"...)
	w = do(t, router, http.MethodPut, "/sounds/"+view.Sound.ID, SoundRequest{Name: "louder", Sound: b64(louder)})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/sounds/"+view.Sound.ID+"/content", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, louder, w.Body.Bytes())

	w = do(t, router, http.MethodPut, "/markers/"+view.Markers.ID, arcontent.MarkerRequest{
		Name:    "v2",
		Marker1: b64([]byte("a")),
		Marker2: b64([]byte("b")),
		Marker3: b64([]byte("c")),
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodPut, "/images/"+view.Image.ID, ImageRequest{Name: "img", Image: b64(pngBytes)})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodPut, "/resources/"+view.ID+"/name", NameRequest{Name: "renamed"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodDelete, "/resources/"+view.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, http.MethodGet, "/resources/"+view.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_VideoOverride(t *testing.T) {
	router, _ := setupHandlerTest(t)

	req := soundResource("clip")
	req.Image, req.Sound = "", ""
	req.Video = "https://cdn.example.com/a.mp4"
	w := do(t, router, http.MethodPost, "/resources", req)
	require.Equal(t, http.StatusCreated, w.Code)
	var view arcontent.ResourceView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Empty(t, view.ProjectID)

	w = do(t, router, http.MethodPut, "/videos/"+view.Video.ID, VideoRequest{Name: "clip2", URL: "https://cdn.example.com/b.mp4"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodPut, "/videos/"+view.Video.ID, VideoRequest{Name: "clip2", URL: "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type failingStore struct {
	arcontent.BlobStore
}

func (failingStore) Write(ctx context.Context, category arcontent.Category, key string, data []byte) (arcontent.Locator, error) {
	return "", errors.New("volume /srv/ar is read-only")
}

func (failingStore) DiskUsage(ctx context.Context) (arcontent.Usage, error) {
	return arcontent.Usage{}, errors.New("statfs /srv/ar: permission denied")
}

// Storage failures are reported as a 500 that hides the underlying cause.
func TestHandler_StorageFailureHidesCause(t *testing.T) {
	router, _ := setupHandlerTest(t, arcontent.WithBlobStore(failingStore{memorystorage.New(10)}))

	w := do(t, router, http.MethodGet, "/storage", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal storage failure")
	assert.NotContains(t, w.Body.String(), "/srv/ar")

	req := soundResource("x")
	req.Thumbnail = ""
	w = do(t, router, http.MethodPost, "/resources", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_StorageAndHealth(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/storage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info arcontent.StorageInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, int64(1<<20), info.TotalBytes)
}
