package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-ar/pkg/arcontent"
)

// DefaultPageSize is used by GET /projects when size is omitted.
const DefaultPageSize = 20

// Handler serves the AR content API on top of an arcontent.Service
type Handler struct {
	service arcontent.Service
	logger  *slog.Logger
}

// NewHandler creates a new handler. A nil logger falls back to slog.Default().
func NewHandler(service arcontent.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns every API route
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Get("/storage", h.GetStorageInfo)

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ListProjects)
		r.Post("/", h.CreateProject)
		r.Get("/ids", h.ListProjectIDs)
		r.Get("/{id}", h.GetProject)
		r.Delete("/{id}", h.DeleteProject)
		r.Put("/{id}/name", h.RenameProject)
		r.Get("/{id}/resources", h.ListResourceIDs)
		r.Post("/{id}/resources", h.CreateResource)
	})

	r.Route("/resources", func(r chi.Router) {
		r.Post("/", h.CreateResource)
		r.Get("/{id}", h.GetResource)
		r.Delete("/{id}", h.DeleteResource)
		r.Put("/{id}/name", h.RenameResource)
	})

	r.Put("/markers/{id}", h.OverrideMarkers)
	r.Get("/markers/{id}/{slot}", h.ReadMarker)
	r.Put("/sounds/{id}", h.OverrideSound)
	r.Get("/sounds/{id}/content", h.readAsset(arcontent.KindSound))
	r.Put("/videos/{id}", h.OverrideVideo)
	r.Put("/images/{id}", h.OverrideImage)
	r.Get("/images/{id}/content", h.readAsset(arcontent.KindImage))

	return r
}

// NameRequest is the body of create and rename calls
type NameRequest struct {
	Name string `json:"name"`
}

// IDResponse is returned when a project is created
type IDResponse struct {
	ID string `json:"id"`
}

// IDsResponse lists entity ids
type IDsResponse struct {
	IDs []string `json:"ids"`
}

// SoundRequest replaces a sound. Sound is base64 encoded.
type SoundRequest struct {
	Name  string `json:"name"`
	Sound string `json:"sound"`
}

// VideoRequest replaces a video URL
type VideoRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ImageRequest replaces an image. Image is base64 encoded.
type ImageRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// statusFor maps a service error kind to an HTTP status and message. Storage
// failures never expose their cause.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, arcontent.ErrInvalidName),
		errors.Is(err, arcontent.ErrInvalidID),
		errors.Is(err, arcontent.ErrInvalidParameter):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, arcontent.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, arcontent.ErrInvalidState):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal storage failure"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, body := statusFor(err)
	if status == http.StatusInternalServerError {
		attrs := []any{"path", r.URL.Path, "error", err}
		var e *arcontent.Error
		if errors.As(err, &e) && e.Cause() != nil {
			attrs = append(attrs, "cause", e.Cause())
		}
		h.logger.Error(msg, attrs...)
	} else {
		h.logger.Warn(msg, "path", r.URL.Path, "error", err)
	}
	http.Error(w, body, status)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// GetStorageInfo returns the blob store usage
func (h *Handler) GetStorageInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.GetStorageInfo(r.Context())
	if err != nil {
		h.writeError(w, r, "Failed to get storage info", err)
		return
	}
	render.JSON(w, r, info)
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ListProjects returns one page of projects
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(r, "page", 0)
	if !ok {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	size, ok := queryInt(r, "size", DefaultPageSize)
	if !ok {
		http.Error(w, "invalid size", http.StatusBadRequest)
		return
	}

	result, err := h.service.ListProjects(r.Context(), page, size)
	if err != nil {
		h.writeError(w, r, "Failed to list projects", err)
		return
	}
	render.JSON(w, r, result)
}

// ListProjectIDs returns every project id
func (h *Handler) ListProjectIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.ListProjectIDs(r.Context())
	if err != nil {
		h.writeError(w, r, "Failed to list project ids", err)
		return
	}
	render.JSON(w, r, IDsResponse{IDs: ids})
}

// CreateProject creates a new project
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.service.CreateProject(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, "Failed to create project", err)
		return
	}

	h.logger.Info("Project created", "project_id", id)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, IDResponse{ID: id})
}

// GetProject retrieves a project by ID
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "Failed to get project", err)
		return
	}
	render.JSON(w, r, project)
}

// RenameProject renames a project
func (h *Handler) RenameProject(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RenameProject(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
		h.writeError(w, r, "Failed to rename project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteProject deletes a project by ID. Its resources are kept and detached.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	if err := h.service.DeleteProject(r.Context(), idStr); err != nil {
		h.writeError(w, r, "Failed to delete project", err)
		return
	}

	h.logger.Info("Project deleted", "project_id", idStr)
	w.WriteHeader(http.StatusNoContent)
}

// ListResourceIDs returns the resource ids of a project
func (h *Handler) ListResourceIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.ListResourceIDs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "Failed to list resources", err)
		return
	}
	render.JSON(w, r, IDsResponse{IDs: ids})
}

// CreateResource creates a resource, owned by the project in the path if any
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req arcontent.CreateResourceRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.CreateResource(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, "Failed to create resource", err)
		return
	}

	h.logger.Info("Resource created", "resource_id", view.ID, "project_id", view.ProjectID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, view)
}

// GetResource retrieves an assembled resource and counts the access
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetResource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "Failed to get resource", err)
		return
	}
	render.JSON(w, r, view)
}

// RenameResource renames a resource
func (h *Handler) RenameResource(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RenameResource(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
		h.writeError(w, r, "Failed to rename resource", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteResource deletes a resource row
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	if err := h.service.DeleteResource(r.Context(), idStr); err != nil {
		h.writeError(w, r, "Failed to delete resource", err)
		return
	}

	h.logger.Info("Resource deleted", "resource_id", idStr)
	w.WriteHeader(http.StatusNoContent)
}

// OverrideMarkers replaces the three marker files of a marker set
func (h *Handler) OverrideMarkers(w http.ResponseWriter, r *http.Request) {
	var req arcontent.MarkerRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	if err := h.service.OverrideMarkers(r.Context(), req); err != nil {
		h.writeError(w, r, "Failed to override markers", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OverrideSound replaces a sound
func (h *Handler) OverrideSound(w http.ResponseWriter, r *http.Request) {
	var req SoundRequest
	if !h.decode(w, r, &req) {
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Sound)
	if err != nil {
		http.Error(w, "sound is not valid base64", http.StatusBadRequest)
		return
	}

	if err := h.service.OverrideSound(r.Context(), chi.URLParam(r, "id"), req.Name, data); err != nil {
		h.writeError(w, r, "Failed to override sound", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OverrideVideo replaces a video URL
func (h *Handler) OverrideVideo(w http.ResponseWriter, r *http.Request) {
	var req VideoRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.OverrideVideo(r.Context(), chi.URLParam(r, "id"), req.Name, req.URL); err != nil {
		h.writeError(w, r, "Failed to override video", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OverrideImage replaces an image
func (h *Handler) OverrideImage(w http.ResponseWriter, r *http.Request) {
	var req ImageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.OverrideImage(r.Context(), chi.URLParam(r, "id"), req.Name, req.Image); err != nil {
		h.writeError(w, r, "Failed to override image", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) readAsset(kind arcontent.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := h.service.ReadAsset(r.Context(), kind, chi.URLParam(r, "id"))
		if err != nil {
			h.writeError(w, r, "Failed to read asset", err)
			return
		}
		writeBlob(w, data)
	}
}

// ReadMarker streams one marker file. Slots are 1, 2 and 3.
func (h *Handler) ReadMarker(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		http.Error(w, "invalid slot", http.StatusBadRequest)
		return
	}
	data, err := h.service.ReadMarker(r.Context(), chi.URLParam(r, "id"), slot)
	if err != nil {
		h.writeError(w, r, "Failed to read marker", err)
		return
	}
	writeBlob(w, data)
}

func writeBlob(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
