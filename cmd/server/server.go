package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tendant/simple-ar/pkg/arcontent"
	"github.com/tendant/simple-ar/pkg/arcontent/api"
	"github.com/tendant/simple-ar/pkg/arcontent/config"
)

// maxBodyBytes bounds request bodies. Assets arrive base64 encoded in JSON.
const maxBodyBytes = 64 << 20

// HTTPServer wraps the AR service for HTTP access
type HTTPServer struct {
	service arcontent.Service
	config  *config.ServerConfig
}

// NewHTTPServer creates a new HTTP server wrapper
func NewHTTPServer(service arcontent.Service, serverConfig *config.ServerConfig) *HTTPServer {
	return &HTTPServer{
		service: service,
		config:  serverConfig,
	}
}

// Routes sets up the HTTP routes
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.RequestSize(maxBodyBytes))

	// CORS for development
	if s.config.Environment == "development" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

				if r.Method == "OPTIONS" {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	r.Get("/health", s.handleHealth)
	r.Get("/config", s.handleGetConfig)

	r.Mount("/api/v1", api.NewHandler(s.service, s.config.Logger).Routes())

	return otelhttp.NewHandler(r, "simple-ar")
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status":      "healthy",
		"environment": s.config.Environment,
		"storage":     s.config.StorageType,
	})
}

func (s *HTTPServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"environment":   s.config.Environment,
		"database_type": s.config.DatabaseType,
		"storage_type":  s.config.StorageType,
		"lock_type":     s.config.LockType,
		"event_sink":    s.config.EventSink,
	})
}
