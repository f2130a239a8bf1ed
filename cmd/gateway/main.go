// Command gateway serves the AR API behind API key authentication, using the
// shared chi-demo application server.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/simple-ar/internal/platform/otel"
	"github.com/tendant/simple-ar/pkg/arcontent/api"
	"github.com/tendant/simple-ar/pkg/arcontent/config"
)

type GatewayConfig struct {
	ApiKeySHA256 string `env:"API_KEY_SHA256" env-default:"1"`
}

func main() {
	_ = godotenv.Load()

	var gwConfig GatewayConfig
	if err := cleanenv.ReadEnv(&gwConfig); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}
	apiKeyConfig := middleware.ApiKeyConfig{
		APIKeys: map[string]string{
			"key1": gwConfig.ApiKeySHA256,
		},
	}

	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load server configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	shutdownTracing, err := otel.Setup(ctx, "simple-ar-gateway")
	if err != nil {
		slog.Error("Failed to set up tracing", "err", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	svc, cleanup, err := serverConfig.BuildService(ctx)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	apiKeyMiddleware, err := middleware.ApiKeyMiddleware(apiKeyConfig)
	if err != nil {
		slog.Error("Failed initialize API Key middleware", "err", err)
		return
	}
	handler := api.NewHandler(svc, slog.Default())
	server.R.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apiKeyMiddleware)
			r.Mount("/", handler.Routes())
		})
	})

	server.Run()
}
