package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"productscene/internal/http/handlers"
	httpapi "productscene/internal/http/httpapi"
	"productscene/internal/infra"
	"productscene/internal/providers/genai"
	"productscene/internal/scenes"
	"productscene/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	catalog, err := scenes.Open(cfg.SceneCatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load scene catalog")
	}
	uploads, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare upload directory")
	}
	outputs, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare output directory")
	}

	ctx := context.Background()
	var client handlers.SceneClient
	if err := cfg.RequireGemini(); err != nil {
		logger.Warn().Msg("GEMINI_API_KEY not set: generation routes disabled, insights use defaults")
	} else {
		c, err := genai.NewClient(ctx, genai.Options{
			APIKey:      cfg.GeminiAPIKey,
			ImageModel:  cfg.GeminiImageModel,
			VisionModel: cfg.GeminiVisionModel,
			Logger:      &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create gemini client")
		}
		client = c
	}

	app, err := handlers.NewApp(cfg, &logger, catalog, uploads, outputs, client)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build app")
	}
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Strs("scenes", catalog.IDs()).
			Str("uploads", uploads.BasePath()).
			Str("outputs", outputs.BasePath()).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
