package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/rs/zerolog"

	"productscene/internal/domain"
	"productscene/internal/infra"
	"productscene/internal/insight"
	"productscene/internal/providers/genai"
	"productscene/internal/render"
	"productscene/internal/scenes"
	"productscene/internal/storage"
)

// SceneClient is the remote model surface the handlers use. *genai.Client
// satisfies it.
type SceneClient interface {
	DetectCategory(ctx context.Context, img []byte) (string, error)
	DescribeProduct(ctx context.Context, img []byte) (string, error)
	GenerateScene(ctx context.Context, req genai.GenerationRequest) (*genai.Result, error)
	Edit(ctx context.Context, img image.Image, request string) (*genai.Result, error)
	Insights(ctx context.Context, img []byte, category string, sceneIDs []string) (insight.Insight, error)
}

type App struct {
	Config   *infra.Config
	Logger   *infra.Logger
	Catalog  *scenes.Catalog
	Uploads  *storage.FileStore
	Outputs  *storage.FileStore
	Exporter *render.Exporter
	// Client is nil when no API key is configured.
	Client SceneClient
}

func NewApp(cfg *infra.Config, logger *infra.Logger, catalog *scenes.Catalog, uploads, outputs *storage.FileStore, client SceneClient) (*App, error) {
	if cfg == nil {
		return nil, errors.New("handlers: config is required")
	}
	if uploads == nil || outputs == nil {
		return nil, errors.New("handlers: upload and output stores are required")
	}
	if logger == nil {
		logger = infra.NopLogger()
	}
	if catalog == nil {
		catalog = scenes.Default()
	}
	exporter, err := render.NewExporter(outputs, logger)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:   cfg,
		Logger:   logger,
		Catalog:  catalog,
		Uploads:  uploads,
		Outputs:  outputs,
		Exporter: exporter,
		Client:   client,
	}, nil
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// ok writes the success envelope with payload merged into it.
func (a *App) ok(w http.ResponseWriter, payload map[string]any) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	a.json(w, http.StatusOK, body)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": message, "code": errCode})
}

// fail maps a domain error onto a status code. Server-side failures are logged
// in full and answered with a fixed message.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, errCode := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.log(r).Error().Err(err).Int("status", code).Msg("request failed")
		a.error(w, code, errCode, serverMessage(code))
		return
	}
	a.error(w, code, errCode, err.Error())
}

func serverMessage(code int) string {
	switch code {
	case http.StatusBadGateway:
		return "image service request failed"
	case http.StatusGatewayTimeout:
		return "request timed out"
	default:
		return "internal server error"
	}
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway, "upstream_failed"
	case errors.Is(err, domain.ErrDecode):
		return http.StatusBadGateway, "upstream_decode"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// log returns the request-scoped logger, falling back to the app logger.
func (a *App) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return a.Logger
}

// decode reads a JSON request body into v.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON payload")
		return false
	}
	return true
}

// readableImage rejects stored bytes that do not decode as an image before
// they reach the model.
func readableImage(data []byte) error {
	if _, err := render.Decode(data); err != nil {
		return fmt.Errorf("%w: stored image is unreadable: %w", domain.ErrInput, err)
	}
	return nil
}

func (a *App) requireClient(w http.ResponseWriter) bool {
	if a.Client == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "image generation is not configured: set GEMINI_API_KEY")
		return false
	}
	return true
}
