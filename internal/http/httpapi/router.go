package httpapi

import (
	"net/http"
	"time"

	"productscene/internal/http/handlers"
	appmw "productscene/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		appmw.RequestID,
		middleware.RealIP,
		appmw.Logger(*app.Logger),
		middleware.Recoverer,
		appmw.CORS(app.Config.CORSAllowedOrigins),
	)

	r.Get("/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/scenes", app.ListScenes)
		r.Get("/image/{filename}", app.ServeImage)

		r.Group(func(r chi.Router) {
			r.Use(appmw.RateLimit(app.Config.RateLimitPerMin, time.Minute))
			r.Post("/upload", app.Upload)
			r.Post("/detect_product", app.DetectProduct)
			r.Post("/generate_scene", app.GenerateScene)
			r.Post("/conversational_edit", app.ConversationalEdit)
			r.Post("/generate_multi_format", app.GenerateMultiFormat)
			r.Post("/generate_variations", app.GenerateVariations)
			r.Post("/export_formats", app.ExportFormats)
			r.Post("/photography_insights", app.PhotographyInsights)
		})
	})

	return r
}
