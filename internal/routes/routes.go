package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/templui/doin/internal/app"
	"github.com/templui/doin/internal/handler"
	"github.com/templui/doin/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	challenge := handler.NewChallengeHandler(app.EventService, app.Joiner)
	health := handler.NewHealthHandler(app.DB)

	rateLimit := middleware.RateLimit(app.Limiter)

	mux := http.NewServeMux()

	// ============================================================================
	// OPERATIONS
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{Registry: app.Registry}))

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /api/challenges/{id}/stats", challenge.Stats)
	mux.HandleFunc("GET /api/challenges/{id}/export.csv", challenge.ExportCSV)
	mux.HandleFunc("GET /api/challenges/{id}/report.txt", challenge.ExportText)
	mux.HandleFunc("POST /api/challenges/{id}/exports", rateLimit(challenge.PublishExport))

	// ============================================================================
	// SIGNED-IN ROUTES
	// ============================================================================

	mux.HandleFunc("POST /api/challenges/{id}/participations", rateLimit(middleware.RequireIdentity(challenge.Join)))
	mux.HandleFunc("DELETE /api/challenges/{id}/participations/{pid}", middleware.RequireIdentity(challenge.Delete))

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.BearerAuth(app.Tokens),
		middleware.RequestLogging,
	)

	return handler
}
