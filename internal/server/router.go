package server

import (
	"net/http"

	"github.com/maruel/notedb/internal/server/handlers"
	"github.com/maruel/notedb/internal/server/ratelimit"
)

// Config tunes the router.
type Config struct {
	// RateRPS and RateBurst bound request throughput per client IP. A zero
	// RateRPS disables rate limiting.
	RateRPS   float64
	RateBurst int
}

// NewRouter creates and configures the HTTP router.
func NewRouter(svc *handlers.Services, cfg *Config) http.Handler {
	mux := http.NewServeMux()

	pageHandler := handlers.NewPageHandler(svc)
	databaseHandler := handlers.NewDatabaseHandler(svc)
	calendarHandler := handlers.NewCalendarHandler(svc)
	completionHandler := handlers.NewCompletionHandler(svc)
	schemaHandler := handlers.NewSchemaHandler()

	// Health check and schema introspection
	mux.Handle("GET /api/health", Wrap(handlers.Health))
	mux.Handle("GET /api/schema", Wrap(schemaHandler.GetSchema))

	// Pages endpoints
	mux.Handle("GET /api/pages", Wrap(pageHandler.ListPages))
	mux.Handle("POST /api/pages", Wrap(pageHandler.CreatePage))
	mux.Handle("GET /api/pages/{id}", Wrap(pageHandler.GetPage))
	mux.Handle("PUT /api/pages/{id}", Wrap(pageHandler.UpdatePage))
	mux.Handle("DELETE /api/pages/{id}", Wrap(pageHandler.DeletePage))
	mux.Handle("GET /api/pages/{id}/path", Wrap(pageHandler.GetPath))
	mux.Handle("GET /api/pages/{id}/history", Wrap(pageHandler.GetHistory))
	mux.Handle("POST /api/pages/{id}/share", Wrap(pageHandler.SharePage))

	// Completion endpoints
	mux.Handle("GET /api/pages/{id}/completions", Wrap(completionHandler.ListCompletions))
	mux.Handle("POST /api/pages/{id}/completions", Wrap(completionHandler.MarkCompleted))

	// Database endpoints
	mux.Handle("GET /api/databases", Wrap(databaseHandler.ListDatabases))
	mux.Handle("POST /api/databases", Wrap(databaseHandler.CreateDatabase))
	mux.Handle("GET /api/databases/{id}", Wrap(databaseHandler.GetDatabase))
	mux.Handle("PUT /api/databases/{id}", Wrap(databaseHandler.UpdateDatabase))
	mux.Handle("DELETE /api/databases/{id}", Wrap(databaseHandler.DeleteDatabase))

	// Calendar endpoint
	mux.Handle("GET /api/calendar", Wrap(calendarHandler.GetCalendar))

	// Share link resolution (unauthenticated by design; the token is the
	// capability)
	mux.Handle("GET /api/shared/{token}", Wrap(pageHandler.GetSharedPage))

	var handler http.Handler = mux
	if cfg != nil && cfg.RateRPS > 0 {
		handler = rateLimitMiddleware(ratelimit.NewLimiter(cfg.RateRPS, cfg.RateBurst), handler)
	}
	return logMiddleware(handler)
}
