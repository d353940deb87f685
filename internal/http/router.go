package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"jobchat-ai/internal/handlers"
	"jobchat-ai/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService service.ChatService
	UsageReader handlers.UsageReader
	DB          *sql.DB
	IndexHTML   string // Embedded widget page
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	// Add CORS middleware
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	usageHandler := handlers.NewUsageHandler(deps.UsageReader)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	// Register API routes
	r.Route("/api", func(r chi.Router) {
		// Every method reaches the chat handler so a non-POST is answered
		// with 405 and an Allow header rather than chi's bare 405.
		r.Handle("/ai", chatHandler)
		r.Method(http.MethodGet, "/usage", usageHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	// Serve the widget page at root
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(deps.IndexHTML))
	})

	return r
}
