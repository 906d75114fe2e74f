package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/agent-studio/internal/identity"
	"github.com/ashureev/agent-studio/internal/middleware"
)

// RouterConfig wires the console router.
type RouterConfig struct {
	Studio         *StudioHandler
	Events         http.Handler
	AllowedOrigins []string
	IsDev          bool
}

// NewRouter builds the console HTTP surface.
func NewRouter(cfg RouterConfig) chi.Router {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(origins))
	r.Use(identity.Middleware(cfg.IsDev))

	cfg.Studio.RegisterRoutes(r)
	if cfg.Events != nil {
		r.Get("/ws/events", cfg.Events.ServeHTTP)
	}
	return r
}
