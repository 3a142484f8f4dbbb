package http

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/robonav/server/internal/auth"
	"github.com/robonav/server/internal/http/handlers"
	"github.com/robonav/server/internal/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Auth   *handlers.AuthHandler
	Fleet  *handlers.FleetHandler
	Health *handlers.HealthHandler
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(h Handlers, jwtService *auth.JWTService, limiter *middleware.RateLimiter, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", h.Health.ServeHTTP)

	r.Route("/api/open/users", func(r chi.Router) {
		r.Use(middleware.RateLimitMiddleware(limiter, middleware.GetIPKey))
		r.Post("/register", h.Auth.HandleRegister)
		r.Get("/confirm-email", h.Auth.HandleConfirmEmail)
		r.Post("/login", h.Auth.HandleLogin)
		r.Post("/resend-confirmation", h.Auth.HandleResendConfirmation)
	})

	// Protected routes (require valid session token)
	r.Route("/api/robot", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService, logger))
		r.Get("/tasks", h.Fleet.HandleListTasks)
		r.Get("/robots", h.Fleet.HandleListRobots)
		r.Post("/robots", h.Fleet.HandleCreateRobot)
		r.Get("/robots/{robotID}/location", h.Fleet.HandleRobotLocation)
		r.Get("/callbacks", h.Fleet.HandleListCallbacks)
		r.Post("/instructions", h.Fleet.HandleSendInstruction)
	})

	return r
}
