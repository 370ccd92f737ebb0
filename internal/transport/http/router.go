package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/authguard/internal/config"
	"github.com/pribylovaa/authguard/internal/metrics"
	"github.com/pribylovaa/authguard/internal/models"
	"github.com/pribylovaa/authguard/internal/service"
	apierrors "github.com/pribylovaa/authguard/internal/transport/http/errors"
	"github.com/pribylovaa/authguard/internal/transport/http/handlers"
	"github.com/pribylovaa/authguard/internal/transport/http/middleware"
)

// Deps - зависимости REST API.
type Deps struct {
	Guard     middleware.Authorizer
	Auth      handlers.AuthService
	Resources handlers.ResourceService
	// Policies - активные виды ресурсов; для каждого регистрируются
	// GET/DELETE /v1/{kind}/{id} и POST /v1/{kind} с его набором ролей.
	Policies []service.ResourcePolicy
}

// Options - параметры сборки HTTP-роутера.
type Options struct {
	Logger    *slog.Logger
	Timeout   time.Duration
	RateLimit config.RateLimitConfig
	Metrics   *metrics.Metrics
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(d Deps, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования
		middleware.Logging(opts.Logger),
		opts.Metrics.Instrument,
		middleware.Timeout(opts.Timeout),
	)

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, fmt.Errorf("route %s: %w", r.URL.Path, service.ErrNotFound))
	})
	root.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMethodNotAllowed(w, r)
	})

	h := handlers.New(d.Auth, d.Resources)

	root.Route("/v1", func(r chi.Router) {
		registerAuthRoutes(r, h, d.Guard, opts.RateLimit)
		registerResourceRoutes(r, h, d.Guard, d.Policies)
	})

	return root
}

// registerAuthRoutes - публичные эндпоинты под лимитером частоты и /auth/me.
func registerAuthRoutes(r chi.Router, h *handlers.Handlers, guard middleware.Authorizer, rl config.RateLimitConfig) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(rl.RPS, rl.Burst))
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
			r.Post("/revoke", h.Revoke)
		})

		r.With(middleware.Authorize(guard, models.AllRoles()...)).Get("/me", h.Me)
	})
}

func registerResourceRoutes(r chi.Router, h *handlers.Handlers, guard middleware.Authorizer, policies []service.ResourcePolicy) {
	for _, p := range policies {
		r.Route("/"+p.Kind, func(r chi.Router) {
			r.Use(middleware.Authorize(guard, p.Accepted...))
			r.Post("/", h.CreateResource(p.Kind))
			r.Get("/{id}", h.GetResource(p.Kind))
			r.Delete("/{id}", h.DeleteResource(p.Kind))
		})
	}
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)

	resp := apierrors.ErrorResponse{Error: apierrors.APIError{
		Code:      "method_not_allowed",
		Message:   "method not allowed",
		RequestID: r.Header.Get(middleware.HeaderRequestID),
	}}
	_ = json.NewEncoder(w).Encode(resp)
}
