package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/subwatch/backend/internal/auth"
	"github.com/subwatch/backend/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	pushHandler         *PushHandler
	pullHandler         *PullHandler
	subscriptionHandler *SubscriptionHandler
	entryHandler        *EntryHandler
	statusHandler       *StatusHandler
	healthHandler       *HealthHandler
	eventHub            *EventHub
	metricsHandler      http.Handler
	authManager         *auth.Manager
	logger              *zap.Logger
}

// NewRouter creates a new router
func NewRouter(
	pushHandler *PushHandler,
	pullHandler *PullHandler,
	subscriptionHandler *SubscriptionHandler,
	entryHandler *EntryHandler,
	statusHandler *StatusHandler,
	healthHandler *HealthHandler,
	eventHub *EventHub,
	metricsHandler http.Handler,
	authManager *auth.Manager,
	logger *zap.Logger,
) *Router {
	return &Router{
		pushHandler:         pushHandler,
		pullHandler:         pullHandler,
		subscriptionHandler: subscriptionHandler,
		entryHandler:        entryHandler,
		statusHandler:       statusHandler,
		healthHandler:       healthHandler,
		eventHub:            eventHub,
		metricsHandler:      metricsHandler,
		authManager:         authManager,
		logger:              logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware())
	r.Use(chimiddleware.Compress(5))

	guard := middleware.OperatorAuthMiddleware(rt.authManager)

	r.Get("/health", rt.healthHandler.Health)
	r.Get("/status", rt.statusHandler.Status)
	if rt.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", rt.metricsHandler)
	}
	if rt.eventHub != nil {
		r.Get("/ws", rt.eventHub.Serve)
	}

	r.Route("/push", func(r chi.Router) {
		r.Post("/", rt.pushHandler.Receive)
		r.Get("/", rt.pushHandler.List)
		r.Get("/{id}", rt.pushHandler.Get)
		r.With(guard).Delete("/{id}", rt.pushHandler.Delete)
	})

	r.Route("/pull", func(r chi.Router) {
		r.With(guard).Post("/", rt.pullHandler.Drain)
		r.With(guard).Post("/start", rt.pullHandler.Start)
		r.With(guard).Post("/stop", rt.pullHandler.Stop)
		r.Get("/", rt.pullHandler.List)
		r.Get("/{id}", rt.pullHandler.Get)
		r.With(guard).Delete("/{id}", rt.pullHandler.Delete)
	})

	r.Route("/subscriptions", func(r chi.Router) {
		r.Get("/", rt.subscriptionHandler.List)
		r.With(guard).Post("/fetch", rt.subscriptionHandler.Fetch)
		r.Post("/lookup", rt.subscriptionHandler.Lookup)
		r.Get("/{id}", rt.subscriptionHandler.Get)
		r.With(guard).Delete("/", rt.subscriptionHandler.Clear)
	})

	r.Route("/entries", func(r chi.Router) {
		r.Get("/", rt.entryHandler.List)
		r.With(guard).Post("/", rt.entryHandler.Create)
		r.With(guard).Delete("/{id}", rt.entryHandler.Delete)
	})

	return r
}
