package api

import (
	"context"
	"net/http"
	"time"

	"example.com/backstage/services/dairy/config"
	"example.com/backstage/services/dairy/internal/api/handlers"
	"example.com/backstage/services/dairy/internal/api/middleware"
	"example.com/backstage/services/dairy/internal/metrics"
	"example.com/backstage/services/dairy/internal/services"
	"example.com/backstage/services/dairy/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	services   *services.Services
	health     *handlers.HealthHandler
	search     *handlers.SearchHandler
	gatherer   prometheus.Gatherer
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	svc *services.Services,
	health *handlers.HealthHandler,
	search *handlers.SearchHandler,
	gatherer prometheus.Gatherer,
	m *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:   cfg,
		services: svc,
		health:   health,
		search:   search,
		gatherer: gatherer,
		metrics:  m,
		tracer:   tracer,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}
	server.httpServer = httpServer

	return server
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Server.Mode != "" {
		gin.SetMode(s.config.Server.Mode)
	}
	router := gin.New()

	// Recovery middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(s.metrics))

	if app := s.tracer.Application(); app != nil {
		router.Use(middleware.NewRelicMiddleware(app))
	}

	// Register handlers
	api := router.Group("/api")
	handlers.NewOverviewHandler(s.services.Overview, s.tracer).RegisterRoutes(api)
	handlers.NewDeliveryHandler(s.services.Deliveries, s.tracer).RegisterRoutes(api)
	handlers.NewCustomerHandler(s.services.Customers).RegisterRoutes(api)
	handlers.NewPaymentHandler(s.services.Payments).RegisterRoutes(api)
	handlers.NewReminderHandler(s.services.Reminders, s.services.Notifications, s.tracer).RegisterRoutes(api)
	handlers.NewAuthHandler(s.services.Auth).RegisterRoutes(api)
	s.search.RegisterRoutes(api)

	// Operational endpoints
	s.health.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Server.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	// Create a timeout context for shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
