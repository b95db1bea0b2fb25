package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	api "github.com/statelab/renderbox/internal/api/http"
	"github.com/statelab/renderbox/internal/api/middleware"
	"github.com/statelab/renderbox/internal/domain/render"
	"github.com/statelab/renderbox/internal/domain/session"
	"github.com/statelab/renderbox/internal/engine"
	"github.com/statelab/renderbox/internal/infrastructure/config"
	"github.com/statelab/renderbox/internal/infrastructure/health"
	"github.com/statelab/renderbox/internal/infrastructure/logging"
	"github.com/statelab/renderbox/internal/infrastructure/monitoring"
	"github.com/statelab/renderbox/internal/store"
)

// Server wraps the HTTP server and its singleton dependencies. The engine
// and store handles are owned here, assigned at startup and reassigned by
// nothing but shutdown.
type Server struct {
	router  *gin.Engine
	engine  *engine.Engine
	store   store.Store
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	fatal   chan error
}

// New initializes all dependencies and wires the router. A render engine
// that fails to initialize is a fatal condition surfaced to the caller;
// an unreachable state store is not.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewWithLevel(cfg.Logging.Level, false)
	}

	logger.Info("Initializing renderbox",
		zap.String("port", cfg.Server.Port),
		zap.Bool("state_storage", cfg.StateStorage.Enabled),
	)

	metrics := monitoring.NewMetrics()

	eng, err := engine.New(cfg.Engine, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize render engine: %w", err)
	}
	metrics.RegisterContextGauge(func() float64 {
		return float64(eng.ActiveContexts())
	})

	var st store.Store
	if cfg.StateStorage.Enabled {
		st = store.NewValkey(cfg.StateStorage.Addr(), logger)
	} else {
		st = store.NewDisabled()
		logger.Info("State storage disabled, sessions will not persist")
	}

	resolver := session.NewResolver(st, logger, metrics)
	manager := render.NewManager(engineAdapter{eng}, st, cfg.StateStorage.TTL(), logger, metrics)
	aggregator := health.New(eng, st, cfg.StateStorage.Enabled)
	handlers := api.NewHandlers(resolver, manager, aggregator, eng, logger, metrics)

	s := &Server{
		engine:  eng,
		store:   st,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		fatal:   make(chan error, 1),
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// An uncaught fault in a handler takes the same path as an external
	// termination signal: respond 500, then shut the process down so every
	// resource is released.
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Panic in request handler", zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		select {
		case s.fatal <- fmt.Errorf("panic in request handler: %v", recovered):
		default:
		}
	}))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	router.GET("/", handlers.Root)
	router.POST("/content", handlers.RenderContent)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", handlers.Metrics)
	router.GET("/metrics/prometheus", gin.WrapH(
		promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}),
	))

	s.router = router
	logger.Info("Server initialized successfully")
	return s, nil
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Fatal delivers process-fatal faults raised during request handling.
func (s *Server) Fatal() <-chan error {
	return s.fatal
}

// Close releases the engine and store handles, engine first so no new
// contexts can be created against a closing store.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	var firstErr error
	if err := s.engine.Close(); err != nil {
		s.logger.Error("Failed to close render engine", zap.Error(err))
		firstErr = err
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close state store", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	s.logger.Info("Shutdown complete")
	_ = s.logger.Sync()
	return firstErr
}

// engineAdapter narrows the concrete engine to the domain's interface.
type engineAdapter struct {
	*engine.Engine
}

func (a engineAdapter) NewContext(ctx context.Context, restore []byte) (render.Context, error) {
	return a.Engine.NewContext(ctx, restore)
}
