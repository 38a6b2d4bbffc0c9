package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"linkbias/app"
	"linkbias/internal"
)

// ServerConfig bounds the work the API accepts.
type ServerConfig struct {
	MaxConcurrentRuns int
	RunTimeout        time.Duration
	KeepTrials        bool
	MaxPopulation     int // larger generated populations are rejected; zero takes the service cap
}

// Server exposes the simulation service as a JSON API.
type Server struct {
	router  *gin.Engine
	service *app.SimulationService
	runs    *semaphore.Weighted
	config  ServerConfig
	logger  *internal.Logger
}

// NewServer creates the API server and registers its routes
func NewServer(service *app.SimulationService, config ServerConfig, logger *internal.Logger) *Server {
	if config.MaxConcurrentRuns < 1 {
		config.MaxConcurrentRuns = 1
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 10 * time.Minute
	}
	if config.MaxPopulation <= 0 && service != nil {
		config.MaxPopulation = service.MaxPopulation()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	s := &Server{
		router:  gin.New(),
		service: service,
		runs:    semaphore.NewWeighted(int64(config.MaxConcurrentRuns)),
		config:  config,
		logger:  logger.WithComponent("api"),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api/simulations")
	{
		api.POST("", s.handleCreateSimulation)
		api.GET("", s.handleListSimulations)
		api.GET("/:id", s.handleGetSimulation)
		api.GET("/:id/report", s.handleSimulationReport)
	}
}

// requestLogger logs one line per request at DEBUG, failures at WARN
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			s.logger.Warn("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
			return
		}
		s.logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
	}
}

// Handler returns the router as an http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
