// Package api serves the JSON HTTP interface for MAP estimation and
// posterior sampling runs.
package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"gouq/app"
	"gouq/internal"
	"gouq/internal/config"
	"gouq/internal/errors"
)

// Server is the gin-based JSON API
type Server struct {
	router  *gin.Engine
	service *app.InversionService
	hub     *SSEHub
	sem     *semaphore.Weighted
	cfg     config.ServerConfig
	seed    uint64
	logger  *internal.Logger

	runs    sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewServer creates the API server. defaultSeed is used for requests that
// omit a seed.
func NewServer(service *app.InversionService, hub *SSEHub, cfg config.ServerConfig, defaultSeed uint64, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	limit := cfg.MaxConcurrentRuns
	if limit < 1 {
		limit = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:  gin.Default(),
		service: service,
		hub:     hub,
		sem:     semaphore.NewWeighted(limit),
		cfg:     cfg,
		seed:    defaultSeed,
		logger:  logger.With("API"),
		baseCtx: ctx,
		cancel:  cancel,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.POST("/runs", s.handleCreateRun)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:id", s.handleGetRun)
	v1.GET("/runs/:id/report", s.handleRunReport)
	v1.GET("/runs/:id/events", s.handleRunEvents)
	v1.POST("/map", s.handleMAP)
}

// Wait blocks until every background run has finished
func (s *Server) Wait() {
	s.runs.Wait()
}

// Shutdown cancels background runs and waits for them until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// respondError writes err with the status derived from its code
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	c.JSON(errors.HTTPStatus(code), gin.H{"error": err.Error(), "code": code})
}
