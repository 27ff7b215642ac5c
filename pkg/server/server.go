// Package server exposes the split kernel over HTTP. It is a thin gin layer:
// requests are validated, split synchronously, and the resulting elements
// are saved to a store before the response is written.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chazu/kerf/pkg/split"
	"github.com/chazu/kerf/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// shutdownTimeout bounds how long Run waits for in-flight requests.
const shutdownTimeout = 5 * time.Second

// Options configures a Server. Splitter and Store are required.
type Options struct {
	Splitter *split.Splitter
	Store    store.Store
	Logger   *slog.Logger
	// Debug logs every request.
	Debug bool
}

// Server serves the kerf HTTP API.
type Server struct {
	router   *gin.Engine
	splitter *split.Splitter
	store    store.Store
	logger   *slog.Logger
}

// New builds a server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Splitter == nil {
		return nil, errors.New("server: splitter is required")
	}
	if opts.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		router:   gin.New(),
		splitter: opts.Splitter,
		store:    opts.Store,
		logger:   opts.Logger,
	}
	s.router.Use(gin.Recovery())
	if opts.Debug {
		s.router.Use(gin.Logger())
	}
	s.router.Use(otelgin.Middleware("kerf"), requestID())
	s.routes()
	return s, nil
}

// routes registers the API.
//
//	POST   /v1/split                   - split a target mesh, persist both parts
//	POST   /v1/volume                  - volume of a closed mesh
//	GET    /v1/elements/:id            - one persisted split element
//	GET    /v1/sources                 - source elements that have splits
//	GET    /v1/sources/:id/elements    - splits of a source element
//	DELETE /v1/sources/:id/elements    - remove all splits of a source element
//	GET    /v1/health                  - liveness
//	GET    /metrics                    - prometheus metrics
func (s *Server) routes() {
	v1 := s.router.Group("/v1")
	v1.POST("/split", s.handleSplit)
	v1.POST("/volume", s.handleVolume)
	v1.GET("/elements/:id", s.handleGetElement)
	v1.GET("/sources", s.handleSources)
	v1.GET("/sources/:id/elements", s.handleListBySource)
	v1.DELETE("/sources/:id/elements", s.handleDeleteBySource)
	v1.GET("/health", s.handleHealth)

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("kerf server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("kerf server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
