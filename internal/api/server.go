package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// Server is the optional admin HTTP API.
type Server struct {
	addr   string
	engine *gin.Engine
	logger *slog.Logger
}

// NewServer creates a server listening on addr with all routes configured.
// A non-empty token guards /api/v1 with bearer auth. The gin mode is left to
// the caller.
func NewServer(addr, token string, handler *Handler, logger *slog.Logger) *Server {
	r := gin.New()
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())
	setupRoutes(r, handler, token)

	return &Server{addr: addr, engine: r, logger: logger}
}

// Handler exposes the routed engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func setupRoutes(r *gin.Engine, h *Handler, token string) {
	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	if token != "" {
		v1.Use(bearerAuth(token))
	}
	{
		v1.GET("/status", h.Status)
		v1.GET("/seen", h.Seen)
		v1.POST("/reset", h.Reset)
		v1.POST("/cycle", h.Cycle)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully. It returns
// nil on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin api listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("admin api: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin api shutdown: %w", err)
	}
	s.logger.Info("admin api stopped")
	return nil
}

// bearerAuth rejects requests without "Authorization: Bearer <token>".
func bearerAuth(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// requestLogger logs each request through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("api request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
