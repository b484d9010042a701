// Package httpapi exposes a small Echo-based operator surface over the
// running relay process: a health check and a snapshot of active
// sessions' forwarded-packet counters. It is not part of the specified
// core (spec.md §1 explicitly keeps the controller RPC surface external)
// but is the ambient operator-facing stack a shippable relay needs,
// grounded on the teacher's internal/httpapi server.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/aesteve/flo/internal/metrics"
)

// Server is the Echo application exposing /health and /api/sessions.
type Server struct {
	echo     *echo.Echo
	registry *metrics.Registry
}

// New constructs an Echo app reporting on registry's live sessions.
func New(registry *metrics.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{echo: e, registry: registry}
	s.registerRoutes()
	return s
}

// requestLogger returns Echo middleware that logs each HTTP request via
// slog, mirroring the teacher's own requestLogger in shape.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			slog.Debug("http request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}

// Echo exposes the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/api/sessions", s.handleSessions)
}

// Run starts Echo and blocks until ctx cancellation or startup failure.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down operator http server")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		return nil
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (s *Server) handleHealth(c echo.Context) error {
	sessions, _, _ := s.registry.Totals()
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Sessions: sessions})
}

type sessionResponse struct {
	ID                  string `json:"id"`
	ClientToNodePackets uint64 `json:"client_to_node_packets"`
	ClientToNodeBytes   uint64 `json:"client_to_node_bytes"`
	NodeToClientPackets uint64 `json:"node_to_client_packets"`
	NodeToClientBytes   uint64 `json:"node_to_client_bytes"`
}

func (s *Server) handleSessions(c echo.Context) error {
	out := make([]sessionResponse, 0)
	for id, counters := range s.registry.Snapshot() {
		out = append(out, sessionResponse{
			ID:                  id,
			ClientToNodePackets: counters.ClientToNodePackets.Load(),
			ClientToNodeBytes:   counters.ClientToNodeBytes.Load(),
			NodeToClientPackets: counters.NodeToClientPackets.Load(),
			NodeToClientBytes:   counters.NodeToClientBytes.Load(),
		})
	}
	return c.JSON(http.StatusOK, out)
}
