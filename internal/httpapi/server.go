// Package httpapi exposes hymn search over HTTP with fiber.
package httpapi

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Server serves the hymn API.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger
}

// NewServer builds the fiber app and its routes.
func NewServer(addr string, h Hymnal) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          2 * time.Minute,
		AppName:               "choralmind",
	})
	app.Use(recover.New())
	app.Use(requestLogger)

	handler := NewHandler(h)
	app.Get("/healthz", handler.HandleHealthy)

	apiv1 := app.Group("/api/v1")
	apiv1.Get("/languages", handler.HandleLanguages)
	apiv1.Post("/search", handler.HandleSearch)
	apiv1.Post("/ask", handler.HandleAsk)
	apiv1.Get("/hymns/:language/:id", handler.HandleHymn)

	return &Server{app: app, addr: addr, logger: slog.Default()}
}

// App returns the fiber app (tests).
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http_server_started", slog.String("addr", s.addr))
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.app.ShutdownWithContext(shutdownCtx)
	s.logger.Info("http_server_stopped")
	return err
}

// requestLogger logs each request with slog.
func requestLogger(c *fiber.Ctx) error {
	started := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		if ferr, ok := err.(*fiber.Error); ok {
			status = ferr.Code
		}
	}
	slog.Debug("http_request",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.Int("status", status),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))
	return err
}

// jsonFieldName reports validation errors by JSON field name.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}
