// Package web exposes the conversion pipeline as a JSON/file HTTP API:
// upload a .msg, download the PDF.
package web

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/adam2504/conversion-msg-to-pdf/convert"
)

// Server wires the fiber app, the converter, and the logger.
type Server struct {
	cfg  *Config
	app  *fiber.App
	conv *convert.Converter
	log  zerolog.Logger
}

// NewServer builds the app with its middleware and routes.
func NewServer(cfg *Config, conv *convert.Converter, log zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "msg2pdf",
		BodyLimit:             cfg.MaxUploadSize,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	s := &Server{cfg: cfg, app: app, conv: conv, log: log}
	s.app.Use(s.requestLogger)

	app.Get("/health", s.handleHealth)
	api := app.Group("/api")
	api.Post("/convert", s.handleConvert)
	api.Post("/batch", s.handleBatch)
	api.Post("/inspect", s.handleInspect)

	return s
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	err := c.Next()
	s.log.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Int("bytes", len(c.Response().Body())).
		Msg("request")
	return err
}

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.log.Info().Str("addr", addr).Msg("http server listening")
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
