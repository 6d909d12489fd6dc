// Package httpapi serves the retrieval core over HTTP: JSON endpoints
// for status, search and rebuild, plus a server-sent-event stream for
// chat. The reading UI and the MCP bridge are both clients of it.
package httpapi

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/warraq-labs/warraq/internal/core/ports/driving"
	"github.com/warraq-labs/warraq/internal/logger"
)

// Config holds the HTTP server settings.
type Config struct {
	// Host and Port form the bind address.
	Host string
	Port int

	// StaticDir, when set, is served at the web root.
	StaticDir string

	// AllowedOrigins configures CORS. Empty allows any origin.
	AllowedOrigins []string
}

// Server exposes retrieval and chat over HTTP.
type Server struct {
	echo      *echo.Echo
	retrieval driving.RetrievalService
	chat      driving.ChatService
	cfg       Config
}

// NewServer wires routes and middleware around the given services.
func NewServer(cfg Config, retrieval driving.RetrievalService, chat driving.ChatService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
	}))

	s := &Server{
		echo:      e,
		retrieval: retrieval,
		chat:      chat,
		cfg:       cfg,
	}

	e.GET("/status", s.handleStatus)
	e.POST("/search", s.handleSearch)
	e.POST("/chat", s.handleChat)
	e.POST("/rebuild", s.handleRebuild)

	if cfg.StaticDir != "" {
		e.Static("/", cfg.StaticDir)
	}

	return s
}

// Addr returns the host:port the server binds.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Start serves requests until Shutdown or a listener error.
func (s *Server) Start() error {
	return s.echo.Start(s.Addr())
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
