// Package api exposes the bridge analytics REST surface.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/arcscan/bridge-indexer/internal/chains"
	"github.com/arcscan/bridge-indexer/internal/storage"
	"github.com/arcscan/bridge-indexer/pkg/common/logger"
	"github.com/arcscan/bridge-indexer/pkg/infra"
)

type Server struct {
	echo     *echo.Echo
	store    storage.Store
	registry *chains.Registry
	redis    infra.RedisClient
	cacheTTL time.Duration
	port     int
}

func NewServer(
	store storage.Store,
	registry *chains.Registry,
	redis infra.RedisClient,
	cacheTTL time.Duration,
	port int,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:     e,
		store:    store,
		registry: registry,
		redis:    redis,
		cacheTTL: cacheTTL,
		port:     port,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	bridge := s.echo.Group("/bridge")
	bridge.GET("", s.handleBridgeStats)
	bridge.GET("/transfers", s.handleTransfers)
	bridge.GET("/chains", s.handleChains)
	bridge.GET("/routes", s.handleRoutes)

	s.echo.GET("/chains/:id", s.handleChainByID)
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	logger.Info("API server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
