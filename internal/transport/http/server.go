// Package http provides the HTTP server implementation for the page generator.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/xiaot623/gogo/pagegen/internal/config"
	"github.com/xiaot623/gogo/pagegen/internal/service"
	v1 "github.com/xiaot623/gogo/pagegen/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server.
// It serves the conversion API, its streaming variants and trace lookups.
func NewServer(svc *service.Service, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, cfg)

	// Register Routes
	v1Handler.RegisterRoutes(e)

	return e
}
