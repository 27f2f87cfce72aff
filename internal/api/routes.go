package api

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "portal/docs/swagger"
	"portal/internal/obs"
	"portal/internal/routes"
)

func (s *Server) registerRoutes() {
	// Health check
	// @Summary Health check
	// @Description Check if the server is running
	// @Produce json
	// @Success 200 {object} map[string]string "OK"
	// @Router /health [get]
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(obs.Handler()))
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	api := s.echo.Group("/api")
	routes.SetupAuthRoutes(api, s.services)

	protected := api.Group("", s.services.Authenticated().Middleware())
	routes.SetupCompanyRoutes(protected, s.services)
	routes.SetupPortalRoutes(protected, s.services)
}
