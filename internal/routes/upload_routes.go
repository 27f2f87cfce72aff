package routes

import (
	"github.com/labstack/echo/v4"

	"portal/internal/api/middleware"
	"portal/internal/handlers"
	"portal/internal/models"
	"portal/internal/utils/logger"
)

// SetupCompanyRoutes wires companies, their assets and the Airtable company
// views. The group must already carry the auth middleware.
func SetupCompanyRoutes(api *echo.Group, svc *Services) {
	log := logger.New("company_routes")

	companyHandler := handlers.NewCompanyHandler(svc.Companies)
	uploadHandler := handlers.NewUploadHandler(svc.Companies)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics)

	admins := middleware.RequireRoles(middleware.AgencyAdmins...)
	assets := middleware.RequireCapability(models.CapWriteAssets)
	analytics := middleware.RequireCapability(models.CapReadAnalytics)

	companies := api.Group("/companies")
	companies.GET("", companyHandler.List)
	companies.POST("", companyHandler.Create, admins)
	companies.GET("/airtable", analyticsHandler.Companies, analytics)
	companies.GET("/competitive-analysis", analyticsHandler.CompetitiveAnalysis, analytics)
	companies.GET("/:id", companyHandler.Get)
	companies.PATCH("/:id", companyHandler.Update, admins)
	companies.POST("/:id/logo", uploadHandler.UploadLogo, assets)
	companies.GET("/:id/files", uploadHandler.Files)
	companies.POST("/:id/files", uploadHandler.UploadAsset, assets)

	log.Debug("Company routes initialized")
}
