package routes

import (
	"github.com/labstack/echo/v4"

	"portal/internal/api/middleware"
	"portal/internal/handlers"
	"portal/internal/models"
)

// SetupPortalRoutes wires users, projects, audits, dashboard, activity and
// the Airtable reports. The group must already carry the auth middleware.
func SetupPortalRoutes(api *echo.Group, svc *Services) {
	admins := middleware.RequireRoles(middleware.AgencyAdmins...)

	userHandler := handlers.NewUserHandler(svc.Users)
	users := api.Group("/users")
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create, admins)
	users.POST("/invite", userHandler.Invite, admins)
	users.PATCH("/:id", userHandler.Update, admins)
	users.DELETE("/:id", userHandler.Delete, admins)

	projectHandler := handlers.NewProjectHandler(svc.Projects, svc.Audits)
	api.GET("/projects", projectHandler.ListProjects)
	api.POST("/projects", projectHandler.CreateProject, middleware.RequireCapability(models.CapWriteProjects))
	api.GET("/projects/:id", projectHandler.GetProject)
	api.GET("/audits", projectHandler.ListAudits)
	api.POST("/audits", projectHandler.CreateAudit, middleware.RequireCapability(models.CapWriteAudits))

	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboard, svc.Activity)
	api.GET("/dashboard/stats", dashboardHandler.Stats)
	api.GET("/activity", dashboardHandler.Activity, middleware.RequireCapability(models.CapReadActivity))

	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics)
	analytics := middleware.RequireCapability(models.CapReadAnalytics)
	api.GET("/reports/rendering", analyticsHandler.RenderingReports, analytics)
	api.GET("/reports/rendering/export", analyticsHandler.ExportRenderingReports, analytics)
	api.GET("/news-monitoring/brands", analyticsHandler.Brands, analytics)
	api.GET("/news-monitoring/airtable", analyticsHandler.News, analytics)
}
