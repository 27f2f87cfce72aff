package routes

import (
	"github.com/labstack/echo/v4"

	"portal/internal/api/middleware"
	"portal/internal/handlers"
)

func SetupAuthRoutes(api *echo.Group, svc *Services) {
	authHandler := handlers.NewAuthHandler(svc.Auth)
	authenticated := svc.Authenticated().Middleware()

	auth := api.Group("/auth")

	// Public routes (no auth required)
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/password-reset", authHandler.RequestPasswordReset)
	auth.POST("/password-reset/verify", authHandler.VerifyResetCode)

	auth.POST("/change-password", authHandler.ChangePassword, authenticated)
	auth.GET("/me", authHandler.GetMe, authenticated)
	auth.POST("/logout", authHandler.Logout, authenticated)

	requests := handlers.NewAccessRequestHandler(svc.Requests)
	admins := middleware.RequireRoles(middleware.AgencyAdmins...)
	api.POST("/access-requests", requests.Submit)
	api.GET("/access-requests", requests.ListPending, authenticated, admins)
	api.PATCH("/access-requests/:id", requests.Review, authenticated, admins)
}
