package routes

import (
	"portal/internal/api/middleware"
	"portal/internal/services"
)

// Services bundles what the route groups hand to their handlers.
type Services struct {
	Auth      *services.AuthService
	Activity  *services.ActivityService
	Companies *services.CompanyService
	Users     *services.UserService
	Projects  *services.ProjectService
	Audits    *services.AuditService
	Requests  *services.AccessRequestService
	Dashboard *services.DashboardService
	Analytics *services.AnalyticsService
}

// Authenticated returns the bearer-token middleware for the services.
func (s *Services) Authenticated() *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(s.Auth, s.Activity)
}
