package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"portal/internal/repository"
	"portal/internal/services"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
	activity  *services.ActivityService
}

func NewDashboardHandler(dashboard *services.DashboardService, activity *services.ActivityService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, activity: activity}
}

// Stats
// @Summary Dashboard statistics
// @Description Aggregated across client companies for agency admins, own company otherwise
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.DashboardStats
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	stats, err := h.dashboard.Stats(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Activity lists activity entries newest first.
// @Summary List activity
// @Tags activity
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries"
// @Param actorUserId query string false "Actor filter"
// @Success 200 {array} models.ActivityLog
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /activity [get]
func (h *DashboardHandler) Activity(c echo.Context) error {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}
	entries, err := h.activity.List(c.Request().Context(), repository.ActivityFilter{
		ActorUserID: c.QueryParam("actorUserId"),
		Limit:       limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}
