package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"portal/internal/services"
	"portal/internal/utils/logger"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AnalyticsHandler struct {
	analytics *services.AnalyticsService
	log       *logger.Logger
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, log: logger.New("analytics_handler")}
}

// Companies
// @Summary Airtable companies
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {array} airtable.Company
// @Failure 400 {object} map[string]string "Upstream failure"
// @Router /companies/airtable [get]
func (h *AnalyticsHandler) Companies(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	rows, err := h.analytics.Companies(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

// CompetitiveAnalysis
// @Summary Competitive analysis
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {array} airtable.CompetitiveAnalysis
// @Failure 400 {object} map[string]string "Upstream failure"
// @Router /companies/competitive-analysis [get]
func (h *AnalyticsHandler) CompetitiveAnalysis(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	rows, err := h.analytics.CompetitiveAnalysis(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

// RenderingReports
// @Summary Rendering reports
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param company query string false "Company name filter (agency admins)"
// @Success 200 {array} airtable.RenderingReport
// @Failure 400 {object} map[string]string "Upstream failure"
// @Router /reports/rendering [get]
func (h *AnalyticsHandler) RenderingReports(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	rows, err := h.analytics.RenderingReports(c.Request().Context(), user, c.QueryParam("company"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

// ExportRenderingReports streams the visible reports as a workbook.
// @Summary Export rendering reports
// @Tags analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param company query string false "Company name filter (agency admins)"
// @Success 200 {file} file
// @Failure 400 {object} map[string]string "Upstream failure"
// @Router /reports/rendering/export [get]
func (h *AnalyticsHandler) ExportRenderingReports(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	rows, err := h.analytics.RenderingReports(c.Request().Context(), user, c.QueryParam("company"))
	if err != nil {
		return err
	}
	data, err := services.RenderingReportsXLSX(rows)
	if err != nil {
		return h.log.Error("Failed to render workbook", err)
	}
	name := fmt.Sprintf("rendering-reports-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxMIME, data)
}

// Brands
// @Summary News monitoring brands
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {array} airtable.Brand
// @Failure 400 {object} map[string]string "Upstream failure"
// @Router /news-monitoring/brands [get]
func (h *AnalyticsHandler) Brands(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	rows, err := h.analytics.Brands(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

// News
// @Summary Latest scored news
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param brandId query string false "Brand record ID"
// @Success 200 {array} airtable.NewsItem
// @Failure 400 {object} map[string]string "Invalid brand or upstream failure"
// @Failure 403 {object} map[string]string "Brand not visible"
// @Router /news-monitoring/airtable [get]
func (h *AnalyticsHandler) News(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	rows, err := h.analytics.News(c.Request().Context(), user, c.QueryParam("brandId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}
