package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"portal/internal/models"
	"portal/internal/services"
)

type ProjectHandler struct {
	projects *services.ProjectService
	audits   *services.AuditService
}

func NewProjectHandler(projects *services.ProjectService, audits *services.AuditService) *ProjectHandler {
	return &ProjectHandler{projects: projects, audits: audits}
}

type ProjectRequest struct {
	Name        string               `json:"name" validate:"required,min=2"`
	Description string               `json:"description"`
	CompanyID   string               `json:"companyId" validate:"required"`
	Status      models.ProjectStatus `json:"status" validate:"omitempty,project_status"`
	StartDate   *time.Time           `json:"startDate"`
	DueDate     *time.Time           `json:"dueDate"`
}

type AuditRequest struct {
	ClientCompanyID string             `json:"clientCompanyId" validate:"required"`
	Title           string             `json:"title" validate:"required,min=2"`
	Status          models.AuditStatus `json:"status" validate:"omitempty,audit_status"`
	Score           *int               `json:"score" validate:"omitempty,min=0,max=100"`
	Findings        json.RawMessage    `json:"findings" swaggertype:"object"`
}

// ListProjects
// @Summary List projects
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Success 200 {array} models.Project
// @Router /projects [get]
func (h *ProjectHandler) ListProjects(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	projects, err := h.projects.List(c.Request().Context(), user, models.ProjectStatus(c.QueryParam("status")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projects)
}

// CreateProject stamps the caller as creator.
// @Summary Create project
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProjectRequest true "Project"
// @Success 201 {object} models.Project
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /projects [post]
func (h *ProjectHandler) CreateProject(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req ProjectRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	project, err := h.projects.Create(c.Request().Context(), user, services.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		CompanyID:   req.CompanyID,
		Status:      req.Status,
		StartDate:   req.StartDate,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, project)
}

// GetProject
// @Summary Get project
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Success 200 {object} models.Project
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Not found"
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetProject(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	project, err := h.projects.Get(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

// ListAudits
// @Summary List digital audits
// @Tags audits
// @Produce json
// @Security BearerAuth
// @Param clientCompanyId query string false "Client company ID"
// @Success 200 {array} models.DigitalAudit
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /audits [get]
func (h *ProjectHandler) ListAudits(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	audits, err := h.audits.List(c.Request().Context(), user, c.QueryParam("clientCompanyId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, audits)
}

// CreateAudit
// @Summary Create digital audit
// @Tags audits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AuditRequest true "Audit"
// @Success 201 {object} models.DigitalAudit
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /audits [post]
func (h *ProjectHandler) CreateAudit(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req AuditRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	audit, err := h.audits.Create(c.Request().Context(), user, services.AuditInput{
		ClientCompanyID: req.ClientCompanyID,
		Title:           req.Title,
		Status:          req.Status,
		Score:           req.Score,
		Findings:        req.Findings,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, audit)
}
