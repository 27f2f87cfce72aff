package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"portal/internal/models"
	"portal/internal/services"
)

type CompanyHandler struct {
	companies *services.CompanyService
}

func NewCompanyHandler(companies *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

type CompanyRequest struct {
	Name     string             `json:"name" validate:"required,min=2"`
	Type     models.CompanyType `json:"type" validate:"required,company_type"`
	ParentID string             `json:"parentId"`
}

type CompanyUpdateRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2"`
	ParentID *string `json:"parentId"`
}

// List
// @Summary List companies
// @Description Client companies for agency admins, the caller's own company otherwise
// @Tags companies
// @Produce json
// @Security BearerAuth
// @Param type query string false "Company type filter"
// @Success 200 {array} models.Company
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /companies [get]
func (h *CompanyHandler) List(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	companies, err := h.companies.List(c.Request().Context(), user, models.CompanyType(c.QueryParam("type")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, companies)
}

// Create
// @Summary Create company
// @Tags companies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CompanyRequest true "Company"
// @Success 201 {object} models.Company
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Owner company already exists"
// @Router /companies [post]
func (h *CompanyHandler) Create(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req CompanyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	company, err := h.companies.Create(c.Request().Context(), user, services.CompanyInput{
		Name:     req.Name,
		Type:     req.Type,
		ParentID: req.ParentID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, company)
}

// Get
// @Summary Get company
// @Tags companies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Company ID"
// @Success 200 {object} models.Company
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Not found"
// @Router /companies/{id} [get]
func (h *CompanyHandler) Get(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	company, err := h.companies.Get(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, company)
}

// Update
// @Summary Update company
// @Tags companies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Company ID"
// @Param request body CompanyUpdateRequest true "Changes"
// @Success 200 {object} models.Company
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Not found"
// @Router /companies/{id} [patch]
func (h *CompanyHandler) Update(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req CompanyUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	company, err := h.companies.Update(c.Request().Context(), user, c.Param("id"), services.CompanyUpdate{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, company)
}
