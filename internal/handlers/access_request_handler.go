package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"portal/internal/models"
	"portal/internal/services"
)

type AccessRequestHandler struct {
	requests *services.AccessRequestService
}

func NewAccessRequestHandler(requests *services.AccessRequestService) *AccessRequestHandler {
	return &AccessRequestHandler{requests: requests}
}

type SubmitAccessRequest struct {
	RequesterEmail string      `json:"requesterEmail" validate:"required,email"`
	RequesterName  string      `json:"requesterName" validate:"required"`
	RequestedRole  models.Role `json:"requestedRole" validate:"required,user_role"`
	CompanyID      string      `json:"companyId"`
	Message        string      `json:"message"`
}

type ReviewAccessRequest struct {
	Status    models.AccessRequestStatus `json:"status" validate:"required,review_status"`
	CompanyID string                     `json:"companyId"`
	Role      models.Role                `json:"role" validate:"omitempty,user_role"`
}

// Submit is the public self-service entry point.
// @Summary Submit access request
// @Tags access-requests
// @Accept json
// @Produce json
// @Param request body SubmitAccessRequest true "Access request"
// @Success 201 {object} models.AccessRequest
// @Failure 400 {object} map[string]string "Validation error"
// @Router /access-requests [post]
func (h *AccessRequestHandler) Submit(c echo.Context) error {
	var req SubmitAccessRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := h.requests.Submit(c.Request().Context(), services.SubmitInput{
		Email:     req.RequesterEmail,
		Name:      req.RequesterName,
		Role:      req.RequestedRole,
		CompanyID: req.CompanyID,
		Message:   req.Message,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// ListPending
// @Summary List pending access requests
// @Tags access-requests
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AccessRequest
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /access-requests [get]
func (h *AccessRequestHandler) ListPending(c echo.Context) error {
	pending, err := h.requests.ListPending(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pending)
}

// Review approves or denies a pending request.
// @Summary Review access request
// @Description Approval creates the user; a request already reviewed yields 409
// @Tags access-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Access request ID"
// @Param request body ReviewAccessRequest true "Decision"
// @Success 200 {object} models.AccessRequest
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Not found"
// @Failure 409 {object} map[string]string "Already reviewed or email registered"
// @Router /access-requests/{id} [patch]
func (h *AccessRequestHandler) Review(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req ReviewAccessRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	reviewed, err := h.requests.Review(c.Request().Context(), user, c.Param("id"), services.ReviewInput{
		Status:    req.Status,
		CompanyID: req.CompanyID,
		Role:      req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reviewed)
}
