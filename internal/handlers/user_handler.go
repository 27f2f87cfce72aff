package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"portal/internal/models"
	"portal/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type CreateUserRequest struct {
	Email     string      `json:"email" validate:"required,email"`
	Password  string      `json:"password" validate:"required,min=6"`
	FirstName string      `json:"firstName" validate:"required"`
	LastName  string      `json:"lastName"`
	Role      models.Role `json:"role" validate:"required,user_role"`
	CompanyID string      `json:"companyId" validate:"required"`
}

type InviteRequest struct {
	Email     string      `json:"email" validate:"required,email"`
	Name      string      `json:"name"`
	CompanyID string      `json:"companyId"`
	Role      models.Role `json:"role" validate:"omitempty,user_role"`
	Message   string      `json:"message"`
}

type UpdateUserRequest struct {
	FirstName *string      `json:"firstName"`
	LastName  *string      `json:"lastName"`
	Role      *models.Role `json:"role" validate:"omitempty,user_role"`
	CompanyID *string      `json:"companyId"`
	IsActive  *bool        `json:"isActive"`
}

// List
// @Summary List users
// @Description Users of a company; defaults to the caller's company
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param companyId query string false "Company ID"
// @Success 200 {array} models.User
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /users [get]
func (h *UserHandler) List(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	users, err := h.users.List(c.Request().Context(), user, c.QueryParam("companyId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// Create
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User"
// @Success 201 {object} models.User
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Email already registered"
// @Router /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := h.users.Create(c.Request().Context(), user, services.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		CompanyID: req.CompanyID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// Invite records a pending access request for the invitee.
// @Summary Invite user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body InviteRequest true "Invitation"
// @Success 201 {object} models.AccessRequest
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Email already registered"
// @Router /users/invite [post]
func (h *UserHandler) Invite(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req InviteRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	invite, err := h.users.Invite(c.Request().Context(), user, services.InviteInput{
		Email:     req.Email,
		Name:      req.Name,
		CompanyID: req.CompanyID,
		Role:      req.Role,
		Message:   req.Message,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, invite)
}

// Update
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body UpdateUserRequest true "Changes"
// @Success 200 {object} models.User
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Not found"
// @Router /users/{id} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	var req UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	updated, err := h.users.Update(c.Request().Context(), user, c.Param("id"), services.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		CompanyID: req.CompanyID,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete deactivates the user.
// @Summary Deactivate user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Not found"
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	deactivated, err := h.users.Deactivate(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deactivated)
}
