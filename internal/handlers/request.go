package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"portal/internal/api/middleware"
	"portal/internal/models"
)

// bind decodes and validates a request body. Validation errors are returned
// as-is so the error handler can render them per field.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return c.Validate(req)
}

// actor returns the authenticated user. Routes using it sit behind the auth
// middleware, so a missing user is a wiring error reported as 401.
func actor(c echo.Context) (*models.User, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	return user, nil
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}

type messageResponse struct {
	Message string `json:"message"`
}
