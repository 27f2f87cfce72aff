package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"portal/internal/models"
	"portal/internal/obs"
	"portal/internal/services"
	"portal/internal/utils/logger"
)

var log = logger.New("auth_middleware")

const userContextKey = "user"

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// ActivityRecorder appends best-effort activity entries.
type ActivityRecorder interface {
	Record(ctx context.Context, actorID, action, resourceType, resourceID string, metadata map[string]any)
}

type AuthMiddleware struct {
	auth     Authenticator
	activity ActivityRecorder
}

func NewAuthMiddleware(auth Authenticator, activity ActivityRecorder) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, activity: activity}
}

// Middleware rejects the request with 401 unless it carries a valid bearer
// token for an active user. On success the user is stored on the context and
// the request is written to the activity log before the handler runs.
func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				obs.AuthOutcomes.WithLabelValues("missing_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			token, ok := BearerToken(authHeader)
			if !ok {
				obs.AuthOutcomes.WithLabelValues("malformed_header").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			user, err := m.auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, services.ErrUnauthenticated) {
					obs.AuthOutcomes.WithLabelValues("rejected").Inc()
					log.Debug("Rejected token: %v", err)
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
				}
				obs.AuthOutcomes.WithLabelValues("error").Inc()
				return err
			}
			obs.AuthOutcomes.WithLabelValues("ok").Inc()

			c.Set(userContextKey, user)
			if m.activity != nil {
				req := c.Request()
				m.activity.Record(req.Context(), user.ID, req.Method+" "+req.URL.Path, "", "", map[string]any{
					"ip":        c.RealIP(),
					"userAgent": req.UserAgent(),
					"requestId": c.Response().Header().Get(echo.HeaderXRequestID),
				})
			}
			return next(c)
		}
	}
}

// BearerToken extracts the token from "Bearer <token>", matching the scheme
// case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c echo.Context) *models.User {
	if user, ok := c.Get(userContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// SetUser stores the authenticated user on the context.
func SetUser(c echo.Context, user *models.User) {
	c.Set(userContextKey, user)
}
