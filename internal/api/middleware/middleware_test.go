package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/models"
	"portal/internal/services"
)

type stubAuth struct {
	users map[string]*models.User
	err   error
}

func (s stubAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, services.ErrUnauthenticated
}

type stubActivity struct {
	actions []string
}

func (s *stubActivity) Record(_ context.Context, _, action, _, _ string, _ map[string]any) {
	s.actions = append(s.actions, action)
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "want *echo.HTTPError, got %v", err)
	return he.Code
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"BEARER   abc  ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer    ", "", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		token, ok := BearerToken(tc.header)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.token, token, tc.header)
	}
}

func TestAuthMiddleware(t *testing.T) {
	viewer := &models.User{Base: models.Base{ID: "u1"}, Role: models.RoleClientViewer, IsActive: true}
	activity := &stubActivity{}
	mw := NewAuthMiddleware(stubAuth{users: map[string]*models.User{"good": viewer}}, activity).Middleware()

	var seen *models.User
	handler := mw(func(c echo.Context) error {
		seen = CurrentUser(c)
		return c.NoContent(http.StatusOK)
	})

	e := echo.New()
	run := func(header string) error {
		req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		return handler(e.NewContext(req, httptest.NewRecorder()))
	}

	assert.Equal(t, http.StatusUnauthorized, httpCode(t, run("")))
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, run("Token good")))
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, run("Bearer bad")))
	assert.Nil(t, seen)
	assert.Empty(t, activity.actions)

	require.NoError(t, run("Bearer good"))
	assert.Same(t, viewer, seen)
	assert.Equal(t, []string{"GET /api/projects"}, activity.actions)
}

func TestAuthMiddleware_StoreFailurePassesThrough(t *testing.T) {
	boom := errors.New("store down")
	mw := NewAuthMiddleware(stubAuth{err: boom}, nil).Middleware()
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer any")
	err := handler(echo.New().NewContext(req, httptest.NewRecorder()))
	assert.ErrorIs(t, err, boom)
}

func TestRoleGate(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	run := func(mw echo.MiddlewareFunc, user *models.User) error {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		if user != nil {
			SetUser(c, user)
		}
		return mw(ok)(c)
	}

	admins := RequireRoles(AgencyAdmins...)
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, run(admins, nil)))
	for _, role := range models.AllRoles {
		err := run(admins, &models.User{Role: role})
		if role == models.RoleOwner || role == models.RoleAdmin {
			assert.NoError(t, err, role)
		} else {
			assert.Equal(t, http.StatusForbidden, httpCode(t, err), role)
		}
	}

	writers := RequireCapability(models.CapWriteProjects)
	assert.NoError(t, run(writers, &models.User{Role: models.RoleClientEditor}))
	assert.Equal(t, http.StatusForbidden, httpCode(t, run(writers, &models.User{Role: models.RoleClientViewer})))
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, run(writers, nil)))
}
