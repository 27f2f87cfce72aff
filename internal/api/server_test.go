package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/config"
	"portal/internal/events"
	"portal/internal/models"
	"portal/internal/repository"
	"portal/internal/repository/memory"
	"portal/internal/routes"
	"portal/internal/services"
	"portal/internal/utils"
	"portal/internal/utils/logger"
)

func TestMain(m *testing.M) {
	logger.SetLevel("silent")
	os.Exit(m.Run())
}

type testEnv struct {
	server *Server
	store  *repository.Store
	tokens *utils.TokenService
	bus    *events.EventBus

	c1, c2        *models.Company
	owner, viewer *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	cfg := config.LoadTestConfig()
	store := memory.NewStore()
	bus := events.NewEventBus()
	tokens := utils.NewTokenService(cfg.JWT.Secret)

	activity := services.NewActivityService(store.Activity)
	scope := services.NewAccessScope(store.Users, store.Projects)
	auth := services.NewAuthService(store, tokens, activity, bus)
	projects := services.NewProjectService(store, scope, activity)
	audits := services.NewAuditService(store, activity)
	svc := &routes.Services{
		Auth:      auth,
		Activity:  activity,
		Companies: services.NewCompanyService(store, activity, nil, bus),
		Users:     services.NewUserService(store, activity),
		Projects:  projects,
		Audits:    audits,
		Requests:  services.NewAccessRequestService(store, auth, activity, bus),
		Dashboard: services.NewDashboardService(store, projects, audits),
		Analytics: services.NewAnalyticsService(nil, nil, time.Minute, store),
	}

	env := &testEnv{
		server: NewServer(cfg, svc, nil),
		store:  store,
		tokens: tokens,
		bus:    bus,
	}

	agency := &models.Company{Name: "Agency", Type: models.CompanyTypeOwner}
	env.c1 = &models.Company{Name: "Units Lab", Type: models.CompanyTypeClient}
	env.c2 = &models.Company{Name: "Globex", Type: models.CompanyTypeClient}
	for _, c := range []*models.Company{agency, env.c1, env.c2} {
		require.NoError(t, store.Companies.Create(ctx, c))
	}

	hash, err := services.HashPassword("secret123")
	require.NoError(t, err)
	env.owner = &models.User{Email: "owner@agency.io", Password: hash, FirstName: "Olive", Role: models.RoleOwner, CompanyID: &agency.ID, IsActive: true}
	env.viewer = &models.User{Email: "viewer@unitslab.io", Password: hash, FirstName: "Vic", Role: models.RoleClientViewer, CompanyID: &env.c1.ID, IsActive: true}
	require.NoError(t, store.Users.Create(ctx, env.owner))
	require.NoError(t, store.Users.Create(ctx, env.viewer))
	return env
}

func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.tokens.Issue(user.ID)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Echo().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)
	expired := utils.NewTokenService("test-secret", utils.WithClock(func() time.Time {
		return time.Now().Add(-8 * 24 * time.Hour)
	}))
	stale, err := expired.Issue(env.viewer.ID)
	require.NoError(t, err)
	foreign, err := utils.NewTokenService("other-secret").Issue(env.viewer.ID)
	require.NoError(t, err)
	ghost, err := env.tokens.Issue("no-such-user")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + env.token(t, env.viewer)},
		{"empty token", "Bearer "},
		{"garbage", "Bearer not-a-jwt"},
		{"expired", "Bearer " + stale},
		{"bad signature", "Bearer " + foreign},
		{"unknown user", "Bearer " + ghost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			env.server.Echo().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	entries, err := env.store.Activity.List(context.Background(), repository.ActivityFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected requests never reach the handler or the activity log")
}

func TestAuthMiddleware_ActiveUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.viewer)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("User-Agent", "portal-test")
	rec := httptest.NewRecorder()
	env.server.Echo().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[models.User](t, rec)
	assert.Equal(t, env.viewer.ID, me.ID)
	assert.NotContains(t, rec.Body.String(), "password")

	entries, err := env.store.Activity.List(context.Background(), repository.ActivityFilter{ActorUserID: env.viewer.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "GET /api/auth/me", entries[0].Action)
	assert.Contains(t, string(entries[0].Metadata), "portal-test")

	env.viewer.IsActive = false
	require.NoError(t, env.store.Users.Update(context.Background(), env.viewer))
	rec = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginAndRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "owner@agency.io", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}](t, rec)
	assert.Equal(t, env.owner.ID, login.User.ID)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/auth/me", login.Token, nil).Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "owner@agency.io", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "new@unitslab.io", "password": "12345", "firstName": "N", "role": "client_viewer", "companyId": env.c1.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "password must be at least 6")

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "new@unitslab.io", "password": "123456", "firstName": "N", "role": "client_viewer", "companyId": env.c1.ID,
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "new@unitslab.io", "password": "123456", "firstName": "N", "role": "client_viewer", "companyId": env.c1.ID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "boss@unitslab.io", "password": "123456", "firstName": "B", "role": "admin", "companyId": env.c1.ID,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoleGate(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/access-requests", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/access-requests", env.token(t, env.viewer), nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/access-requests", env.token(t, env.owner), nil).Code)

	rec := env.do(t, http.MethodPost, "/api/companies", env.token(t, env.viewer), map[string]string{"name": "Hooli", "type": "client"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/projects", env.token(t, env.viewer), map[string]string{"name": "Nope", "companyId": env.c1.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code, "viewers cannot write projects")
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/activity", env.token(t, env.viewer), nil).Code)

	rec = env.do(t, http.MethodGet, "/api/activity?actorUserId="+env.viewer.ID, env.token(t, env.owner), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]models.ActivityLog](t, rec)
	require.NotEmpty(t, entries)
	assert.Equal(t, "GET /api/activity", entries[0].Action, "newest first")
	for _, e := range entries {
		assert.Equal(t, env.viewer.ID, e.ActorUserID)
	}
}

func TestCompanyScoping(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.token(t, env.viewer)

	rec := env.do(t, http.MethodGet, "/api/companies/"+env.c2.ID, viewer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/companies/"+env.c1.ID, viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, env.c1.ID, decode[models.Company](t, rec).ID)

	rec = env.do(t, http.MethodGet, "/api/companies/missing", env.token(t, env.owner), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/users?companyId="+env.c2.ID, viewer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/companies", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Company](t, rec), 1)
}

func TestProjectScoping(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, env.owner)

	rec := env.do(t, http.MethodPost, "/api/projects", owner, map[string]string{"name": "Globex launch", "companyId": env.c2.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode[models.Project](t, rec)
	assert.Equal(t, env.owner.ID, project.CreatedBy)

	rec = env.do(t, http.MethodGet, "/api/projects/"+project.ID, env.token(t, env.viewer), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/projects/"+project.ID, owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/projects", owner, map[string]string{"name": "Bad", "companyId": env.c1.ID, "status": "paused"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "status")
}

func TestCreateAudit_Findings(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, env.owner)

	for _, findings := range []any{nil, []string{"a"}, "text"} {
		rec := env.do(t, http.MethodPost, "/api/audits", owner, map[string]any{"clientCompanyId": env.c1.ID, "title": "Q2 audit", "findings": findings})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "findings %v", findings)
	}

	rec := env.do(t, http.MethodPost, "/api/audits", owner, map[string]any{"clientCompanyId": env.c1.ID, "title": "Q2 audit", "findings": map[string]any{"seo": 3}})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAccessRequestFlow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, env.owner)

	rec := env.do(t, http.MethodPost, "/api/access-requests", "", map[string]string{
		"requesterEmail": "a@b.com",
		"requesterName":  "A B",
		"requestedRole":  "client_viewer",
		"companyId":      env.c1.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.AccessRequest](t, rec)
	assert.Equal(t, models.AccessRequestPending, created.Status)

	path := "/api/access-requests/" + created.ID
	rec = env.do(t, http.MethodPatch, path, env.token(t, env.viewer), map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPatch, path, owner, map[string]string{"status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, path, owner, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.AccessRequestApproved, decode[models.AccessRequest](t, rec).Status)

	user, err := env.store.Users.GetByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleClientViewer, user.Role)
	assert.Equal(t, env.c1.ID, user.CompanyRef())

	rec = env.do(t, http.MethodPatch, path, owner, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/access-requests/missing", owner, map[string]string{"status": "denied"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	env.bus.Wait()
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, p := range []*models.Project{
		{Name: "One", CompanyID: env.c1.ID, Status: models.ProjectStatusActive, CreatedBy: env.owner.ID},
		{Name: "Two", CompanyID: env.c2.ID, Status: models.ProjectStatusActive, CreatedBy: env.owner.ID},
	} {
		require.NoError(t, env.store.Projects.Create(ctx, p))
	}
	require.NoError(t, env.store.Audits.Create(ctx, &models.DigitalAudit{
		ClientCompanyID: env.c2.ID, Title: "Published", Status: models.AuditStatusPublished, CreatedBy: env.owner.ID,
	}))

	rec := env.do(t, http.MethodGet, "/api/dashboard/stats", env.token(t, env.owner), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.DashboardStats{ActiveProjects: 2, CompletedAudits: 1, ActiveClients: 2}, decode[services.DashboardStats](t, rec))

	rec = env.do(t, http.MethodGet, "/api/dashboard/stats", env.token(t, env.viewer), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.DashboardStats{ActiveProjects: 1, ActiveClients: 1}, decode[services.DashboardStats](t, rec))
}

func TestAnalyticsDisabledIsUpstreamError(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/reports/rendering", env.token(t, env.viewer), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "not configured", "upstream detail stays in the server log")
}

func TestErrorStatus(t *testing.T) {
	cases := map[error]int{
		services.ErrUnauthenticated: http.StatusUnauthorized,
		services.ErrForbidden:       http.StatusForbidden,
		services.ErrValidation:      http.StatusBadRequest,
		services.ErrNotFound:        http.StatusNotFound,
		services.ErrConflict:        http.StatusConflict,
		services.ErrUpstream:        http.StatusBadRequest,
		errors.New("boom"):          0,
	}
	for err, want := range cases {
		wrapped := fmt.Errorf("%w: detail", err)
		got, _ := errorStatus(wrapped)
		assert.Equal(t, want, got, err.Error())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/metrics", "", nil).Code)
}
