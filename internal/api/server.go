package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-advanced-admin/admin"
	admingorm "github.com/go-advanced-admin/orm-gorm"
	adminecho "github.com/go-advanced-admin/web-echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"portal/internal/api/validator"
	"portal/internal/config"
	"portal/internal/models"
	"portal/internal/obs"
	"portal/internal/routes"
	"portal/internal/services"

	authmw "portal/internal/api/middleware"
	console "portal/internal/utils/logger"
)

type Server struct {
	echo     *echo.Echo
	config   *config.Config
	db       *gorm.DB
	services *routes.Services
}

var log = console.New("API-Server")

// NewServer @title Agency Portal API
// @version 1.0
// @description Multi-tenant client portal for a marketing agency.
// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func NewServer(cfg *config.Config, svc *routes.Services, db *gorm.DB) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Validator = validator.NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(obs.Instrument())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentLength},
	}))
	e.Use(middleware.Secure())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
	e.Use(middleware.BodyLimit("12M"))
	if cfg.Server.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit))))
	}

	e.HTTPErrorHandler = customHTTPErrorHandler

	s := &Server{
		echo:     e,
		config:   cfg,
		db:       db,
		services: svc,
	}

	if db != nil {
		if err := s.mountAdminPanel(); err != nil {
			log.Warn("Admin panel disabled: %v", err)
		}
	}

	s.registerRoutes()
	return s
}

// mountAdminPanel exposes the gorm tables to agency owners and admins.
func (s *Server) mountAdminPanel() error {
	gormIntegrator := admingorm.NewIntegrator(s.db)
	echoIntegrator := adminecho.NewIntegrator(s.echo.Group(""))

	permissionChecker := func(request admin.PermissionRequest, ctx interface{}) (bool, error) {
		c, ok := ctx.(echo.Context)
		if !ok {
			return false, nil
		}
		return s.adminAllowed(c), nil
	}

	adminPanel, err := admin.NewPanel(gormIntegrator, echoIntegrator, permissionChecker, nil)
	if err != nil {
		return log.Error("Failed to create admin panel", err)
	}
	app, err := adminPanel.RegisterApp("Portal", "Agency Portal", nil)
	if err != nil {
		return log.Error("Failed to register admin app", err)
	}
	for _, model := range []interface{}{
		&models.Company{}, &models.User{}, &models.Project{}, &models.DigitalAudit{},
		&models.AccessRequest{}, &models.ActivityLog{}, &models.File{},
	} {
		if _, err := app.RegisterModel(model, nil); err != nil {
			return log.Error("Failed to register admin model", err)
		}
	}
	return nil
}

// adminAllowed authenticates the bearer token itself because the panel's
// routes sit outside the API group.
func (s *Server) adminAllowed(c echo.Context) bool {
	user := authmw.CurrentUser(c)
	if user == nil {
		token, ok := authmw.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return false
		}
		var err error
		user, err = s.services.Auth.Authenticate(c.Request().Context(), token)
		if err != nil {
			return false
		}
		authmw.SetUser(c, user)
	}
	return authmw.Allowed(user, authmw.AgencyAdmins...)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Health check endpoint
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// errorStatus maps a service error kind to its HTTP status and the message
// the client sees. Upstream failures keep their detail in the server log.
func errorStatus(err error) (int, interface{}) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrUpstream):
		log.Warn("Upstream failure: %v", err)
		return http.StatusBadRequest, "The request could not be completed. Please try again later."
	}
	return 0, nil
}

// Custom HTTP error handler
func customHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code    = http.StatusInternalServerError
		message interface{}
	)

	var (
		he  *echo.HTTPError
		ves validator.ValidationErrors
	)
	switch {
	case errors.As(err, &he):
		code = he.Code
		message = he.Message
	case errors.As(err, &ves):
		code = http.StatusBadRequest
		message = ves.Messages()
	default:
		if status, msg := errorStatus(err); status != 0 {
			code, message = status, msg
		} else {
			log.Warn("Unhandled error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
			message = http.StatusText(code)
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]interface{}{
			"error": message,
			"code":  code,
			"time":  time.Now().Format(time.RFC3339),
		})
	}
	if err != nil {
		c.Echo().Logger.Error(err)
	}
}
