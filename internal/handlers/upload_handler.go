package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"portal/internal/services"
	"portal/internal/utils/logger"
)

type UploadHandler struct {
	log       *logger.Logger
	companies *services.CompanyService
}

func NewUploadHandler(companies *services.CompanyService) *UploadHandler {
	return &UploadHandler{
		log:       logger.New("upload_handler"),
		companies: companies,
	}
}

// UploadLogo stores a company logo.
// @Summary Upload company logo
// @Tags companies
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Company ID"
// @Param file formData file true "Logo image"
// @Success 201 {object} models.File
// @Failure 400 {object} map[string]string "Validation error or file not found"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /companies/{id}/logo [post]
func (h *UploadHandler) UploadLogo(c echo.Context) error {
	return h.upload(c, "logo")
}

// UploadAsset stores any company asset; the form field "kind" groups it.
// @Summary Upload company asset
// @Tags companies
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Company ID"
// @Param file formData file true "File to upload"
// @Param kind formData string false "Asset kind"
// @Success 201 {object} models.File
// @Failure 400 {object} map[string]string "Validation error or file not found"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /companies/{id}/files [post]
func (h *UploadHandler) UploadAsset(c echo.Context) error {
	return h.upload(c, c.FormValue("kind"))
}

func (h *UploadHandler) upload(c echo.Context, kind string) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		return echo.NewHTTPError(http.StatusBadRequest, "Content-Type must be multipart/form-data")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No file provided")
	}
	if file.Size > services.MaxAssetSize {
		return echo.NewHTTPError(http.StatusBadRequest, "File is too large")
	}
	src, err := file.Open()
	if err != nil {
		return h.log.Error("Failed to open file", err)
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, services.MaxAssetSize+1))
	if err != nil {
		return h.log.Error("Failed to read file", err)
	}

	stored, err := h.companies.UploadAsset(c.Request().Context(), user, c.Param("id"), services.AssetUpload{
		Name:        file.Filename,
		ContentType: file.Header.Get(echo.HeaderContentType),
		Kind:        kind,
		Content:     content,
	})
	if err != nil {
		return err
	}
	h.log.Success("File uploaded successfully: %s", stored.Path)
	return c.JSON(http.StatusCreated, stored)
}

// Files lists a company's assets with signed URLs.
// @Summary List company files
// @Tags companies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Company ID"
// @Success 200 {array} models.File
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /companies/{id}/files [get]
func (h *UploadHandler) Files(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	files, err := h.companies.Files(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, files)
}
