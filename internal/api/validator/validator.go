package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"portal/internal/models"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() echo.Validator {
	v := playgroundvalidator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		}
		return name
	})

	custom := map[string]playgroundvalidator.Func{
		"user_role":      validateUserRole,
		"company_type":   validateCompanyType,
		"project_status": validateProjectStatus,
		"audit_status":   validateAuditStatus,
		"review_status":  validateReviewStatus,
	}
	for tag, fn := range custom {
		// Registration only fails for an empty tag or nil func.
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validator: register %s: %v", tag, err))
		}
	}

	return &CustomValidator{validator: v}
}

func validateUserRole(fl playgroundvalidator.FieldLevel) bool {
	return models.IsValidRole(models.Role(fl.Field().String()))
}

func validateCompanyType(fl playgroundvalidator.FieldLevel) bool {
	return models.IsValidCompanyType(models.CompanyType(fl.Field().String()))
}

func validateProjectStatus(fl playgroundvalidator.FieldLevel) bool {
	return models.IsValidProjectStatus(models.ProjectStatus(fl.Field().String()))
}

func validateAuditStatus(fl playgroundvalidator.FieldLevel) bool {
	return models.IsValidAuditStatus(models.AuditStatus(fl.Field().String()))
}

func validateReviewStatus(fl playgroundvalidator.FieldLevel) bool {
	status := models.AccessRequestStatus(fl.Field().String())
	return status == models.AccessRequestApproved || status == models.AccessRequestDenied
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// Messages renders one human readable message per failing field.
func (ve ValidationErrors) Messages() map[string]string {
	errMap := make(map[string]string, len(ve))
	for _, err := range ve {
		field := err.Field()
		param := err.Param()

		switch err.Tag() {
		case "required":
			errMap[field] = fmt.Sprintf("%s is required", field)
		case "email":
			errMap[field] = fmt.Sprintf("%s must be a valid email", field)
		case "min":
			errMap[field] = fmt.Sprintf("%s must be at least %s", field, param)
		case "max":
			errMap[field] = fmt.Sprintf("%s must be at most %s", field, param)
		case "uuid":
			errMap[field] = fmt.Sprintf("%s must be a valid UUID", field)
		case "oneof":
			errMap[field] = fmt.Sprintf("%s must be one of [%s]", field, param)
		case "json":
			errMap[field] = fmt.Sprintf("%s must be valid JSON", field)
		case "user_role":
			errMap[field] = fmt.Sprintf("%s must be a known role", field)
		case "company_type":
			errMap[field] = fmt.Sprintf("%s must be one of: owner, partner, client, sub", field)
		case "project_status":
			errMap[field] = fmt.Sprintf("%s must be one of: active, completed, on_hold, cancelled", field)
		case "audit_status":
			errMap[field] = fmt.Sprintf("%s must be one of: draft, in_review, published", field)
		case "review_status":
			errMap[field] = fmt.Sprintf("%s must be approved or denied", field)
		default:
			errMap[field] = fmt.Sprintf("%s failed validation: %s", field, err.Tag())
		}
	}
	return errMap
}
