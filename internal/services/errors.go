package services

import (
	"errors"
	"fmt"

	"portal/internal/repository"
)

// Error kinds returned by services. Callers match with errors.Is; the API
// layer maps each kind to one HTTP status.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUpstream        = errors.New("upstream request failed")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s not found", ErrNotFound, what)
}

// storeErr translates a repository error into a service error kind.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound(what)
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	case errors.Is(err, repository.ErrNotPending):
		return fmt.Errorf("%w: %s has already been reviewed", ErrConflict, what)
	default:
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
}
