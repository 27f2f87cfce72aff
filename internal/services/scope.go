package services

import (
	"context"
	"errors"

	"portal/internal/models"
	"portal/internal/repository"
)

// AccessScope decides which companies and projects a user may touch.
// Agency admins see everything; everyone else only their own company.
type AccessScope struct {
	users    repository.UserRepository
	projects repository.ProjectRepository
}

func NewAccessScope(users repository.UserRepository, projects repository.ProjectRepository) *AccessScope {
	return &AccessScope{users: users, projects: projects}
}

// CompanyVisible is the scoping predicate for an already-resolved user.
func CompanyVisible(user *models.User, companyID string) bool {
	if user == nil {
		return false
	}
	if user.Role.IsAgencyAdmin() {
		return true
	}
	return companyID != "" && user.CompanyRef() == companyID
}

// RequireCompany returns ErrForbidden unless user may access companyID.
func RequireCompany(user *models.User, companyID string) error {
	if !CompanyVisible(user, companyID) {
		return ErrForbidden
	}
	return nil
}

// CanAccessCompany resolves userID from the store and applies
// CompanyVisible. Unknown users see nothing.
func (s *AccessScope) CanAccessCompany(ctx context.Context, userID, companyID string) (bool, error) {
	user, err := s.lookup(ctx, userID)
	if user == nil || err != nil {
		return false, err
	}
	return CompanyVisible(user, companyID), nil
}

// CanAccessProject resolves userID from the store and checks the
// project's company.
func (s *AccessScope) CanAccessProject(ctx context.Context, userID, projectID string) (bool, error) {
	user, err := s.lookup(ctx, userID)
	if user == nil || err != nil {
		return false, err
	}
	return s.projectVisible(ctx, user, projectID)
}

// A missing project is not visible to non-admins.
func (s *AccessScope) projectVisible(ctx context.Context, user *models.User, projectID string) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.Role.IsAgencyAdmin() {
		return true, nil
	}
	project, err := s.projects.GetByID(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr(err, "project")
	}
	return CompanyVisible(user, project.CompanyID), nil
}

func (s *AccessScope) lookup(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}
