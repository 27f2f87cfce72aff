package services

import (
	"context"
	"time"

	"portal/internal/models"
	"portal/internal/repository"
)

type ProjectService struct {
	store    *repository.Store
	scope    *AccessScope
	activity *ActivityService
}

func NewProjectService(store *repository.Store, scope *AccessScope, activity *ActivityService) *ProjectService {
	return &ProjectService{store: store, scope: scope, activity: activity}
}

type ProjectInput struct {
	Name        string
	Description string
	CompanyID   string
	Status      models.ProjectStatus
	StartDate   *time.Time
	DueDate     *time.Time
}

// List returns every project to agency admins and the caller's company
// projects to everyone else.
func (s *ProjectService) List(ctx context.Context, actor *models.User, status models.ProjectStatus) ([]models.Project, error) {
	filter := repository.ProjectFilter{Status: status}
	if !actor.Role.IsAgencyAdmin() {
		filter.CompanyID = actor.CompanyRef()
		if filter.CompanyID == "" {
			return []models.Project{}, nil
		}
	}
	projects, err := s.store.Projects.List(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "project")
	}
	return projects, nil
}

// Get checks scope first; a project outside the caller's company reads as
// forbidden whether or not it exists.
func (s *ProjectService) Get(ctx context.Context, actor *models.User, id string) (*models.Project, error) {
	ok, err := s.scope.CanAccessProject(ctx, actor.ID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	project, err := s.store.Projects.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "project")
	}
	return project, nil
}

// Create stamps the caller as creator.
func (s *ProjectService) Create(ctx context.Context, actor *models.User, in ProjectInput) (*models.Project, error) {
	ok, err := s.scope.CanAccessCompany(ctx, actor.ID, in.CompanyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	if _, err := s.store.Companies.GetByID(ctx, in.CompanyID); err != nil {
		return nil, storeErr(err, "company")
	}
	if in.Status == "" {
		in.Status = models.ProjectStatusActive
	}
	if !models.IsValidProjectStatus(in.Status) {
		return nil, validationf("unknown project status %q", in.Status)
	}
	if in.StartDate != nil && in.DueDate != nil && in.DueDate.Before(*in.StartDate) {
		return nil, validationf("dueDate must not be before startDate")
	}
	project := &models.Project{
		Name:        in.Name,
		Description: in.Description,
		CompanyID:   in.CompanyID,
		Status:      in.Status,
		CreatedBy:   actor.ID,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
	}
	if err := s.store.Projects.Create(ctx, project); err != nil {
		return nil, storeErr(err, "project")
	}
	s.activity.Record(ctx, actor.ID, ActionCreateProject, "project", project.ID, nil)
	return project, nil
}
