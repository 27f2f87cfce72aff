package repository

import (
	"context"
	"errors"
	"time"

	"portal/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique attribute (e-mail) is taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotPending is returned when a review targets a request that has
	// already left the pending state.
	ErrNotPending = errors.New("access request is not pending")
)

// UserRepository is the identity store.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListByCompany(ctx context.Context, companyID string) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	CountByRole(ctx context.Context, role models.Role) (int64, error)
}

type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	GetByID(ctx context.Context, id string) (*models.Company, error)
	ListByType(ctx context.Context, companyType models.CompanyType) ([]models.Company, error)
	Update(ctx context.Context, company *models.Company) error
}

// ProjectFilter narrows project listings; empty CompanyID means all.
type ProjectFilter struct {
	CompanyID string
	Status    models.ProjectStatus
}

type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, error)
}

type AuditRepository interface {
	Create(ctx context.Context, audit *models.DigitalAudit) error
	ListByClients(ctx context.Context, companyIDs []string) ([]models.DigitalAudit, error)
}

// Review is the terminal transition applied to a pending access request.
type Review struct {
	Status     models.AccessRequestStatus
	ReviewedBy string
	ReviewedAt time.Time
}

type AccessRequestRepository interface {
	Create(ctx context.Context, req *models.AccessRequest) error
	GetByID(ctx context.Context, id string) (*models.AccessRequest, error)
	ListByStatus(ctx context.Context, status models.AccessRequestStatus) ([]models.AccessRequest, error)
	// Review moves a pending request to a terminal status and, when newUser
	// is non-nil, creates it in the same atomic step. It returns
	// ErrNotPending if the request was already reviewed, ErrNotFound if it
	// does not exist and ErrDuplicate if newUser's e-mail is taken.
	Review(ctx context.Context, id string, review Review, newUser *models.User) (*models.AccessRequest, error)
}

// ActivityFilter narrows activity listings.
type ActivityFilter struct {
	ActorUserID string
	Limit       int
}

type ActivityRepository interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityFilter) ([]models.ActivityLog, error)
}

type FileRepository interface {
	Create(ctx context.Context, file *models.File) error
	ListByCompany(ctx context.Context, companyID string) ([]models.File, error)
}

type PasswordResetRepository interface {
	Create(ctx context.Context, reset *models.PasswordReset) error
	// Consume marks the unexpired, unused code with the given digest as
	// used and returns it.
	Consume(ctx context.Context, codeHash string, now time.Time) (*models.PasswordReset, error)
}

// Store bundles every repository the services need.
type Store struct {
	Users          UserRepository
	Companies      CompanyRepository
	Projects       ProjectRepository
	Audits         AuditRepository
	AccessRequests AccessRequestRepository
	Activity       ActivityRepository
	Files          FileRepository
	PasswordResets PasswordResetRepository
}
