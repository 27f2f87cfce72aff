package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"portal/internal/models"
	"portal/internal/repository"
)

type UserService struct {
	store    *repository.Store
	activity *ActivityService
}

func NewUserService(store *repository.Store, activity *ActivityService) *UserService {
	return &UserService{store: store, activity: activity}
}

// CreateUserInput is an admin-created account.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      models.Role
	CompanyID string
}

type InviteInput struct {
	Email     string
	Name      string
	CompanyID string
	Role      models.Role
	Message   string
}

// UserUpdate carries optional changes; nil fields are left alone.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Role      *models.Role
	CompanyID *string
	IsActive  *bool
}

// List returns the users of companyID, defaulting to the caller's company.
func (s *UserService) List(ctx context.Context, actor *models.User, companyID string) ([]models.User, error) {
	if companyID == "" {
		companyID = actor.CompanyRef()
		if companyID == "" {
			return []models.User{}, nil
		}
	} else if err := RequireCompany(actor, companyID); err != nil {
		return nil, err
	}
	users, err := s.store.Users.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return users, nil
}

func (s *UserService) Create(ctx context.Context, actor *models.User, in CreateUserInput) (*models.User, error) {
	if !models.IsValidRole(in.Role) {
		return nil, validationf("unknown role %q", in.Role)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, validationf("password must be at least %d characters", MinPasswordLength)
	}
	if err := s.requireCompany(ctx, in.CompanyID); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:     in.Email,
		Password:  hash,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      in.Role,
		CompanyID: models.StringPtr(in.CompanyID),
		IsActive:  true,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, storeErr(err, "user with this email")
	}
	s.activity.Record(ctx, actor.ID, ActionCreateUser, "user", user.ID, nil)
	return user, nil
}

// Invite records a pending access request on the invitee's behalf. The
// account itself is created when the request is approved.
func (s *UserService) Invite(ctx context.Context, actor *models.User, in InviteInput) (*models.AccessRequest, error) {
	if in.Role == "" {
		in.Role = models.RoleClientViewer
	}
	if !models.IsValidRole(in.Role) {
		return nil, validationf("unknown role %q", in.Role)
	}
	if in.CompanyID != "" {
		if err := s.requireCompany(ctx, in.CompanyID); err != nil {
			return nil, err
		}
	}
	if _, err := s.store.Users.GetByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: a user with this email already exists", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(err, "user")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.Split(models.NormalizeEmail(in.Email), "@")[0]
	}
	req := &models.AccessRequest{
		RequesterEmail: in.Email,
		RequesterName:  name,
		RequestedRole:  in.Role,
		CompanyID:      models.StringPtr(in.CompanyID),
		Message:        in.Message,
		Status:         models.AccessRequestPending,
		InvitedBy:      models.StringPtr(actor.ID),
	}
	if err := s.store.AccessRequests.Create(ctx, req); err != nil {
		return nil, storeErr(err, "access request")
	}
	s.activity.Record(ctx, actor.ID, ActionInviteUser, "access_request", req.ID, nil)
	return req, nil
}

func (s *UserService) Update(ctx context.Context, actor *models.User, id string, in UserUpdate) (*models.User, error) {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Role != nil {
		if !models.IsValidRole(*in.Role) {
			return nil, validationf("unknown role %q", *in.Role)
		}
		if user.ID == actor.ID && *in.Role != user.Role {
			return nil, fmt.Errorf("%w: you cannot change your own role", ErrForbidden)
		}
		user.Role = *in.Role
	}
	if in.CompanyID != nil {
		if err := s.requireCompany(ctx, *in.CompanyID); err != nil {
			return nil, err
		}
		user.CompanyID = models.StringPtr(*in.CompanyID)
		user.Company = nil
	}
	if in.IsActive != nil {
		if user.ID == actor.ID && !*in.IsActive {
			return nil, fmt.Errorf("%w: you cannot deactivate yourself", ErrForbidden)
		}
		user.IsActive = *in.IsActive
	}
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, storeErr(err, "user")
	}
	s.activity.Record(ctx, actor.ID, ActionUpdateUser, "user", user.ID, nil)
	return user, nil
}

// Deactivate flips isActive off; users are never hard-deleted.
func (s *UserService) Deactivate(ctx context.Context, actor *models.User, id string) (*models.User, error) {
	if id == actor.ID {
		return nil, fmt.Errorf("%w: you cannot deactivate yourself", ErrForbidden)
	}
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	user.IsActive = false
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, storeErr(err, "user")
	}
	s.activity.Record(ctx, actor.ID, ActionDeactivateUser, "user", user.ID, nil)
	return user, nil
}

func (s *UserService) requireCompany(ctx context.Context, companyID string) error {
	if companyID == "" {
		return validationf("companyId is required")
	}
	_, err := s.store.Companies.GetByID(ctx, companyID)
	if errors.Is(err, repository.ErrNotFound) {
		return validationf("company %s does not exist", companyID)
	}
	return storeErr(err, "company")
}
