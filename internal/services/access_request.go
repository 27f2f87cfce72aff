package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"portal/internal/events"
	"portal/internal/models"
	"portal/internal/repository"
	"portal/internal/utils"
	"portal/internal/utils/logger"
)

type AccessRequestService struct {
	store    *repository.Store
	auth     *AuthService
	activity *ActivityService
	bus      *events.EventBus
	now      func() time.Time
	log      *logger.Logger
}

func NewAccessRequestService(store *repository.Store, auth *AuthService, activity *ActivityService, bus *events.EventBus) *AccessRequestService {
	return &AccessRequestService{
		store:    store,
		auth:     auth,
		activity: activity,
		bus:      bus,
		now:      time.Now,
		log:      logger.New("access_requests"),
	}
}

// SubmitInput is an unauthenticated self-service request.
type SubmitInput struct {
	Email     string
	Name      string
	Role      models.Role
	CompanyID string
	Message   string
}

// ReviewInput approves or denies a request. CompanyID and Role override the
// requested values on approval.
type ReviewInput struct {
	Status    models.AccessRequestStatus
	CompanyID string
	Role      models.Role
}

// ReviewedEvent is published after a successful review.
type ReviewedEvent struct {
	Request *models.AccessRequest
	User    *models.User
}

func (s *AccessRequestService) Submit(ctx context.Context, in SubmitInput) (*models.AccessRequest, error) {
	if !models.IsValidRole(in.Role) {
		return nil, validationf("unknown role %q", in.Role)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, validationf("requesterName is required")
	}
	if in.CompanyID != "" {
		_, err := s.store.Companies.GetByID(ctx, in.CompanyID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationf("company %s does not exist", in.CompanyID)
		}
		if err != nil {
			return nil, storeErr(err, "company")
		}
	}
	req := &models.AccessRequest{
		RequesterEmail: in.Email,
		RequesterName:  strings.TrimSpace(in.Name),
		RequestedRole:  in.Role,
		CompanyID:      models.StringPtr(in.CompanyID),
		Message:        in.Message,
		Status:         models.AccessRequestPending,
	}
	if err := s.store.AccessRequests.Create(ctx, req); err != nil {
		return nil, storeErr(err, "access request")
	}
	s.log.Info("Access request %s submitted for %s", req.ID, req.RequesterEmail)
	if s.bus != nil {
		s.bus.Emit(events.AccessRequestSubmitted, req)
	}
	return req, nil
}

func (s *AccessRequestService) ListPending(ctx context.Context) ([]models.AccessRequest, error) {
	reqs, err := s.store.AccessRequests.ListByStatus(ctx, models.AccessRequestPending)
	if err != nil {
		return nil, storeErr(err, "access request")
	}
	return reqs, nil
}

// Review moves a pending request to approved or denied. Approval creates
// exactly one user in the same atomic step; a request that already left
// pending yields ErrConflict and creates nothing.
func (s *AccessRequestService) Review(ctx context.Context, actor *models.User, id string, in ReviewInput) (*models.AccessRequest, error) {
	if in.Status != models.AccessRequestApproved && in.Status != models.AccessRequestDenied {
		return nil, validationf("status must be approved or denied")
	}
	req, err := s.store.AccessRequests.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "access request")
	}
	if req.Status.Terminal() {
		return nil, fmt.Errorf("%w: access request is already %s", ErrConflict, req.Status)
	}

	var user *models.User
	if in.Status == models.AccessRequestApproved {
		user, err = s.newUser(ctx, req, in)
		if err != nil {
			return nil, err
		}
	}

	reviewed, err := s.store.AccessRequests.Review(ctx, id, repository.Review{
		Status:     in.Status,
		ReviewedBy: actor.ID,
		ReviewedAt: s.now().UTC(),
	}, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: a user with this email already exists", ErrConflict)
		}
		return nil, storeErr(err, "access request")
	}

	s.activity.Record(ctx, actor.ID, ActionReviewAccessRequest, "access_request", id, map[string]any{"status": string(in.Status)})
	if user != nil {
		s.activity.Record(ctx, actor.ID, ActionCreateUser, "user", user.ID, map[string]any{"accessRequestId": id})
		if _, _, err := s.auth.IssueCode(ctx, user, PurposeSetup); err != nil {
			s.log.Warn("failed to issue setup code for %s: %v", user.ID, err)
		}
	}
	if s.bus != nil {
		s.bus.Emit(events.AccessRequestReviewed, ReviewedEvent{Request: reviewed, User: user})
	}
	return reviewed, nil
}

// newUser builds the account an approval creates. It has an unusable
// random password until the setup code is redeemed.
func (s *AccessRequestService) newUser(ctx context.Context, req *models.AccessRequest, in ReviewInput) (*models.User, error) {
	companyID := in.CompanyID
	if companyID == "" {
		companyID = models.Deref(req.CompanyID)
	}
	if companyID == "" {
		return nil, validationf("companyId is required to approve this request")
	}
	if _, err := s.store.Companies.GetByID(ctx, companyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationf("company %s does not exist", companyID)
		}
		return nil, storeErr(err, "company")
	}

	role := req.RequestedRole
	if in.Role != "" {
		role = in.Role
	}
	if !models.IsValidRole(role) {
		return nil, validationf("unknown role %q", role)
	}

	_, err := s.store.Users.GetByEmail(ctx, req.RequesterEmail)
	if err == nil {
		return nil, fmt.Errorf("%w: a user with this email already exists", ErrConflict)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(err, "user")
	}

	secret, err := utils.GenerateRandomString(48)
	if err != nil {
		return nil, s.log.Error("failed to generate placeholder password", err)
	}
	hash, err := HashPassword(secret)
	if err != nil {
		return nil, err
	}
	first, last := models.SplitName(req.RequesterName)
	if first == "" {
		first = req.RequesterName
	}
	return &models.User{
		Email:     req.RequesterEmail,
		Password:  hash,
		FirstName: first,
		LastName:  last,
		Role:      role,
		CompanyID: models.StringPtr(companyID),
		IsActive:  true,
	}, nil
}
