package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"portal/internal/events"
	"portal/internal/models"
	"portal/internal/repository"
	"portal/internal/utils"
	"portal/internal/utils/logger"
)

const (
	MinPasswordLength = 6
	ResetCodeTTL      = 15 * time.Minute
	SetupCodeTTL      = 7 * 24 * time.Hour

	PurposeReset = "reset"
	PurposeSetup = "setup"
)

type AuthService struct {
	store    *repository.Store
	tokens   *utils.TokenService
	activity *ActivityService
	bus      *events.EventBus
	now      func() time.Time
	log      *logger.Logger
}

func NewAuthService(store *repository.Store, tokens *utils.TokenService, activity *ActivityService, bus *events.EventBus) *AuthService {
	return &AuthService{
		store:    store,
		tokens:   tokens,
		activity: activity,
		bus:      bus,
		now:      time.Now,
		log:      logger.New("auth_service"),
	}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// RegisterInput is a self-service sign-up.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      models.Role
	CompanyID string
}

var passwordCost = bcrypt.DefaultCost

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)

// Login checks the credentials of an active user and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if !user.IsActive || !checkPassword(user.Password, password) {
		return nil, errInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.store.Users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("failed to update last login for %s: %v", user.ID, err)
	} else {
		user.LastLogin = &now
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, s.log.Error("failed to issue token", err)
	}
	s.activity.Record(ctx, user.ID, ActionLogin, "user", user.ID, nil)
	return &LoginResult{User: user, Token: token}, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired token", ErrUnauthenticated)
	}
	user, err := s.store.Users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: user not found or inactive", ErrUnauthenticated)
	}
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user not found or inactive", ErrUnauthenticated)
	}
	return user, nil
}

// Register creates a client user bound to an existing client company.
// Agency and partner accounts are only created by admins.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if !in.Role.InRoles(models.SelfServiceRoles...) {
		return nil, fmt.Errorf("%w: role %q cannot be self-registered", ErrForbidden, in.Role)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, validationf("password must be at least %d characters", MinPasswordLength)
	}
	company, err := s.store.Companies.GetByID(ctx, in.CompanyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationf("company %s does not exist", in.CompanyID)
		}
		return nil, storeErr(err, "company")
	}
	if company.Type != models.CompanyTypeClient && company.Type != models.CompanyTypeSub {
		return nil, fmt.Errorf("%w: registration is limited to client companies", ErrForbidden)
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
		CompanyID: models.StringPtr(company.ID),
		IsActive:  true,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, storeErr(err, "user with this email")
	}
	s.activity.Record(ctx, user.ID, ActionRegister, "user", user.ID, nil)
	return user, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

// ChangePassword verifies the current password before replacing it.
func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, current, next string) error {
	if len(next) < MinPasswordLength {
		return validationf("password must be at least %d characters", MinPasswordLength)
	}
	stored, err := s.store.Users.GetByID(ctx, user.ID)
	if err != nil {
		return storeErr(err, "user")
	}
	if !checkPassword(stored.Password, current) {
		return validationf("current password is incorrect")
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.store.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return storeErr(err, "user")
	}
	s.activity.Record(ctx, user.ID, ActionChangePassword, "user", user.ID, nil)
	return nil
}

// RequestPasswordReset issues a reset code for an active user. Unknown or
// inactive addresses succeed silently so callers cannot probe accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeErr(err, "user")
	}
	if !user.IsActive {
		return nil
	}
	_, _, err = s.IssueCode(ctx, user, PurposeReset)
	return err
}

// IssueCode stores the digest of a single-use password code and publishes
// the code itself for delivery. The plaintext code is returned alongside
// the stored record and is not kept anywhere else.
func (s *AuthService) IssueCode(ctx context.Context, user *models.User, purpose string) (string, *models.PasswordReset, error) {
	code, err := utils.GenerateRandomString(32)
	if err != nil {
		return "", nil, s.log.Error("failed to generate password code", err)
	}
	ttl := ResetCodeTTL
	if purpose == PurposeSetup {
		ttl = SetupCodeTTL
	}
	reset := &models.PasswordReset{
		UserID:    user.ID,
		CodeHash:  utils.HashCode(code),
		Purpose:   purpose,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.store.PasswordResets.Create(ctx, reset); err != nil {
		return "", nil, storeErr(err, "password code")
	}
	if s.bus != nil {
		s.bus.Emit(events.PasswordCodeIssued, events.PasswordCode{
			UserID:  user.ID,
			Email:   user.Email,
			Name:    user.FullName(),
			Code:    code,
			Purpose: purpose,
		})
	}
	return code, reset, nil
}

// ResetPassword consumes a code and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, code, password string) error {
	if len(password) < MinPasswordLength {
		return validationf("password must be at least %d characters", MinPasswordLength)
	}
	reset, err := s.store.PasswordResets.Consume(ctx, utils.HashCode(code), s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return validationf("invalid or expired reset code")
	}
	if err != nil {
		return storeErr(err, "password code")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.store.Users.UpdatePassword(ctx, reset.UserID, hash); err != nil {
		return storeErr(err, "user")
	}
	return nil
}
