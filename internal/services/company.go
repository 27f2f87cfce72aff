package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"portal/internal/events"
	"portal/internal/models"
	"portal/internal/repository"
)

// ObjectStore persists uploaded bytes and signs read URLs for them.
type ObjectStore interface {
	UploadFile(ctx context.Context, content []byte, key, contentType string) (string, error)
	models.FileURLGenerator
}

// MaxAssetSize caps a single company asset upload.
const MaxAssetSize = 10 << 20

type CompanyService struct {
	store    *repository.Store
	activity *ActivityService
	objects  ObjectStore
	bus      *events.EventBus
}

func NewCompanyService(store *repository.Store, activity *ActivityService, objects ObjectStore, bus *events.EventBus) *CompanyService {
	return &CompanyService{store: store, activity: activity, objects: objects, bus: bus}
}

type CompanyInput struct {
	Name     string
	Type     models.CompanyType
	ParentID string
}

// CompanyUpdate carries optional changes; nil fields are left alone. An
// empty ParentID clears the parent.
type CompanyUpdate struct {
	Name     *string
	ParentID *string
}

// AssetUpload is a file destined for a company's asset area.
type AssetUpload struct {
	Name        string
	ContentType string
	Kind        string
	Content     []byte
}

// List returns client companies (or the requested type) to agency admins
// and the caller's own company to everyone else.
func (s *CompanyService) List(ctx context.Context, actor *models.User, companyType models.CompanyType) ([]models.Company, error) {
	if companyType != "" && !models.IsValidCompanyType(companyType) {
		return nil, validationf("unknown company type %q", companyType)
	}
	if actor.Role.IsAgencyAdmin() {
		if companyType == "" {
			companyType = models.CompanyTypeClient
		}
		companies, err := s.store.Companies.ListByType(ctx, companyType)
		return companies, storeErr(err, "company")
	}

	companies := []models.Company{}
	if actor.CompanyID == nil {
		return companies, nil
	}
	company, err := s.store.Companies.GetByID(ctx, *actor.CompanyID)
	if errors.Is(err, repository.ErrNotFound) {
		return companies, nil
	}
	if err != nil {
		return nil, storeErr(err, "company")
	}
	if companyType == "" || company.Type == companyType {
		companies = append(companies, *company)
	}
	return companies, nil
}

// Get checks scope before existence so non-admins cannot probe ids.
func (s *CompanyService) Get(ctx context.Context, actor *models.User, id string) (*models.Company, error) {
	if err := RequireCompany(actor, id); err != nil {
		return nil, err
	}
	company, err := s.store.Companies.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "company")
	}
	return company, nil
}

func (s *CompanyService) Create(ctx context.Context, actor *models.User, in CompanyInput) (*models.Company, error) {
	company := &models.Company{
		Name:     strings.TrimSpace(in.Name),
		Type:     in.Type,
		ParentID: models.StringPtr(in.ParentID),
	}
	if err := s.validate(ctx, company); err != nil {
		return nil, err
	}
	if err := s.store.Companies.Create(ctx, company); err != nil {
		return nil, storeErr(err, "company")
	}
	s.activity.Record(ctx, actor.ID, ActionCreateCompany, "company", company.ID, nil)
	if s.bus != nil {
		s.bus.Emit(events.CompanyCreated, company)
	}
	return company, nil
}

func (s *CompanyService) Update(ctx context.Context, actor *models.User, id string, in CompanyUpdate) (*models.Company, error) {
	company, err := s.store.Companies.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "company")
	}
	if in.Name != nil {
		company.Name = strings.TrimSpace(*in.Name)
	}
	if in.ParentID != nil {
		company.ParentID = models.StringPtr(*in.ParentID)
	}
	if err := s.validate(ctx, company); err != nil {
		return nil, err
	}
	if err := s.store.Companies.Update(ctx, company); err != nil {
		return nil, storeErr(err, "company")
	}
	s.activity.Record(ctx, actor.ID, ActionUpdateCompany, "company", company.ID, nil)
	return company, nil
}

// validate enforces the single owner company and the shallow hierarchy:
// a parent must be an owner or client company, and sub companies need one.
func (s *CompanyService) validate(ctx context.Context, company *models.Company) error {
	if len(company.Name) < 2 {
		return validationf("name must be at least 2 characters")
	}
	if !models.IsValidCompanyType(company.Type) {
		return validationf("unknown company type %q", company.Type)
	}
	if company.Type == models.CompanyTypeOwner {
		owners, err := s.store.Companies.ListByType(ctx, models.CompanyTypeOwner)
		if err != nil {
			return storeErr(err, "company")
		}
		for _, o := range owners {
			if o.ID != company.ID {
				return fmt.Errorf("%w: an owner company already exists", ErrConflict)
			}
		}
	}
	if company.ParentID == nil {
		if company.Type == models.CompanyTypeSub {
			return validationf("sub companies require a parent company")
		}
		return nil
	}
	if company.ID != "" && *company.ParentID == company.ID {
		return validationf("a company cannot be its own parent")
	}
	parent, err := s.store.Companies.GetByID(ctx, *company.ParentID)
	if errors.Is(err, repository.ErrNotFound) {
		return validationf("parent company %s does not exist", *company.ParentID)
	}
	if err != nil {
		return storeErr(err, "company")
	}
	if parent.Type != models.CompanyTypeOwner && parent.Type != models.CompanyTypeClient {
		return validationf("parent company must be an owner or client company")
	}
	return nil
}

// Files lists a company's uploaded assets with signed URLs.
func (s *CompanyService) Files(ctx context.Context, actor *models.User, companyID string) ([]models.File, error) {
	if err := RequireCompany(actor, companyID); err != nil {
		return nil, err
	}
	files, err := s.store.Files.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, storeErr(err, "file")
	}
	return files, nil
}

// UploadAsset stores a file under the company and records it.
func (s *CompanyService) UploadAsset(ctx context.Context, actor *models.User, companyID string, upload AssetUpload) (*models.File, error) {
	if err := RequireCompany(actor, companyID); err != nil {
		return nil, err
	}
	if s.objects == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", ErrUpstream)
	}
	if _, err := s.store.Companies.GetByID(ctx, companyID); err != nil {
		return nil, storeErr(err, "company")
	}
	if len(upload.Content) == 0 {
		return nil, validationf("file is empty")
	}
	if len(upload.Content) > MaxAssetSize {
		return nil, validationf("file exceeds %d bytes", MaxAssetSize)
	}
	kind := upload.Kind
	if kind == "" {
		kind = "asset"
	}

	key := fmt.Sprintf("companies/%s/%s/%s%s", companyID, kind, uuid.New().String(), strings.ToLower(filepath.Ext(upload.Name)))
	path, err := s.objects.UploadFile(ctx, upload.Content, key, upload.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	file := &models.File{
		CompanyID:  companyID,
		UploadedBy: actor.ID,
		Path:       path,
		Name:       filepath.Base(upload.Name),
		Size:       int64(len(upload.Content)),
		Type:       upload.ContentType,
		Kind:       kind,
	}
	if err := s.store.Files.Create(ctx, file); err != nil {
		return nil, storeErr(err, "file")
	}
	if url, err := s.objects.GetSignedURL(ctx, path, defaultSignedURLTTL); err == nil {
		file.SignedURL = url
	}
	s.activity.Record(ctx, actor.ID, ActionUploadAsset, "file", file.ID, map[string]any{"companyId": companyID, "kind": kind})
	return file, nil
}
