package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"portal/internal/models"
	"portal/internal/repository"
	"portal/internal/utils"
)

type AuditService struct {
	store    *repository.Store
	activity *ActivityService
	now      func() time.Time
}

func NewAuditService(store *repository.Store, activity *ActivityService) *AuditService {
	return &AuditService{store: store, activity: activity, now: time.Now}
}

type AuditInput struct {
	ClientCompanyID string
	Title           string
	Status          models.AuditStatus
	Score           *int
	Findings        json.RawMessage
}

// List returns the audits of clientCompanyID after a scope check, or with no
// filter every client company's audits for agency admins and the caller's
// own otherwise.
func (s *AuditService) List(ctx context.Context, actor *models.User, clientCompanyID string) ([]models.DigitalAudit, error) {
	var ids []string
	switch {
	case clientCompanyID != "":
		if err := RequireCompany(actor, clientCompanyID); err != nil {
			return nil, err
		}
		ids = []string{clientCompanyID}
	case actor.Role.IsAgencyAdmin():
		clients, err := s.clientIDs(ctx)
		if err != nil {
			return nil, err
		}
		ids = clients
	default:
		ids = []string{}
		if ref := actor.CompanyRef(); ref != "" {
			ids = append(ids, ref)
		}
	}
	audits, err := s.store.Audits.ListByClients(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "audit")
	}
	return audits, nil
}

func (s *AuditService) Create(ctx context.Context, actor *models.User, in AuditInput) (*models.DigitalAudit, error) {
	if err := RequireCompany(actor, in.ClientCompanyID); err != nil {
		return nil, err
	}
	if _, err := s.store.Companies.GetByID(ctx, in.ClientCompanyID); err != nil {
		return nil, storeErr(err, "company")
	}
	if in.Status == "" {
		in.Status = models.AuditStatusDraft
	}
	if !models.IsValidAuditStatus(in.Status) {
		return nil, validationf("unknown audit status %q", in.Status)
	}
	if len(in.Findings) > 0 {
		m, err := utils.JSONToMap(datatypes.JSON(in.Findings))
		if err != nil || m == nil {
			return nil, validationf("findings must be a JSON object")
		}
	}
	audit := &models.DigitalAudit{
		ClientCompanyID: in.ClientCompanyID,
		Title:           in.Title,
		Status:          in.Status,
		Score:           in.Score,
		Findings:        datatypes.JSON(in.Findings),
		CreatedBy:       actor.ID,
	}
	if audit.Status == models.AuditStatusPublished {
		now := s.now().UTC()
		audit.PublishedAt = &now
	}
	if err := s.store.Audits.Create(ctx, audit); err != nil {
		return nil, storeErr(err, "audit")
	}
	s.activity.Record(ctx, actor.ID, ActionCreateAudit, "digital_audit", audit.ID, nil)
	return audit, nil
}

func (s *AuditService) clientIDs(ctx context.Context) ([]string, error) {
	clients, err := s.store.Companies.ListByType(ctx, models.CompanyTypeClient)
	if err != nil {
		return nil, storeErr(err, "company")
	}
	ids := make([]string, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, c.ID)
	}
	return ids, nil
}
