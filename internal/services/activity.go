package services

import (
	"context"

	"portal/internal/models"
	"portal/internal/repository"
	"portal/internal/utils"
	"portal/internal/utils/logger"
)

// Domain actions written to the activity log next to the per-request
// "METHOD PATH" entries.
const (
	ActionLogin               = "LOGIN"
	ActionRegister            = "REGISTER"
	ActionChangePassword      = "CHANGE_PASSWORD"
	ActionCreateCompany       = "CREATE_COMPANY"
	ActionUpdateCompany       = "UPDATE_COMPANY"
	ActionUploadAsset         = "UPLOAD_ASSET"
	ActionCreateUser          = "CREATE_USER"
	ActionUpdateUser          = "UPDATE_USER"
	ActionDeactivateUser      = "DEACTIVATE_USER"
	ActionInviteUser          = "INVITE_USER"
	ActionCreateProject       = "CREATE_PROJECT"
	ActionCreateAudit         = "CREATE_AUDIT"
	ActionReviewAccessRequest = "REVIEW_ACCESS_REQUEST"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

type ActivityService struct {
	repo repository.ActivityRepository
	log  *logger.Logger
}

func NewActivityService(repo repository.ActivityRepository) *ActivityService {
	return &ActivityService{repo: repo, log: logger.New("activity")}
}

// Record appends an entry. It never fails the caller: a write error is
// logged and dropped.
func (s *ActivityService) Record(ctx context.Context, actorID, action, resourceType, resourceID string, metadata map[string]any) {
	entry := &models.ActivityLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	if len(metadata) > 0 {
		raw, err := utils.MapToJSON(metadata)
		if err != nil {
			s.log.Warn("dropping activity metadata for %s: %v", action, err)
		} else {
			entry.Metadata = raw
		}
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.log.Warn("failed to record activity %q for %s: %v", action, actorID, err)
	}
}

// List returns entries newest first.
func (s *ActivityService) List(ctx context.Context, filter repository.ActivityFilter) ([]models.ActivityLog, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultActivityLimit
	case filter.Limit > maxActivityLimit:
		filter.Limit = maxActivityLimit
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "activity")
	}
	return entries, nil
}
