package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	base.EnsureID()
	return nil
}

// EnsureID assigns a UUID when the entity has none yet.
func (base *Base) EnsureID() {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
}

type CompanyType string

const (
	CompanyTypeOwner   CompanyType = "owner"
	CompanyTypePartner CompanyType = "partner"
	CompanyTypeClient  CompanyType = "client"
	CompanyTypeSub     CompanyType = "sub"
)

// IsValidCompanyType checks if a given company type is valid
func IsValidCompanyType(t CompanyType) bool {
	switch t {
	case CompanyTypeOwner, CompanyTypePartner, CompanyTypeClient, CompanyTypeSub:
		return true
	default:
		return false
	}
}

type AccessRequestStatus string

const (
	AccessRequestPending  AccessRequestStatus = "pending"
	AccessRequestApproved AccessRequestStatus = "approved"
	AccessRequestDenied   AccessRequestStatus = "denied"
)

// Terminal reports whether no further transition is allowed.
func (s AccessRequestStatus) Terminal() bool {
	return s == AccessRequestApproved || s == AccessRequestDenied
}

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

type AuditStatus string

const (
	AuditStatusDraft     AuditStatus = "draft"
	AuditStatusInReview  AuditStatus = "in_review"
	AuditStatusPublished AuditStatus = "published"
)

func IsValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case ProjectStatusActive, ProjectStatusCompleted, ProjectStatusOnHold, ProjectStatusCancelled:
		return true
	default:
		return false
	}
}

func IsValidAuditStatus(s AuditStatus) bool {
	switch s {
	case AuditStatusDraft, AuditStatusInReview, AuditStatusPublished:
		return true
	default:
		return false
	}
}
