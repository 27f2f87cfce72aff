package models

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Company struct {
	Base
	Name     string      `gorm:"not null" json:"name" validate:"required,min=2"`
	Type     CompanyType `gorm:"not null;index" json:"type" validate:"required,company_type"`
	ParentID *string     `gorm:"type:uuid;default:NULL" json:"parentId,omitempty"`
	Parent   *Company    `json:"parent,omitempty"`
}

type User struct {
	Base
	Email     string     `gorm:"uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"not null" json:"-"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Role      Role       `gorm:"not null;default:'client_viewer'" json:"role"`
	CompanyID *string    `gorm:"type:uuid;index;default:NULL" json:"companyId"`
	Company   *Company   `json:"company,omitempty"`
	IsActive  bool       `gorm:"not null" json:"isActive"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// CompanyRef returns the user's company id or "" while onboarding.
func (u *User) CompanyRef() string {
	if u == nil || u.CompanyID == nil {
		return ""
	}
	return *u.CompanyID
}

// FullName joins first and last name.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type Project struct {
	Base
	Name        string        `gorm:"not null" json:"name" validate:"required,min=2"`
	Description string        `json:"description"`
	CompanyID   string        `gorm:"type:uuid;not null;index" json:"companyId" validate:"required"`
	Company     *Company      `json:"company,omitempty"`
	Status      ProjectStatus `gorm:"not null;default:'active'" json:"status" validate:"omitempty,project_status"`
	CreatedBy   string        `gorm:"type:uuid;not null" json:"createdBy"`
	StartDate   *time.Time    `json:"startDate,omitempty"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
}

type DigitalAudit struct {
	Base
	ClientCompanyID string         `gorm:"type:uuid;not null;index" json:"clientCompanyId" validate:"required"`
	Title           string         `gorm:"not null" json:"title" validate:"required,min=2"`
	Status          AuditStatus    `gorm:"not null;default:'draft'" json:"status" validate:"omitempty,audit_status"`
	Score           *int           `json:"score,omitempty" validate:"omitempty,min=0,max=100"`
	Findings        datatypes.JSON `gorm:"type:jsonb" json:"findings,omitempty"`
	CreatedBy       string         `gorm:"type:uuid;not null" json:"createdBy"`
	PublishedAt     *time.Time     `json:"publishedAt,omitempty"`
}

type AccessRequest struct {
	Base
	RequesterEmail string              `gorm:"not null;index" json:"requesterEmail"`
	RequesterName  string              `gorm:"not null" json:"requesterName"`
	RequestedRole  Role                `gorm:"not null" json:"requestedRole"`
	CompanyID      *string             `gorm:"type:uuid;default:NULL" json:"companyId,omitempty"`
	Message        string              `json:"message,omitempty"`
	Status         AccessRequestStatus `gorm:"not null;default:'pending';index" json:"status"`
	InvitedBy      *string             `gorm:"type:uuid;default:NULL" json:"invitedBy,omitempty"`
	ReviewedBy     *string             `gorm:"type:uuid;default:NULL" json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time          `json:"reviewedAt,omitempty"`
	CreatedUserID  *string             `gorm:"type:uuid;default:NULL" json:"createdUserId,omitempty"`
}

// ActivityLog is append-only; its ID is a ULID so rows sort by time.
type ActivityLog struct {
	ID           string         `gorm:"primaryKey;size:26" json:"id"`
	ActorUserID  string         `gorm:"type:uuid;not null;index" json:"actorUserId"`
	Action       string         `gorm:"not null" json:"action"`
	ResourceType string         `json:"resourceType,omitempty"`
	ResourceID   string         `json:"resourceId,omitempty"`
	Metadata     datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"createdAt"`
}

type File struct {
	Base
	CompanyID  string `gorm:"type:uuid;not null;index" json:"companyId"`
	UploadedBy string `gorm:"type:uuid;not null" json:"uploadedBy"`
	Path       string `gorm:"not null" json:"path"`
	Name       string `gorm:"not null" json:"name"`
	Size       int64  `gorm:"not null" json:"size"`
	Type       string `gorm:"not null" json:"type"`
	Kind       string `gorm:"not null;default:'asset'" json:"kind"`
	SignedURL  string `gorm:"-" json:"signedUrl,omitempty"` // Virtual field
}

func (f *File) AfterFind(tx *gorm.DB) error {
	return f.Sign(tx.Statement.Context)
}

// Sign fills SignedURL from the registered generator, if any.
func (f *File) Sign(ctx context.Context) error {
	registryMu.RLock()
	generator := urlGenerator
	registryMu.RUnlock()

	if generator != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		// Generate URL with 1-hour expiry
		url, err := generator.GetSignedURL(ctx, f.Path, time.Hour)
		if err != nil {
			return fmt.Errorf("failed to generate signed URL: %w", err)
		}
		f.SignedURL = url
	}
	return nil
}

type PasswordReset struct {
	Base
	UserID    string    `gorm:"type:uuid;not null;index" json:"userId"`
	User      *User     `json:"user,omitempty"`
	CodeHash  string    `gorm:"not null;uniqueIndex" json:"-"`
	Used      bool      `gorm:"default:false" json:"used"`
	Purpose   string    `gorm:"not null;default:'reset'" json:"purpose"`
	ExpiresAt time.Time `json:"expiresAt"`
}
