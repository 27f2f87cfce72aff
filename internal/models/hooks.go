package models

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewActivityID returns a time-ordered identifier for an activity entry.
func NewActivityID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Prepare fills the ID and timestamp of a new activity entry.
func (a *ActivityLog) Prepare() {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.ID == "" {
		a.ID = NewActivityID(a.CreatedAt)
	}
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	a.Prepare()
	return nil
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

func (r *AccessRequest) BeforeSave(tx *gorm.DB) error {
	r.RequesterEmail = NormalizeEmail(r.RequesterEmail)
	return nil
}
