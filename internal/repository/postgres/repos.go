package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portal/internal/models"
	"portal/internal/repository"
)

type userRepo struct{ base[models.User] }

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	return r.create(ctx, user)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.get(ctx, id, "Company")
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Company").
		First(&user, "email = ?", models.NormalizeEmail(email)).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) ListByCompany(ctx context.Context, companyID string) ([]models.User, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("company_id = ?", companyID).Order("created_at asc")
	})
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	return r.update(ctx, user.ID, user)
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateColumns(ctx, id, map[string]any{"password": passwordHash})
}

func (r *userRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{"last_login": at})
}

func (r *userRepo) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&n).Error
	return n, translate(err)
}

type companyRepo struct{ base[models.Company] }

func (r *companyRepo) Create(ctx context.Context, company *models.Company) error {
	return r.create(ctx, company)
}

func (r *companyRepo) GetByID(ctx context.Context, id string) (*models.Company, error) {
	return r.get(ctx, id)
}

func (r *companyRepo) ListByType(ctx context.Context, companyType models.CompanyType) ([]models.Company, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		if companyType != "" {
			q = q.Where("type = ?", companyType)
		}
		return q.Order("name asc")
	})
}

func (r *companyRepo) Update(ctx context.Context, company *models.Company) error {
	return r.update(ctx, company.ID, company)
}

type projectRepo struct{ base[models.Project] }

func (r *projectRepo) Create(ctx context.Context, project *models.Project) error {
	return r.create(ctx, project)
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	return r.get(ctx, id, "Company")
}

func (r *projectRepo) List(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		if filter.CompanyID != "" {
			q = q.Where("company_id = ?", filter.CompanyID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q.Order("created_at desc")
	}, "Company")
}

type auditRepo struct{ base[models.DigitalAudit] }

func (r *auditRepo) Create(ctx context.Context, audit *models.DigitalAudit) error {
	return r.create(ctx, audit)
}

// ListByClients returns audits for the given companies; nil means all.
func (r *auditRepo) ListByClients(ctx context.Context, companyIDs []string) ([]models.DigitalAudit, error) {
	if companyIDs != nil && len(companyIDs) == 0 {
		return []models.DigitalAudit{}, nil
	}
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		if companyIDs != nil {
			q = q.Where("client_company_id IN ?", companyIDs)
		}
		return q.Order("created_at desc")
	})
}

type accessRequestRepo struct{ base[models.AccessRequest] }

func (r *accessRequestRepo) Create(ctx context.Context, req *models.AccessRequest) error {
	if req.Status == "" {
		req.Status = models.AccessRequestPending
	}
	return r.create(ctx, req)
}

func (r *accessRequestRepo) GetByID(ctx context.Context, id string) (*models.AccessRequest, error) {
	return r.get(ctx, id)
}

func (r *accessRequestRepo) ListByStatus(ctx context.Context, status models.AccessRequestStatus) ([]models.AccessRequest, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q.Order("created_at desc")
	})
}

// Review applies the transition as a conditional update guarded by
// status = 'pending'. The user insert shares the transaction, so a
// duplicate e-mail rolls the status change back.
func (r *accessRequestRepo) Review(ctx context.Context, id string, review repository.Review, newUser *models.User) (*models.AccessRequest, error) {
	var reviewed models.AccessRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		columns := map[string]any{
			"status":      review.Status,
			"reviewed_by": review.ReviewedBy,
			"reviewed_at": review.ReviewedAt,
		}
		if newUser != nil {
			newUser.EnsureID()
			columns["created_user_id"] = newUser.ID
		}

		res := tx.Model(&models.AccessRequest{}).
			Where("id = ? AND status = ?", id, models.AccessRequestPending).
			Updates(columns)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.AccessRequest{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return repository.ErrNotFound
			}
			return repository.ErrNotPending
		}

		if newUser != nil {
			if err := tx.Omit(clause.Associations).Create(newUser).Error; err != nil {
				return err
			}
		}
		return tx.First(&reviewed, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &reviewed, nil
}

type activityRepo struct{ db *gorm.DB }

func (r *activityRepo) Append(ctx context.Context, entry *models.ActivityLog) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *activityRepo) List(ctx context.Context, filter repository.ActivityFilter) ([]models.ActivityLog, error) {
	entries := []models.ActivityLog{}
	q := r.db.WithContext(ctx).Order("id desc")
	if filter.ActorUserID != "" {
		q = q.Where("actor_user_id = ?", filter.ActorUserID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, translate(err)
	}
	return entries, nil
}

type fileRepo struct{ base[models.File] }

func (r *fileRepo) Create(ctx context.Context, file *models.File) error {
	return r.create(ctx, file)
}

func (r *fileRepo) ListByCompany(ctx context.Context, companyID string) ([]models.File, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("company_id = ?", companyID).Order("created_at desc")
	})
}

type resetRepo struct{ db *gorm.DB }

func (r *resetRepo) Create(ctx context.Context, reset *models.PasswordReset) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(reset).Error)
}

func (r *resetRepo) Consume(ctx context.Context, codeHash string, now time.Time) (*models.PasswordReset, error) {
	var reset models.PasswordReset
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code_hash = ? AND used = ? AND expires_at > ?", codeHash, false, now).
			First(&reset).Error; err != nil {
			return err
		}
		reset.Used = true
		return tx.Model(&reset).Update("used", true).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &reset, nil
}
