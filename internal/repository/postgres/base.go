// Package postgres implements the repository interfaces on gorm.
package postgres

import (
	"context"
	"errors"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portal/internal/models"
	"portal/internal/repository"
)

// NewStore builds every repository on one gorm handle. The handle should be
// opened with TranslateError so unique violations surface as ErrDuplicate.
func NewStore(db *gorm.DB) *repository.Store {
	return &repository.Store{
		Users:          &userRepo{base[models.User]{db}},
		Companies:      &companyRepo{base[models.Company]{db}},
		Projects:       &projectRepo{base[models.Project]{db}},
		Audits:         &auditRepo{base[models.DigitalAudit]{db}},
		AccessRequests: &accessRequestRepo{base[models.AccessRequest]{db}},
		Activity:       &activityRepo{db},
		Files:          &fileRepo{base[models.File]{db}},
		PasswordResets: &resetRepo{db},
	}
}

// GormTableName resolves the table gorm uses for v.
func GormTableName(db *gorm.DB, v any) string {
	return db.NamingStrategy.TableName(reflect.TypeOf(v).Name())
}

// base carries the CRUD shared by every entity table.
type base[T any] struct {
	db *gorm.DB
}

// applyIncludes adds preload statements to the query for each include
func (b base[T]) applyIncludes(query *gorm.DB, includes ...string) *gorm.DB {
	for _, include := range includes {
		query = query.Preload(include)
	}
	return query
}

func (b base[T]) create(ctx context.Context, entity *T) error {
	return translate(b.db.WithContext(ctx).Omit(clause.Associations).Create(entity).Error)
}

func (b base[T]) get(ctx context.Context, id string, includes ...string) (*T, error) {
	var entity T
	query := b.applyIncludes(b.db.WithContext(ctx), includes...)
	if err := query.First(&entity, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &entity, nil
}

func (b base[T]) find(ctx context.Context, scope func(*gorm.DB) *gorm.DB, includes ...string) ([]T, error) {
	entities := []T{}
	query := b.applyIncludes(b.db.WithContext(ctx), includes...)
	if scope != nil {
		query = scope(query)
	}
	if err := query.Find(&entities).Error; err != nil {
		return nil, translate(err)
	}
	return entities, nil
}

// update writes every column of entity, zero values included, and reports
// ErrNotFound when no row carries its id.
func (b base[T]) update(ctx context.Context, id string, entity *T) error {
	res := b.db.WithContext(ctx).Model(entity).
		Where("id = ?", id).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(entity)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (b base[T]) updateColumns(ctx context.Context, id string, columns map[string]any) error {
	var model T
	res := b.db.WithContext(ctx).Model(&model).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	default:
		return err
	}
}
