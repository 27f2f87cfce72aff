package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"portal/internal/airtable"
	"portal/internal/cache"
	"portal/internal/models"
	"portal/internal/repository"
	"portal/internal/utils/logger"
)

// AnalyticsSource is the spreadsheet-backed data the portal reports on.
type AnalyticsSource interface {
	Companies(ctx context.Context) ([]airtable.Company, error)
	RenderingReports(ctx context.Context) ([]airtable.RenderingReport, error)
	CompetitiveAnalysis(ctx context.Context) ([]airtable.CompetitiveAnalysis, error)
	Brands(ctx context.Context) ([]airtable.Brand, error)
	News(ctx context.Context, brandID string) ([]airtable.NewsItem, error)
}

const (
	cacheKeyCompanies   = "airtable:companies"
	cacheKeyRendering   = "airtable:rendering"
	cacheKeyCompetitive = "airtable:competitive"
	cacheKeyBrands      = "airtable:brands"
	cacheKeyNews        = "airtable:news:"
)

var brandIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// AnalyticsService serves Airtable data through the cache. Agency admins
// see every row; other users only rows whose company name matches theirs.
type AnalyticsService struct {
	source AnalyticsSource
	cache  *cache.Cache
	ttl    time.Duration
	store  *repository.Store
	log    *logger.Logger
}

func NewAnalyticsService(source AnalyticsSource, c *cache.Cache, ttl time.Duration, store *repository.Store) *AnalyticsService {
	return &AnalyticsService{source: source, cache: c, ttl: ttl, store: store, log: logger.New("analytics")}
}

// Enabled reports whether an Airtable source is configured.
func (s *AnalyticsService) Enabled() bool {
	return s != nil && s.source != nil
}

func (s *AnalyticsService) Companies(ctx context.Context, actor *models.User) ([]airtable.Company, error) {
	rows, err := load(ctx, s, cacheKeyCompanies, s.source.Companies)
	if err != nil {
		return nil, err
	}
	return scoped(ctx, s, actor, rows, func(c airtable.Company) string { return c.Name })
}

// RenderingReports filters by company; non-admins always get their own.
func (s *AnalyticsService) RenderingReports(ctx context.Context, actor *models.User, company string) ([]airtable.RenderingReport, error) {
	rows, err := load(ctx, s, cacheKeyRendering, s.source.RenderingReports)
	if err != nil {
		return nil, err
	}
	name := func(r airtable.RenderingReport) string { return r.CompanyName }
	if actor.Role.IsAgencyAdmin() && company != "" {
		return filterRows(rows, company, name, airtable.MatchCompanyName), nil
	}
	return scoped(ctx, s, actor, rows, name)
}

func (s *AnalyticsService) CompetitiveAnalysis(ctx context.Context, actor *models.User) ([]airtable.CompetitiveAnalysis, error) {
	rows, err := load(ctx, s, cacheKeyCompetitive, s.source.CompetitiveAnalysis)
	if err != nil {
		return nil, err
	}
	return scoped(ctx, s, actor, rows, func(a airtable.CompetitiveAnalysis) string { return a.CompanyName })
}

func (s *AnalyticsService) Brands(ctx context.Context, actor *models.User) ([]airtable.Brand, error) {
	rows, err := load(ctx, s, cacheKeyBrands, s.source.Brands)
	if err != nil {
		return nil, err
	}
	return scoped(ctx, s, actor, rows, func(b airtable.Brand) string { return b.Name })
}

// News returns the latest scored articles. Non-admins may only ask for a
// brand matching their company and default to the first such brand.
func (s *AnalyticsService) News(ctx context.Context, actor *models.User, brandID string) ([]airtable.NewsItem, error) {
	if !s.Enabled() {
		return nil, errAnalyticsDisabled
	}
	if brandID != "" && !brandIDPattern.MatchString(brandID) {
		return nil, validationf("invalid brandId")
	}
	if !actor.Role.IsAgencyAdmin() {
		brands, err := s.Brands(ctx, actor)
		if err != nil {
			return nil, err
		}
		if len(brands) == 0 {
			return []airtable.NewsItem{}, nil
		}
		if brandID == "" {
			brandID = brands[0].ID
		} else if !containsBrand(brands, brandID) {
			return nil, ErrForbidden
		}
	}
	key := cacheKeyNews + brandID
	if brandID == "" {
		key += "all"
	}
	return load(ctx, s, key, func(ctx context.Context) ([]airtable.NewsItem, error) {
		return s.source.News(ctx, brandID)
	})
}

// Refresh reloads the shared tables into the cache.
func (s *AnalyticsService) Refresh(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return errors.Join(
		cache.Refresh(ctx, s.cache, cacheKeyCompanies, s.ttl, s.source.Companies),
		cache.Refresh(ctx, s.cache, cacheKeyRendering, s.ttl, s.source.RenderingReports),
		cache.Refresh(ctx, s.cache, cacheKeyCompetitive, s.ttl, s.source.CompetitiveAnalysis),
		cache.Refresh(ctx, s.cache, cacheKeyBrands, s.ttl, s.source.Brands),
		cache.Refresh(ctx, s.cache, cacheKeyNews+"all", s.ttl, func(ctx context.Context) ([]airtable.NewsItem, error) {
			return s.source.News(ctx, "")
		}),
	)
}

var errAnalyticsDisabled = fmt.Errorf("%w: analytics integration is not configured", ErrUpstream)

func load[T any](ctx context.Context, s *AnalyticsService, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if !s.Enabled() {
		return nil, errAnalyticsDisabled
	}
	rows, err := cache.Remember(ctx, s.cache, key, s.ttl, fetch)
	if err != nil {
		s.log.Warn("analytics load %s failed: %v", key, err)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

func scoped[T any](ctx context.Context, s *AnalyticsService, actor *models.User, rows []T, name func(T) string) ([]T, error) {
	if actor.Role.IsAgencyAdmin() {
		return rows, nil
	}
	if actor.CompanyID == nil {
		return []T{}, nil
	}
	company, err := s.store.Companies.GetByID(ctx, *actor.CompanyID)
	if errors.Is(err, repository.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, storeErr(err, "company")
	}
	return filterRows(rows, company.Name, name, airtable.SameCompany), nil
}

func filterRows[T any](rows []T, want string, name func(T) string, match func(got, want string) bool) []T {
	out := []T{}
	for _, r := range rows {
		if match(name(r), want) {
			out = append(out, r)
		}
	}
	return out
}

func containsBrand(brands []airtable.Brand, id string) bool {
	for _, b := range brands {
		if b.ID == id {
			return true
		}
	}
	return false
}
