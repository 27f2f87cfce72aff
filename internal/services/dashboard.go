package services

import (
	"context"

	"portal/internal/models"
	"portal/internal/repository"
)

type DashboardStats struct {
	ActiveProjects   int `json:"activeProjects"`
	CompletedAudits  int `json:"completedAudits"`
	ActiveClients    int `json:"activeClients"`
	PendingApprovals int `json:"pendingApprovals"`
}

type DashboardService struct {
	store    *repository.Store
	projects *ProjectService
	audits   *AuditService
}

func NewDashboardService(store *repository.Store, projects *ProjectService, audits *AuditService) *DashboardService {
	return &DashboardService{store: store, projects: projects, audits: audits}
}

// Stats aggregates across all client companies for agency admins and over
// the caller's own company otherwise.
func (s *DashboardService) Stats(ctx context.Context, actor *models.User) (*DashboardStats, error) {
	stats := &DashboardStats{}

	projects, err := s.projects.List(ctx, actor, models.ProjectStatusActive)
	if err != nil {
		return nil, err
	}
	stats.ActiveProjects = len(projects)

	audits, err := s.audits.List(ctx, actor, "")
	if err != nil {
		return nil, err
	}
	for _, a := range audits {
		if a.Status == models.AuditStatusPublished {
			stats.CompletedAudits++
		}
	}

	if !actor.Role.IsAgencyAdmin() {
		if actor.CompanyRef() != "" {
			stats.ActiveClients = 1
		}
		return stats, nil
	}

	clients, err := s.store.Companies.ListByType(ctx, models.CompanyTypeClient)
	if err != nil {
		return nil, storeErr(err, "company")
	}
	stats.ActiveClients = len(clients)

	pending, err := s.store.AccessRequests.ListByStatus(ctx, models.AccessRequestPending)
	if err != nil {
		return nil, storeErr(err, "access request")
	}
	stats.PendingApprovals = len(pending)
	return stats, nil
}
