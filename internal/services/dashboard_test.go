package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/models"
)

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.projects.Create(ctx, f.owner, ProjectInput{Name: "Active one", CompanyID: f.c1.ID})
	require.NoError(t, err)
	_, err = f.projects.Create(ctx, f.owner, ProjectInput{Name: "Active two", CompanyID: f.c2.ID})
	require.NoError(t, err)
	_, err = f.projects.Create(ctx, f.owner, ProjectInput{Name: "Done", CompanyID: f.c1.ID, Status: models.ProjectStatusCompleted})
	require.NoError(t, err)
	_, err = f.audits.Create(ctx, f.owner, AuditInput{ClientCompanyID: f.c1.ID, Title: "Published", Status: models.AuditStatusPublished})
	require.NoError(t, err)
	_, err = f.audits.Create(ctx, f.owner, AuditInput{ClientCompanyID: f.c2.ID, Title: "Draft"})
	require.NoError(t, err)
	submit(t, f, "pending@unitslab.io")

	admin, err := f.dashboard.Stats(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, DashboardStats{ActiveProjects: 2, CompletedAudits: 1, ActiveClients: 2, PendingApprovals: 1}, *admin)

	viewer, err := f.dashboard.Stats(ctx, f.viewer)
	require.NoError(t, err)
	assert.Equal(t, DashboardStats{ActiveProjects: 1, CompletedAudits: 1, ActiveClients: 1, PendingApprovals: 0}, *viewer)
}

func TestDashboardStats_NoCompany(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.projects.Create(ctx, f.owner, ProjectInput{Name: "Active one", CompanyID: f.c1.ID})
	require.NoError(t, err)
	_, err = f.audits.Create(ctx, f.owner, AuditInput{ClientCompanyID: f.c1.ID, Title: "Published", Status: models.AuditStatusPublished})
	require.NoError(t, err)

	onboarding := f.user(t, "new@example.com", models.RoleClientViewer, "")
	stats, err := f.dashboard.Stats(ctx, onboarding)
	require.NoError(t, err)
	assert.Equal(t, DashboardStats{}, *stats)
}
