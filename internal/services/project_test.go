package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/models"
)

func TestProjects_Scoping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	own, err := f.projects.Create(ctx, f.owner, ProjectInput{Name: "Site refresh", CompanyID: f.c1.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusActive, own.Status)
	assert.Equal(t, f.owner.ID, own.CreatedBy)

	other, err := f.projects.Create(ctx, f.owner, ProjectInput{Name: "Launch", CompanyID: f.c2.ID})
	require.NoError(t, err)

	list, err := f.projects.List(ctx, f.viewer, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, own.ID, list[0].ID)

	all, err := f.projects.List(ctx, f.owner, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.projects.Get(ctx, f.viewer, other.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.projects.Get(ctx, f.viewer, "missing")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.projects.Get(ctx, f.owner, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.projects.Create(ctx, f.viewer, ProjectInput{Name: "Nope", CompanyID: f.c2.ID})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestProjects_ScopeReadsStoredUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	own, err := f.projects.Create(ctx, f.owner, ProjectInput{Name: "Site refresh", CompanyID: f.c1.ID})
	require.NoError(t, err)

	ghost := &models.User{Base: models.Base{ID: "ghost"}, Role: models.RoleClientEditor, CompanyID: &f.c1.ID, IsActive: true}
	_, err = f.projects.Get(ctx, ghost, own.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.projects.Create(ctx, ghost, ProjectInput{Name: "Nope", CompanyID: f.c1.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.projects.Get(ctx, f.viewer, own.ID)
	require.NoError(t, err)
	assert.Equal(t, own.ID, got.ID)
}

func TestProjects_Dates(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	due := start.Add(-24 * time.Hour)

	_, err := f.projects.Create(context.Background(), f.owner, ProjectInput{Name: "Backwards", CompanyID: f.c1.ID, StartDate: &start, DueDate: &due})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAudits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	score := 82
	published, err := f.audits.Create(ctx, f.owner, AuditInput{
		ClientCompanyID: f.c1.ID,
		Title:           "Q1 audit",
		Status:          models.AuditStatusPublished,
		Score:           &score,
		Findings:        json.RawMessage(`{"seo":["missing meta"]}`),
	})
	require.NoError(t, err)
	assert.NotNil(t, published.PublishedAt)

	draft, err := f.audits.Create(ctx, f.owner, AuditInput{ClientCompanyID: f.c2.ID, Title: "Draft audit"})
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusDraft, draft.Status)
	assert.Nil(t, draft.PublishedAt)

	_, err = f.audits.Create(ctx, f.owner, AuditInput{ClientCompanyID: f.c1.ID, Title: "Bad", Findings: json.RawMessage(`{`)})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.audits.Create(ctx, f.owner, AuditInput{ClientCompanyID: f.c1.ID, Title: "List", Findings: json.RawMessage(`["a"]`)})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.audits.Create(ctx, f.owner, AuditInput{ClientCompanyID: f.c1.ID, Title: "Null", Findings: json.RawMessage(`null`)})
	assert.ErrorIs(t, err, ErrValidation)

	mine, err := f.audits.List(ctx, f.viewer, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, published.ID, mine[0].ID)

	_, err = f.audits.List(ctx, f.viewer, f.c2.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := f.audits.List(ctx, f.owner, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
