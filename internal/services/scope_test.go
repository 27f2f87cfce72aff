package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/models"
)

func TestCompanyVisible(t *testing.T) {
	c1 := "c1"
	for _, role := range models.AllRoles {
		user := &models.User{Role: role, CompanyID: &c1}
		admin := role == models.RoleOwner || role == models.RoleAdmin

		assert.True(t, CompanyVisible(user, "c1"), "%s sees own company", role)
		assert.Equal(t, admin, CompanyVisible(user, "c2"), "%s and other company", role)
	}

	assert.False(t, CompanyVisible(nil, "c1"))
	assert.False(t, CompanyVisible(&models.User{Role: models.RoleClientViewer}, ""), "onboarding users match nothing")
}

func TestAccessScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ok, err := f.scope.CanAccessCompany(ctx, f.viewer.ID, f.c1.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.scope.CanAccessCompany(ctx, f.viewer.ID, f.c2.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.scope.CanAccessCompany(ctx, f.owner.ID, f.c2.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.scope.CanAccessCompany(ctx, "unknown", f.c1.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	own := &models.Project{Name: "Own", CompanyID: f.c1.ID, CreatedBy: f.owner.ID}
	other := &models.Project{Name: "Other", CompanyID: f.c2.ID, CreatedBy: f.owner.ID}
	require.NoError(t, f.store.Projects.Create(ctx, own))
	require.NoError(t, f.store.Projects.Create(ctx, other))

	ok, err = f.scope.CanAccessProject(ctx, f.viewer.ID, own.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.scope.CanAccessProject(ctx, f.viewer.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.scope.CanAccessProject(ctx, f.viewer.ID, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.scope.CanAccessProject(ctx, f.owner.ID, other.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}
