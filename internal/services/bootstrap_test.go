package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/config"
	"portal/internal/models"
	"portal/internal/repository/memory"
)

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cfg := config.BootstrapConfig{
		OwnerEmail:    "boss@agency.io",
		OwnerPassword: "changeme",
		OwnerName:     "Pat Boss",
		AgencyName:    "Acme Agency",
	}

	require.NoError(t, Bootstrap(ctx, store, cfg))
	require.NoError(t, Bootstrap(ctx, store, cfg), "second run is a no-op")

	owners, err := store.Companies.ListByType(ctx, models.CompanyTypeOwner)
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, "Acme Agency", owners[0].Name)

	owner, err := store.Users.GetByEmail(ctx, "boss@agency.io")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, owner.Role)
	assert.Equal(t, owners[0].ID, owner.CompanyRef())
	assert.Equal(t, "Pat", owner.FirstName)
	assert.True(t, checkPassword(owner.Password, "changeme"))
}

func TestBootstrap_ShortPasswordSkipsOwner(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, Bootstrap(ctx, store, config.BootstrapConfig{OwnerEmail: "boss@agency.io", OwnerPassword: "123"}))

	owners, err := store.Companies.ListByType(ctx, models.CompanyTypeOwner)
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, "Agency", owners[0].Name)

	_, err = store.Users.GetByEmail(ctx, "boss@agency.io")
	assert.Error(t, err)
}
