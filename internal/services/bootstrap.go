package services

import (
	"context"
	"errors"

	"portal/internal/config"
	"portal/internal/models"
	"portal/internal/repository"
	"portal/internal/utils/logger"
)

// Bootstrap creates the agency owner company and the first owner account
// when they are missing. It is safe to run on every start.
func Bootstrap(ctx context.Context, store *repository.Store, cfg config.BootstrapConfig) error {
	log := logger.New("bootstrap")

	owners, err := store.Companies.ListByType(ctx, models.CompanyTypeOwner)
	if err != nil {
		return log.Error("failed to look up owner company", err)
	}
	var agency *models.Company
	if len(owners) > 0 {
		agency = &owners[0]
	} else {
		agency = &models.Company{Name: cfg.AgencyName, Type: models.CompanyTypeOwner}
		if agency.Name == "" {
			agency.Name = "Agency"
		}
		if err := store.Companies.Create(ctx, agency); err != nil {
			return log.Error("failed to create owner company", err)
		}
		log.Success("Created owner company %q", agency.Name)
	}

	if cfg.OwnerEmail == "" {
		return nil
	}
	_, err = store.Users.GetByEmail(ctx, cfg.OwnerEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return log.Error("failed to look up owner account", err)
	}
	if len(cfg.OwnerPassword) < MinPasswordLength {
		log.Warn("BOOTSTRAP_OWNER_PASSWORD is missing or too short, skipping owner account")
		return nil
	}

	hash, err := HashPassword(cfg.OwnerPassword)
	if err != nil {
		return err
	}
	first, last := models.SplitName(cfg.OwnerName)
	owner := &models.User{
		Email:     cfg.OwnerEmail,
		Password:  hash,
		FirstName: first,
		LastName:  last,
		Role:      models.RoleOwner,
		CompanyID: models.StringPtr(agency.ID),
		IsActive:  true,
	}
	if err := store.Users.Create(ctx, owner); err != nil {
		return log.Error("failed to create owner account", err)
	}
	log.Success("Created owner account %s", owner.Email)
	return nil
}
