package app

import (
	"context"

	"landten/internal/domain/identity"
	"landten/internal/domain/tenant"

	"github.com/google/uuid"
)

// authorizeTenant loads a tenant's placement and checks that who may see it:
// the landlord owning the property, or the tenant themself. Others get ErrNotFound
// so existence is not leaked.
func authorizeTenant(ctx context.Context, repo tenant.Repository, who identity.Principal, tenantID uuid.UUID) (*tenant.Placement, error) {
	pl, err := repo.GetPlacement(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	switch who.Role {
	case identity.RoleLandlord:
		if pl.LandlordID != who.ID {
			return nil, tenant.ErrNotFound
		}
	case identity.RoleTenant:
		if pl.Tenant.ID != who.ID {
			return nil, tenant.ErrNotFound
		}
	default:
		return nil, ErrForbidden
	}
	return pl, nil
}

func requireLandlord(who identity.Principal) error {
	if !who.IsLandlord() {
		return ErrForbidden
	}
	return nil
}

func requireTenant(who identity.Principal) error {
	if !who.IsTenant() {
		return ErrForbidden
	}
	return nil
}
