package schedule

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists schedules. Schedules are deactivated, never deleted.
type Repository interface {
	Create(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	GetActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*Schedule, error)
	// Replace deactivates the tenant's active schedule (if any) and stores s in one transaction.
	Replace(ctx context.Context, s *Schedule) error
	// ListActive returns active schedules of active tenants.
	ListActive(ctx context.Context) ([]*Schedule, error)
}
