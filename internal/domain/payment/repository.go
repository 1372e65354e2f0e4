package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows a payment listing. Zero values mean "any".
type Filter struct {
	LandlordID uuid.UUID
	TenantID   uuid.UUID
	Statuses   []Status
	DueFrom    time.Time
	DueTo      time.Time
	Limit      int
	Offset     int
}

// Repository persists payments. Payments are never deleted.
type Repository interface {
	// CreateIfAbsent inserts a generated payment unless one already exists for
	// (schedule_id, period_start). It reports whether a row was created.
	CreateIfAbsent(ctx context.Context, p *Payment) (bool, error)
	// Create inserts a manual payment.
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	List(ctx context.Context, f Filter) ([]*Payment, error)
	ListByStatus(ctx context.Context, statuses []Status) ([]*Payment, error)
	// Mutate locks the payment row, hands the current stored state to fn and
	// persists the result in the same transaction. If fn fails nothing is written.
	Mutate(ctx context.Context, id uuid.UUID, fn func(p *Payment) error) (*Payment, error)
}
