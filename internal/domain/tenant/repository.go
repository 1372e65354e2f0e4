package tenant

import (
	"context"
	"time"

	"landten/internal/domain/schedule"

	"github.com/google/uuid"
)

// Filter narrows a tenant listing for one landlord.
type Filter struct {
	LandlordID uuid.UUID
	PropertyID uuid.UUID
	ActiveOnly bool
}

type Repository interface {
	// Onboard stores t, marks its room occupied and stores s when non-nil, atomically.
	// Returns ErrRoomOccupied when the room already has an active tenant.
	Onboard(ctx context.Context, t *Tenant, s *schedule.Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetByEmail(ctx context.Context, email string) (*Tenant, error)
	// GetByTelegramChatID finds the active tenant linked to a Telegram chat.
	GetByTelegramChatID(ctx context.Context, chatID int64) (*Tenant, error)
	GetPlacement(ctx context.Context, id uuid.UUID) (*Placement, error)
	List(ctx context.Context, f Filter) ([]*Placement, error)
	Update(ctx context.Context, t *Tenant) error
	// MoveOut deactivates the tenant and their schedule and frees the room, atomically.
	MoveOut(ctx context.Context, id uuid.UUID, moveOut time.Time) (*Tenant, error)
}
