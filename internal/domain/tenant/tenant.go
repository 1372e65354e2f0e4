package tenant

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("tenant: not found")
	ErrRoomOccupied = errors.New("tenant: room already has an active tenant")
	ErrDuplicate    = errors.New("tenant: email already registered")
	ErrInactive     = errors.New("tenant: tenant has moved out")
)

// Tenant occupies one room. Tenants are deactivated on move-out, never deleted.
type Tenant struct {
	ID             uuid.UUID
	RoomID         uuid.UUID
	Name           string
	Email          string
	Phone          string
	MoveInDate     time.Time
	MoveOutDate    sql.NullTime
	IsActive       bool
	Notes          string
	PasswordHash   sql.NullString // set once the tenant activates portal access
	TelegramChatID int64          // 0 when not linked
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Placement is a tenant together with where they live and who owns it.
type Placement struct {
	Tenant       *Tenant
	RoomName     string
	PropertyID   uuid.UUID
	PropertyName string
	LandlordID   uuid.UUID
}
