package property

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("property: not found")
	ErrRoomNotFound = errors.New("property: room not found")
	ErrInUse        = errors.New("property: has occupied rooms")
)

type Property struct {
	ID          uuid.UUID
	LandlordID  uuid.UUID
	Name        string
	Address     string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Room struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	Name       string
	RentAmount decimal.Decimal
	Currency   string
	IsOccupied bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
