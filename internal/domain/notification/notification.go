package notification

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification: not found")

// Notification is a landlord-facing event record. Only the read flag ever changes.
type Notification struct {
	ID         uuid.UUID
	LandlordID uuid.UUID
	Type       Type
	Title      string
	Message    string
	IsRead     bool
	TenantID   uuid.NullUUID
	PaymentID  uuid.NullUUID
	// DedupeKey makes repeated emission of the same logical event a no-op. Empty disables it.
	DedupeKey string
	CreatedAt time.Time
}

// PaymentDedupeKey identifies one status change of one payment.
func PaymentDedupeKey(paymentID uuid.UUID, t Type, statusChangedAt time.Time) string {
	return fmt.Sprintf("payment:%s:%s:%d", paymentID, t, statusChangedAt.UnixNano())
}

// TenantDedupeKey identifies a one-off tenant event.
func TenantDedupeKey(tenantID uuid.UUID, t Type) string {
	return fmt.Sprintf("tenant:%s:%s", tenantID, t)
}
