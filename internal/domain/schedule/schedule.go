package schedule

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("schedule: not found")
	ErrAlreadyActive = errors.New("schedule: tenant already has an active schedule")
)

// Frequency is how often a schedule bills.
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyBiMonthly Frequency = "bi_monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// Months is the period length, or 0 for an unknown frequency.
func (f Frequency) Months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyBiMonthly:
		return 2
	case FrequencyQuarterly:
		return 3
	default:
		return 0
	}
}

func (f Frequency) Valid() bool { return f.Months() > 0 }

// Bounds for DueDay accepted on a schedule.
const (
	MinDueDay = 1
	MaxDueDay = 28
)

// Schedule is the recurring rent configuration of one tenant.
type Schedule struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Amount    decimal.Decimal
	Currency  string
	Frequency Frequency
	DueDay    int
	GraceDays int
	StartDate time.Time
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
