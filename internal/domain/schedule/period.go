package schedule

import (
	"time"

	"landten/internal/domain/clock"
	"landten/internal/domain/money"

	"github.com/shopspring/decimal"
)

// Period is one billing window derived from a schedule.
// Start is inclusive, End exclusive.
type Period struct {
	Start     time.Time
	End       time.Time
	DueDate   time.Time
	WindowEnd time.Time
	Amount    decimal.Decimal
	Prorated  bool
}

// ClampDay returns day-of-month `day` in the given month, falling back to the
// month's last day when the month is shorter (31 in February gives the 28th or 29th).
func ClampDay(year int, month time.Month, day int) time.Time {
	if day < 1 {
		day = 1
	}
	last := clock.Date(year, month+1, 1).AddDate(0, 0, -1).Day()
	if day > last {
		day = last
	}
	return clock.Date(year, month, day)
}

// PeriodsThrough lists every period whose start is on or before asOf.
// Periods are calendar aligned: the first natural period begins on the first of the
// start date's month and each one spans Frequency.Months() months. A start date after
// that first day yields a prorated first period.
func (s *Schedule) PeriodsThrough(asOf time.Time) []Period {
	months := s.Frequency.Months()
	if !s.IsActive || months == 0 {
		return nil
	}
	start := clock.DateOf(s.StartDate)
	asOf = clock.DateOf(asOf)
	natural := clock.Date(start.Year(), start.Month(), 1)

	var out []Period
	for i := 0; ; i++ {
		pStart := natural.AddDate(0, i*months, 0)
		pEnd := natural.AddDate(0, (i+1)*months, 0)
		covered := pStart
		if i == 0 {
			covered = start
		}
		if covered.After(asOf) {
			break
		}
		out = append(out, s.period(pStart, pEnd, covered))
	}
	return out
}

func (s *Schedule) period(natural, end, covered time.Time) Period {
	due := ClampDay(natural.Year(), natural.Month(), s.DueDay)
	p := Period{Start: covered, End: end, Amount: money.Round(s.Amount, s.Currency)}
	if covered.After(natural) {
		p.Prorated = true
		p.Amount = Prorate(s.Amount, s.Currency, natural, end, covered)
		if due.Before(covered) {
			due = covered
		}
	}
	p.DueDate = due
	p.WindowEnd = due.AddDate(0, 0, s.GraceDays)
	return p
}

// Prorate scales amount by the share of [periodStart, periodEnd) covered from `from`,
// rounded to the currency's minor unit.
func Prorate(amount decimal.Decimal, currency string, periodStart, periodEnd, from time.Time) decimal.Decimal {
	total := clock.DaysBetween(periodStart, periodEnd)
	covered := clock.DaysBetween(from, periodEnd)
	if total <= 0 || covered >= total {
		return money.Round(amount, currency)
	}
	if covered <= 0 {
		return decimal.Zero
	}
	share := amount.Mul(decimal.NewFromInt(int64(covered))).Div(decimal.NewFromInt(int64(total)))
	return money.Round(share, currency)
}
