package app

import (
	"context"

	"landten/internal/domain/clock"
	"landten/internal/domain/identity"
	"landten/internal/domain/landlord"
	"landten/internal/domain/money"
	"landten/internal/domain/payment"
	"landten/internal/domain/property"
	"landten/internal/domain/tenant"

	"github.com/shopspring/decimal"
)

// Dashboard is the landlord's month at a glance, in their primary currency.
type Dashboard struct {
	Currency       string
	Month          string
	Expected       decimal.Decimal
	Received       decimal.Decimal
	Outstanding    decimal.Decimal
	CollectionRate decimal.Decimal // percent, one decimal place
	OverdueCount   int
	OverdueAmount  decimal.Decimal
	RoomsTotal     int
	RoomsOccupied  int
	ActiveTenants  int
}

type AnalyticsService struct {
	paymentRepo  payment.Repository
	propertyRepo property.Repository
	tenantRepo   tenant.Repository
	landlordRepo landlord.Repository
	clock        clock.Clock
}

func NewAnalyticsService(pr payment.Repository, prop property.Repository, tr tenant.Repository, lr landlord.Repository) *AnalyticsService {
	return &AnalyticsService{
		paymentRepo:  pr,
		propertyRepo: prop,
		tenantRepo:   tr,
		landlordRepo: lr,
		clock:        clock.Real{},
	}
}

func (s *AnalyticsService) WithClock(c clock.Clock) *AnalyticsService {
	s.clock = c
	return s
}

// Dashboard covers payments due in the current calendar month. Overdue figures
// include every open overdue payment regardless of month. Waived payments are
// not expected.
func (s *AnalyticsService) Dashboard(ctx context.Context, who identity.Principal) (*Dashboard, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	l, err := s.landlordRepo.GetByID(ctx, who.ID)
	if err != nil {
		return nil, err
	}
	today := clock.Today(s.clock)
	monthStart := clock.Date(today.Year(), today.Month(), 1)
	monthEnd := monthStart.AddDate(0, 1, -1)

	d := &Dashboard{
		Currency:       l.PrimaryCurrency,
		Month:          monthStart.Format("2006-01"),
		Expected:       decimal.Zero,
		Received:       decimal.Zero,
		Outstanding:    decimal.Zero,
		CollectionRate: decimal.Zero,
		OverdueAmount:  decimal.Zero,
	}

	month, err := s.paymentRepo.List(ctx, payment.Filter{LandlordID: who.ID, DueFrom: monthStart, DueTo: monthEnd})
	if err != nil {
		return nil, err
	}
	for _, p := range month {
		if p.Status == payment.StatusWaived {
			continue
		}
		amount := money.Convert(p.AmountDue, p.Currency, l.PrimaryCurrency)
		d.Expected = d.Expected.Add(amount)
		if p.Status.IsPaid() {
			d.Received = d.Received.Add(amount)
		}
	}
	d.Outstanding = d.Expected.Sub(d.Received)
	if d.Expected.IsPositive() {
		d.CollectionRate = d.Received.Div(d.Expected).Mul(decimal.NewFromInt(100)).Round(1)
	}

	overdue, err := s.paymentRepo.List(ctx, payment.Filter{LandlordID: who.ID, Statuses: []payment.Status{payment.StatusOverdue}})
	if err != nil {
		return nil, err
	}
	for _, p := range overdue {
		d.OverdueCount++
		d.OverdueAmount = d.OverdueAmount.Add(money.Convert(p.AmountDue, p.Currency, l.PrimaryCurrency))
	}

	rooms, err := s.propertyRepo.ListRoomsByLandlord(ctx, who.ID)
	if err != nil {
		return nil, err
	}
	d.RoomsTotal = len(rooms)
	for _, r := range rooms {
		if r.IsOccupied {
			d.RoomsOccupied++
		}
	}

	tenants, err := s.tenantRepo.List(ctx, tenant.Filter{LandlordID: who.ID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	d.ActiveTenants = len(tenants)
	return d, nil
}
