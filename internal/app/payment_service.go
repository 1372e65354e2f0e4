package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"landten/internal/domain/clock"
	"landten/internal/domain/identity"
	"landten/internal/domain/landlord"
	"landten/internal/domain/money"
	"landten/internal/domain/payment"
	"landten/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultPaymentLimit = 100
	maxPaymentLimit     = 500
	maxUpcomingDays     = 90
)

// PaymentService carries the landlord and tenant actions on payments.
type PaymentService struct {
	paymentRepo  payment.Repository
	tenantRepo   tenant.Repository
	landlordRepo landlord.Repository
	notifier     Notifier
	leadDays     int
	defaultGrace int
	clock        clock.Clock
	newID        func() uuid.UUID
	log          *logrus.Entry
}

func NewPaymentService(
	pr payment.Repository,
	tr tenant.Repository,
	lr landlord.Repository,
	notifier Notifier,
	leadDays, defaultGrace int,
	log *logrus.Entry,
) *PaymentService {
	return &PaymentService{
		paymentRepo:  pr,
		tenantRepo:   tr,
		landlordRepo: lr,
		notifier:     notifier,
		leadDays:     leadDays,
		defaultGrace: defaultGrace,
		clock:        clock.Real{},
		newID:        uuid.New,
		log:          log,
	}
}

func (s *PaymentService) WithClock(c clock.Clock) *PaymentService {
	s.clock = c
	return s
}

// ListInput filters a payment listing. Tenants only ever see their own payments.
type ListInput struct {
	TenantID uuid.UUID
	Statuses []payment.Status
	DueFrom  time.Time
	DueTo    time.Time
	Limit    int
	Offset   int
}

func (s *PaymentService) List(ctx context.Context, who identity.Principal, in ListInput) ([]*payment.Payment, error) {
	for _, st := range in.Statuses {
		if !st.Valid() {
			return nil, invalid("status", "unknown status %q", st)
		}
	}
	if in.Limit <= 0 {
		in.Limit = defaultPaymentLimit
	}
	if in.Limit > maxPaymentLimit {
		return nil, invalid("limit", "must be at most %d", maxPaymentLimit)
	}
	if in.Offset < 0 {
		return nil, invalid("offset", "must not be negative")
	}
	if !in.DueFrom.IsZero() && !in.DueTo.IsZero() && in.DueTo.Before(in.DueFrom) {
		return nil, invalid("due_to", "must not be before due_from")
	}
	f := payment.Filter{
		TenantID: in.TenantID,
		Statuses: in.Statuses,
		DueFrom:  in.DueFrom,
		DueTo:    in.DueTo,
		Limit:    in.Limit,
		Offset:   in.Offset,
	}
	switch who.Role {
	case identity.RoleLandlord:
		f.LandlordID = who.ID
	case identity.RoleTenant:
		f.TenantID = who.ID
	default:
		return nil, ErrForbidden
	}
	return s.paymentRepo.List(ctx, f)
}

// Get returns one payment visible to who.
func (s *PaymentService) Get(ctx context.Context, who identity.Principal, id uuid.UUID) (*payment.Payment, error) {
	p, _, err := s.authorize(ctx, who, id)
	return p, err
}

// Upcoming lists open payments of the landlord due within the next `days` days.
func (s *PaymentService) Upcoming(ctx context.Context, who identity.Principal, days int) ([]*payment.Payment, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	if days < 1 || days > maxUpcomingDays {
		return nil, invalid("days", "must be between 1 and %d", maxUpcomingDays)
	}
	today := clock.Today(s.clock)
	return s.paymentRepo.List(ctx, payment.Filter{
		LandlordID: who.ID,
		Statuses:   []payment.Status{payment.StatusUpcoming, payment.StatusPending},
		DueFrom:    today,
		DueTo:      today.AddDate(0, 0, days),
		Limit:      maxPaymentLimit,
	})
}

func (s *PaymentService) Overdue(ctx context.Context, who identity.Principal) ([]*payment.Payment, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	return s.paymentRepo.List(ctx, payment.Filter{
		LandlordID: who.ID,
		Statuses:   []payment.Status{payment.StatusOverdue},
		Limit:      maxPaymentLimit,
	})
}

// MarkPaidInput records a settled payment. PaidDate defaults to today.
type MarkPaidInput struct {
	PaidDate  time.Time
	Reference string
}

// MarkPaid settles a payment, on time when paid within its grace window.
func (s *PaymentService) MarkPaid(ctx context.Context, who identity.Principal, id uuid.UUID, in MarkPaidInput) (*payment.Payment, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Reference) == "" {
		return nil, invalid("reference", "is required")
	}
	today := clock.Today(s.clock)
	paidDate := today
	if !in.PaidDate.IsZero() {
		paidDate = clock.DateOf(in.PaidDate)
	}
	if paidDate.After(today) {
		return nil, invalid("paid_date", "must not be in the future")
	}
	if _, _, err := s.authorize(ctx, who, id); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	p, err := s.paymentRepo.Mutate(ctx, id, func(p *payment.Payment) error {
		return p.MarkPaid(paidDate, in.Reference, now)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"payment_id": p.ID, "status": p.Status}).Info("Payment marked as paid")
	s.notify(ctx, p)
	return p, nil
}

// Waive forgives a payment. A reason is required.
func (s *PaymentService) Waive(ctx context.Context, who identity.Principal, id uuid.UUID, reason string) (*payment.Payment, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, invalid("reason", "is required")
	}
	if _, _, err := s.authorize(ctx, who, id); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	p, err := s.paymentRepo.Mutate(ctx, id, func(p *payment.Payment) error {
		return p.Waive(reason, now)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("payment_id", p.ID).Info("Payment waived")
	return p, nil
}

// ManualInput creates a one-off payment outside any schedule.
// The period defaults to one month starting at the due date.
type ManualInput struct {
	TenantID    uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	DueDate     time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
	Notes       string
}

func (s *PaymentService) CreateManual(ctx context.Context, who identity.Principal, in ManualInput) (*payment.Payment, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, invalid("amount", "must be greater than zero")
	}
	if in.DueDate.IsZero() {
		return nil, invalid("due_date", "is required")
	}
	due := clock.DateOf(in.DueDate)
	start, end := due, due.AddDate(0, 1, 0)
	if !in.PeriodStart.IsZero() {
		start = clock.DateOf(in.PeriodStart)
	}
	if !in.PeriodEnd.IsZero() {
		end = clock.DateOf(in.PeriodEnd)
	}
	if !end.After(start) {
		return nil, invalid("period_end", "must be after period_start")
	}
	currency := money.Normalize(in.Currency)
	if currency != "" && !money.IsValid(currency) {
		return nil, invalid("currency", "unsupported currency %q", in.Currency)
	}

	pl, err := authorizeTenant(ctx, s.tenantRepo, who, in.TenantID)
	if err != nil {
		return nil, err
	}
	if !pl.Tenant.IsActive {
		return nil, tenant.ErrInactive
	}
	if currency == "" {
		l, err := s.landlordRepo.GetByID(ctx, who.ID)
		if err != nil {
			return nil, err
		}
		currency = l.PrimaryCurrency
	}

	now := s.clock.Now()
	p := &payment.Payment{
		ID:              s.newID(),
		TenantID:        pl.Tenant.ID,
		PeriodStart:     start,
		PeriodEnd:       end,
		AmountDue:       money.Round(in.Amount, currency),
		Currency:        currency,
		DueDate:         due,
		WindowEnd:       due.AddDate(0, 0, s.defaultGrace),
		Status:          payment.StatusUpcoming,
		StatusChangedAt: now,
		Notes:           strings.TrimSpace(in.Notes),
		IsManual:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	changed, err := p.Evaluate(clock.Today(s.clock), s.leadDays, now)
	if err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create manual payment: %w", err)
	}
	s.log.WithFields(logrus.Fields{"payment_id": p.ID, "tenant_id": p.TenantID}).Info("Manual payment created")
	if changed {
		s.notify(ctx, p)
	}
	return p, nil
}

// UpdateInput edits an unresolved payment. Nil fields are left as they are.
type UpdateInput struct {
	Amount  *decimal.Decimal
	DueDate *time.Time
	Notes   *string
}

func (s *PaymentService) Update(ctx context.Context, who identity.Principal, id uuid.UUID, in UpdateInput) (*payment.Payment, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	if in.Amount != nil && !in.Amount.IsPositive() {
		return nil, invalid("amount", "must be greater than zero")
	}
	if _, _, err := s.authorize(ctx, who, id); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return s.paymentRepo.Mutate(ctx, id, func(p *payment.Payment) error {
		amount := in.Amount
		if amount != nil {
			rounded := money.Round(*amount, p.Currency)
			amount = &rounded
		}
		return p.Edit(amount, in.DueDate, in.Notes, now)
	})
}

// Summary aggregates a landlord's payments by status in their primary currency.
type Summary struct {
	Currency    string
	Counts      map[payment.Status]int
	Totals      map[payment.Status]decimal.Decimal
	Outstanding decimal.Decimal
	Collected   decimal.Decimal
}

func (s *PaymentService) Summary(ctx context.Context, who identity.Principal) (*Summary, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	l, err := s.landlordRepo.GetByID(ctx, who.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.List(ctx, payment.Filter{LandlordID: who.ID})
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		Currency:    l.PrimaryCurrency,
		Counts:      map[payment.Status]int{},
		Totals:      map[payment.Status]decimal.Decimal{},
		Outstanding: decimal.Zero,
		Collected:   decimal.Zero,
	}
	for _, p := range payments {
		amount := money.Convert(p.AmountDue, p.Currency, l.PrimaryCurrency)
		sum.Counts[p.Status]++
		sum.Totals[p.Status] = sum.Totals[p.Status].Add(amount)
		switch {
		case p.Status.IsPaid():
			sum.Collected = sum.Collected.Add(amount)
		case p.Status == payment.StatusPending, p.Status == payment.StatusOverdue, p.Status == payment.StatusVerifying:
			sum.Outstanding = sum.Outstanding.Add(amount)
		}
	}
	return sum, nil
}

// authorize loads a payment and checks who may act on it. Payments of other
// landlords or tenants look like missing ones.
func (s *PaymentService) authorize(ctx context.Context, who identity.Principal, id uuid.UUID) (*payment.Payment, *tenant.Placement, error) {
	p, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	pl, err := authorizeTenant(ctx, s.tenantRepo, who, p.TenantID)
	if errors.Is(err, tenant.ErrNotFound) {
		return nil, nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return p, pl, nil
}

func (s *PaymentService) notify(ctx context.Context, p *payment.Payment) {
	if err := s.notifier.PaymentStatusChanged(ctx, p); err != nil {
		s.log.WithError(err).WithField("payment_id", p.ID).Warn("Payment notification failed")
	}
}
