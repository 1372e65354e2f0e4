package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"landten/internal/domain/clock"
	"landten/internal/domain/identity"
	"landten/internal/domain/money"
	"landten/internal/domain/payment"
	"landten/internal/domain/property"
	"landten/internal/domain/schedule"
	"landten/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TenantService onboards tenants, moves them out and manages their payment schedule.
type TenantService struct {
	tenantRepo   tenant.Repository
	scheduleRepo schedule.Repository
	propertyRepo property.Repository
	paymentRepo  payment.Repository
	notifier     Notifier
	generator    *PaymentGenerator
	defaultGrace int
	clock        clock.Clock
	newID        func() uuid.UUID
	log          *logrus.Entry
}

func NewTenantService(
	tr tenant.Repository,
	sr schedule.Repository,
	pr property.Repository,
	payments payment.Repository,
	notifier Notifier,
	defaultGrace int,
	log *logrus.Entry,
) *TenantService {
	return &TenantService{
		tenantRepo:   tr,
		scheduleRepo: sr,
		propertyRepo: pr,
		paymentRepo:  payments,
		notifier:     notifier,
		defaultGrace: defaultGrace,
		clock:        clock.Real{},
		newID:        uuid.New,
		log:          log,
	}
}

func (s *TenantService) WithClock(c clock.Clock) *TenantService {
	s.clock = c
	return s
}

// WithGenerator makes new schedules produce their due payments right away
// instead of waiting for the next sweep.
func (s *TenantService) WithGenerator(g *PaymentGenerator) *TenantService {
	s.generator = g
	return s
}

// ScheduleInput describes a payment schedule. Currency defaults to the room's
// currency and GraceDays to the configured default.
type ScheduleInput struct {
	Amount    decimal.Decimal
	Currency  string
	Frequency schedule.Frequency
	DueDay    int
	GraceDays *int
	StartDate time.Time
}

// OnboardInput places a new tenant in a free room.
type OnboardInput struct {
	RoomID     uuid.UUID
	Name       string
	Email      string
	Phone      string
	MoveInDate time.Time
	Notes      string
	Schedule   *ScheduleInput
}

func (s *TenantService) Onboard(ctx context.Context, who identity.Principal, in OnboardInput) (*tenant.Placement, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	room, prop, err := s.ownedRoom(ctx, who, in.RoomID)
	if err != nil {
		return nil, err
	}
	if room.IsOccupied {
		return nil, tenant.ErrRoomOccupied
	}

	now := s.clock.Now()
	moveIn := clock.Today(s.clock)
	if !in.MoveInDate.IsZero() {
		moveIn = clock.DateOf(in.MoveInDate)
	}
	t := &tenant.Tenant{
		ID:         s.newID(),
		RoomID:     room.ID,
		Name:       name,
		Email:      email,
		Phone:      strings.TrimSpace(in.Phone),
		MoveInDate: moveIn,
		IsActive:   true,
		Notes:      strings.TrimSpace(in.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	var sched *schedule.Schedule
	if in.Schedule != nil {
		if in.Schedule.StartDate.IsZero() {
			in.Schedule.StartDate = moveIn
		}
		sched, err = s.buildSchedule(t.ID, room, *in.Schedule)
		if err != nil {
			return nil, err
		}
	}

	if err := s.tenantRepo.Onboard(ctx, t, sched); err != nil {
		return nil, err
	}
	pl := &tenant.Placement{
		Tenant:       t,
		RoomName:     room.Name,
		PropertyID:   prop.ID,
		PropertyName: prop.Name,
		LandlordID:   prop.LandlordID,
	}
	s.log.WithFields(logrus.Fields{"tenant_id": t.ID, "room_id": room.ID}).Info("Tenant onboarded")
	if err := s.notifier.TenantAdded(ctx, pl); err != nil {
		s.log.WithError(err).WithField("tenant_id", t.ID).Warn("Tenant added notification failed")
	}
	if sched != nil {
		s.generate(ctx, sched)
	}
	return pl, nil
}

// List returns the landlord's tenants, optionally for one property and only active ones.
func (s *TenantService) List(ctx context.Context, who identity.Principal, propertyID uuid.UUID, activeOnly bool) ([]*tenant.Placement, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	return s.tenantRepo.List(ctx, tenant.Filter{LandlordID: who.ID, PropertyID: propertyID, ActiveOnly: activeOnly})
}

func (s *TenantService) Get(ctx context.Context, who identity.Principal, id uuid.UUID) (*tenant.Placement, error) {
	return authorizeTenant(ctx, s.tenantRepo, who, id)
}

// TenantUpdate edits contact details. Nil fields are left as they are.
type TenantUpdate struct {
	Name           *string
	Email          *string
	Phone          *string
	Notes          *string
	TelegramChatID *int64
}

func (s *TenantService) Update(ctx context.Context, who identity.Principal, id uuid.UUID, in TenantUpdate) (*tenant.Placement, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	pl, err := authorizeTenant(ctx, s.tenantRepo, who, id)
	if err != nil {
		return nil, err
	}
	t := pl.Tenant
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		t.Name = name
	}
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		t.Email = email
	}
	if in.Phone != nil {
		t.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Notes != nil {
		t.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.TelegramChatID != nil {
		t.TelegramChatID = *in.TelegramChatID
	}
	t.UpdatedAt = s.clock.Now()
	if err := s.tenantRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	return pl, nil
}

// MoveOut deactivates the tenant and their schedule and frees the room.
// moveOut defaults to today.
func (s *TenantService) MoveOut(ctx context.Context, who identity.Principal, id uuid.UUID, moveOut time.Time) (*tenant.Placement, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	pl, err := authorizeTenant(ctx, s.tenantRepo, who, id)
	if err != nil {
		return nil, err
	}
	if !pl.Tenant.IsActive {
		return nil, tenant.ErrInactive
	}
	if moveOut.IsZero() {
		moveOut = clock.Today(s.clock)
	}
	if moveOut.Before(pl.Tenant.MoveInDate) {
		return nil, invalid("move_out_date", "must not be before the move-in date")
	}
	t, err := s.tenantRepo.MoveOut(ctx, id, moveOut)
	if err != nil {
		return nil, err
	}
	pl.Tenant = t
	s.log.WithField("tenant_id", t.ID).Info("Tenant moved out")
	if err := s.notifier.TenantRemoved(ctx, pl); err != nil {
		s.log.WithError(err).WithField("tenant_id", t.ID).Warn("Tenant removed notification failed")
	}
	return pl, nil
}

// GetSchedule returns the tenant's active schedule.
func (s *TenantService) GetSchedule(ctx context.Context, who identity.Principal, tenantID uuid.UUID) (*schedule.Schedule, error) {
	if _, err := authorizeTenant(ctx, s.tenantRepo, who, tenantID); err != nil {
		return nil, err
	}
	return s.scheduleRepo.GetActiveByTenant(ctx, tenantID)
}

// SetSchedule creates the tenant's schedule, replacing the active one if any.
// Payments already generated from the old schedule are kept, and the new schedule
// starts no earlier than the end of the last period already billed.
func (s *TenantService) SetSchedule(ctx context.Context, who identity.Principal, tenantID uuid.UUID, in ScheduleInput) (*schedule.Schedule, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	pl, err := authorizeTenant(ctx, s.tenantRepo, who, tenantID)
	if err != nil {
		return nil, err
	}
	if !pl.Tenant.IsActive {
		return nil, tenant.ErrInactive
	}
	room, err := s.propertyRepo.GetRoom(ctx, pl.Tenant.RoomID)
	if err != nil {
		return nil, err
	}
	if in.StartDate.IsZero() {
		in.StartDate = clock.Today(s.clock)
	}
	sched, err := s.buildSchedule(tenantID, room, in)
	if err != nil {
		return nil, err
	}
	through, err := s.billedThrough(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if sched.StartDate.Before(through) {
		s.log.WithFields(logrus.Fields{
			"tenant_id":      tenantID,
			"requested":      sched.StartDate.Format(time.DateOnly),
			"billed_through": through.Format(time.DateOnly),
		}).Info("Schedule start moved past billed periods")
		sched.StartDate = through
	}
	if err := s.scheduleRepo.Replace(ctx, sched); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "schedule_id": sched.ID}).Info("Payment schedule set")
	s.generate(ctx, sched)
	return sched, nil
}

// billedThrough is the exclusive end of the latest scheduled period billed to the
// tenant, or the zero time when nothing has been generated yet.
func (s *TenantService) billedThrough(ctx context.Context, tenantID uuid.UUID) (time.Time, error) {
	ps, err := s.paymentRepo.List(ctx, payment.Filter{TenantID: tenantID})
	if err != nil {
		return time.Time{}, err
	}
	var through time.Time
	for _, p := range ps {
		if p.ScheduleID.Valid && p.PeriodEnd.After(through) {
			through = p.PeriodEnd
		}
	}
	return through, nil
}

// buildSchedule validates in and returns a new active schedule. Nothing is stored.
func (s *TenantService) buildSchedule(tenantID uuid.UUID, room *property.Room, in ScheduleInput) (*schedule.Schedule, error) {
	if !in.Amount.IsPositive() {
		return nil, invalid("amount", "must be greater than zero")
	}
	if in.Frequency == "" {
		in.Frequency = schedule.FrequencyMonthly
	}
	if !in.Frequency.Valid() {
		return nil, invalid("frequency", "must be one of monthly, bi_monthly, quarterly")
	}
	if in.DueDay < schedule.MinDueDay || in.DueDay > schedule.MaxDueDay {
		return nil, invalid("due_day", "must be between %d and %d", schedule.MinDueDay, schedule.MaxDueDay)
	}
	grace := s.defaultGrace
	if in.GraceDays != nil {
		grace = *in.GraceDays
	}
	if grace < 0 {
		return nil, invalid("grace_days", "must not be negative")
	}
	currency := money.Normalize(in.Currency)
	if currency == "" {
		currency = room.Currency
	}
	if !money.IsValid(currency) {
		return nil, invalid("currency", "unsupported currency %q", in.Currency)
	}
	now := s.clock.Now()
	return &schedule.Schedule{
		ID:        s.newID(),
		TenantID:  tenantID,
		Amount:    money.Round(in.Amount, currency),
		Currency:  currency,
		Frequency: in.Frequency,
		DueDay:    in.DueDay,
		GraceDays: grace,
		StartDate: clock.DateOf(in.StartDate),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *TenantService) generate(ctx context.Context, sched *schedule.Schedule) {
	if s.generator == nil {
		return
	}
	if _, err := s.generator.Generate(ctx, sched, clock.Today(s.clock)); err != nil {
		s.log.WithError(err).WithField("schedule_id", sched.ID).Warn("Initial payment generation failed, next sweep will retry")
	}
}

// ownedRoom loads a room and its property, hiding rooms of other landlords.
func (s *TenantService) ownedRoom(ctx context.Context, who identity.Principal, roomID uuid.UUID) (*property.Room, *property.Property, error) {
	room, err := s.propertyRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	prop, err := s.propertyRepo.GetProperty(ctx, room.PropertyID)
	if err != nil {
		if errors.Is(err, property.ErrNotFound) {
			return nil, nil, property.ErrRoomNotFound
		}
		return nil, nil, fmt.Errorf("failed to load property of room %s: %w", roomID, err)
	}
	if prop.LandlordID != who.ID {
		return nil, nil, property.ErrRoomNotFound
	}
	return room, prop, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "is not a valid address")
	}
	return email, nil
}
