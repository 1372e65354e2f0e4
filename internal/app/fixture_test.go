package app

import (
	"context"
	"testing"
	"time"

	"landten/internal/domain/clock"
	"landten/internal/domain/identity"
	"landten/internal/domain/landlord"
	"landten/internal/domain/payment"
	"landten/internal/domain/property"
	"landten/internal/domain/tenant"
	"landten/internal/infra/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testLeadDays     = 3
	testDefaultGrace = 5
	testMaxReceipt   = 1 << 20
)

type fixture struct {
	w     *world
	clock *clock.Fixed

	landlordRepo fakeLandlords
	propertyRepo fakeProperties
	tenantRepo   fakeTenants
	scheduleRepo fakeSchedules
	paymentRepo  fakePayments
	notifRepo    fakeNotifications

	pub      *recordingPublisher
	telegram *addressCheckingSender
	sms      *recordingSender
	email    *recordingSender
	blobs    *memBlobs

	notifier   *NotificationService
	generator  *PaymentGenerator
	evaluator  *StatusEvaluator
	sweeper    *Sweeper
	payments   *PaymentService
	receipts   *ReceiptService
	tenants    *TenantService
	properties *PropertyService
	analytics  *AnalyticsService

	landlord identity.Principal
	stranger identity.Principal
	property *property.Property
	room     *property.Room
}

// newFixture wires every service over in-memory storage with the clock at 09:00 on today.
func newFixture(t *testing.T, today time.Time) *fixture {
	t.Helper()
	log := logger.Discard()
	w := newWorld()
	f := &fixture{
		w:            w,
		clock:        clock.NewFixed(today.Add(9 * time.Hour)),
		landlordRepo: fakeLandlords{w},
		propertyRepo: fakeProperties{w},
		tenantRepo:   fakeTenants{w},
		scheduleRepo: fakeSchedules{w},
		paymentRepo:  fakePayments{w},
		notifRepo:    fakeNotifications{w},
		pub:          &recordingPublisher{},
		telegram:     &addressCheckingSender{},
		sms:          &recordingSender{},
		email:        &recordingSender{},
		blobs:        newMemBlobs(),
	}

	f.notifier = NewNotificationService(f.notifRepo, f.tenantRepo, f.landlordRepo, f.paymentRepo, f.pub, log).
		WithClock(f.clock).
		WithTelegram(f.telegram).
		WithSMS(f.sms).
		WithEmail(f.email)
	f.generator = NewPaymentGenerator(f.scheduleRepo, f.paymentRepo, log).WithClock(f.clock)
	f.evaluator = NewStatusEvaluator(f.paymentRepo, f.notifier, testLeadDays, log).WithClock(f.clock)
	f.sweeper = NewSweeper(f.generator, f.evaluator, log).WithClock(f.clock)
	f.payments = NewPaymentService(f.paymentRepo, f.tenantRepo, f.landlordRepo, f.notifier, testLeadDays, testDefaultGrace, log).
		WithClock(f.clock)
	f.receipts = NewReceiptService(f.paymentRepo, f.tenantRepo, f.blobs, f.notifier, testMaxReceipt, testLeadDays, log).
		WithClock(f.clock)
	f.tenants = NewTenantService(f.tenantRepo, f.scheduleRepo, f.propertyRepo, f.paymentRepo, f.notifier, testDefaultGrace, log).
		WithClock(f.clock)
	f.properties = NewPropertyService(f.propertyRepo, f.landlordRepo, log).WithClock(f.clock)
	f.analytics = NewAnalyticsService(f.paymentRepo, f.propertyRepo, f.tenantRepo, f.landlordRepo).WithClock(f.clock)

	ctx := context.Background()
	f.landlord = f.addLandlord(t, "owner@example.com", "USD")
	f.stranger = f.addLandlord(t, "stranger@example.com", "USD")

	p, err := f.properties.CreateProperty(ctx, f.landlord, PropertyInput{Name: "Kololo Flats", Address: "Plot 4"})
	require.NoError(t, err)
	f.property = p
	r, err := f.properties.CreateRoom(ctx, f.landlord, RoomInput{
		PropertyID: p.ID,
		Name:       "A1",
		RentAmount: decimal.NewFromInt(1200),
	})
	require.NoError(t, err)
	f.room = r
	return f
}

func (f *fixture) addLandlord(t *testing.T, email, currency string) identity.Principal {
	t.Helper()
	l := &landlord.Landlord{
		ID:              uuid.New(),
		Email:           email,
		Name:            "Landlord " + email,
		PrimaryCurrency: currency,
		TelegramChatID:  4242,
	}
	require.NoError(t, f.landlordRepo.Create(context.Background(), l))
	return identity.Principal{ID: l.ID, Role: identity.RoleLandlord}
}

// onboard places a tenant in the fixture's room.
func (f *fixture) onboard(t *testing.T, sched *ScheduleInput) *tenant.Placement {
	t.Helper()
	pl, err := f.tenants.Onboard(context.Background(), f.landlord, OnboardInput{
		RoomID:   f.room.ID,
		Name:     "Jane Tenant",
		Email:    "jane@example.com",
		Phone:    "+256700000001",
		Schedule: sched,
	})
	require.NoError(t, err)
	return pl
}

// addPayment stores a manual-style payment directly, bypassing the services.
func (f *fixture) addPayment(t *testing.T, tenantID uuid.UUID, due time.Time, grace int, status payment.Status) *payment.Payment {
	t.Helper()
	now := f.clock.Now()
	p := &payment.Payment{
		ID:              uuid.New(),
		TenantID:        tenantID,
		PeriodStart:     due,
		PeriodEnd:       due.AddDate(0, 1, 0),
		AmountDue:       decimal.NewFromInt(1200),
		Currency:        "USD",
		DueDate:         due,
		WindowEnd:       due.AddDate(0, 0, grace),
		Status:          status,
		StatusChangedAt: now,
		IsManual:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, f.paymentRepo.Create(context.Background(), p))
	return p
}

func (f *fixture) stored(t *testing.T, id uuid.UUID) *payment.Payment {
	t.Helper()
	p, err := f.paymentRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) tenantPrincipal(pl *tenant.Placement) identity.Principal {
	return identity.Principal{ID: pl.Tenant.ID, Role: identity.RoleTenant}
}

// setToday moves the clock to 09:00 on day.
func (f *fixture) setToday(day time.Time) {
	f.clock.Set(day.Add(9 * time.Hour))
}
