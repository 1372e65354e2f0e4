package database

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"landten/internal/domain/clock"
	"landten/internal/domain/landlord"
	"landten/internal/domain/notification"
	"landten/internal/domain/payment"
	"landten/internal/domain/property"
	"landten/internal/domain/schedule"
	"landten/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// testDB is nil unless LANDTEN_IT is set and -short is off.
var testDB *sql.DB

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() || os.Getenv("LANDTEN_IT") == "" {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("landten"),
		postgres.WithUsername("landten"),
		postgres.WithPassword("landten"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres container: %v\n", err)
		os.Exit(1)
	}
	code := func() int {
		defer func() { _ = ctr.Terminate(ctx) }()

		dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Fprintf(os.Stderr, "resolve connection string: %v\n", err)
			return 1
		}
		if testDB, err = NewPostgresConnection(dsn); err != nil {
			fmt.Fprintf(os.Stderr, "connect: %v\n", err)
			return 1
		}
		defer testDB.Close()
		if _, err := Migrate(ctx, testDB); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			return 1
		}
		return m.Run()
	}()
	os.Exit(code)
}

func requireDB(t *testing.T) *sql.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("set LANDTEN_IT=1 to run Postgres integration tests")
	}
	return testDB
}

type seeded struct {
	landlord *landlord.Landlord
	property *property.Property
	room     *property.Room
	tenant   *tenant.Tenant
	schedule *schedule.Schedule
}

func seed(t *testing.T, db *sql.DB) seeded {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	l := &landlord.Landlord{
		ID: uuid.New(), Email: uuid.NewString() + "@example.com", PasswordHash: "x",
		Name: "Lena", PrimaryCurrency: "UGX", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, NewPostgresLandlordRepository(db).Create(ctx, l))

	props := NewPostgresPropertyRepository(db)
	p := &property.Property{ID: uuid.New(), LandlordID: l.ID, Name: "Kira Court", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, props.CreateProperty(ctx, p))
	rm := &property.Room{
		ID: uuid.New(), PropertyID: p.ID, Name: "A1", RentAmount: decimal.NewFromInt(500000),
		Currency: "UGX", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, props.CreateRoom(ctx, rm))

	tn := &tenant.Tenant{
		ID: uuid.New(), RoomID: rm.ID, Name: "Tom", Email: uuid.NewString() + "@example.com",
		MoveInDate: clock.Date(2024, time.January, 1), IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	s := &schedule.Schedule{
		ID: uuid.New(), TenantID: tn.ID, Amount: decimal.NewFromInt(500000), Currency: "UGX",
		Frequency: schedule.FrequencyMonthly, DueDay: 5, GraceDays: 3,
		StartDate: clock.Date(2024, time.January, 1), IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, NewPostgresTenantRepository(db).Onboard(ctx, tn, s))
	return seeded{landlord: l, property: p, room: rm, tenant: tn, schedule: s}
}

func newPayment(s seeded, periodStart time.Time) *payment.Payment {
	now := time.Now().UTC().Truncate(time.Microsecond)
	due := periodStart.AddDate(0, 0, s.schedule.DueDay-1)
	return &payment.Payment{
		ID:              uuid.New(),
		TenantID:        s.tenant.ID,
		ScheduleID:      uuid.NullUUID{UUID: s.schedule.ID, Valid: true},
		PeriodStart:     periodStart,
		PeriodEnd:       periodStart.AddDate(0, 1, 0),
		AmountDue:       s.schedule.Amount,
		Currency:        s.schedule.Currency,
		DueDate:         due,
		WindowEnd:       due.AddDate(0, 0, s.schedule.GraceDays),
		Status:          payment.StatusUpcoming,
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestLandlordRepository_DuplicateEmail(t *testing.T) {
	db := requireDB(t)
	s := seed(t, db)

	dup := *s.landlord
	dup.ID = uuid.New()
	err := NewPostgresLandlordRepository(db).Create(context.Background(), &dup)
	assert.ErrorIs(t, err, landlord.ErrDuplicateEmail)
}

func TestTenantRepository_OnboardOccupiedRoom(t *testing.T) {
	db := requireDB(t)
	s := seed(t, db)
	ctx := context.Background()

	room, err := NewPostgresPropertyRepository(db).GetRoom(ctx, s.room.ID)
	require.NoError(t, err)
	assert.True(t, room.IsOccupied)

	other := *s.tenant
	other.ID = uuid.New()
	other.Email = uuid.NewString() + "@example.com"
	err = NewPostgresTenantRepository(db).Onboard(ctx, &other, nil)
	assert.ErrorIs(t, err, tenant.ErrRoomOccupied)

	err = NewPostgresPropertyRepository(db).DeleteProperty(ctx, s.property.ID)
	assert.ErrorIs(t, err, property.ErrInUse)
}

func TestTenantRepository_MoveOutFreesRoom(t *testing.T) {
	db := requireDB(t)
	s := seed(t, db)
	ctx := context.Background()
	tenants := NewPostgresTenantRepository(db)

	out, err := tenants.MoveOut(ctx, s.tenant.ID, clock.Date(2024, time.March, 31))
	require.NoError(t, err)
	assert.False(t, out.IsActive)
	assert.True(t, out.MoveOutDate.Valid)

	room, err := NewPostgresPropertyRepository(db).GetRoom(ctx, s.room.ID)
	require.NoError(t, err)
	assert.False(t, room.IsOccupied)

	_, err = NewPostgresScheduleRepository(db).GetActiveByTenant(ctx, s.tenant.ID)
	assert.ErrorIs(t, err, schedule.ErrNotFound)
}

func TestPaymentRepository_CreateIfAbsentIsIdempotent(t *testing.T) {
	db := requireDB(t)
	s := seed(t, db)
	ctx := context.Background()
	payments := NewPostgresPaymentRepository(db)

	first := newPayment(s, clock.Date(2024, time.February, 1))
	created, err := payments.CreateIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	again := newPayment(s, clock.Date(2024, time.February, 1))
	created, err = payments.CreateIfAbsent(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)

	list, err := payments.List(ctx, payment.Filter{LandlordID: s.landlord.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
	assert.True(t, first.AmountDue.Equal(list[0].AmountDue))
	assert.True(t, first.DueDate.Equal(list[0].DueDate))
}

func TestPaymentRepository_MutateRollsBackOnError(t *testing.T) {
	db := requireDB(t)
	s := seed(t, db)
	ctx := context.Background()
	payments := NewPostgresPaymentRepository(db)

	p := newPayment(s, clock.Date(2024, time.March, 1))
	_, err := payments.CreateIfAbsent(ctx, p)
	require.NoError(t, err)

	_, err = payments.Mutate(ctx, p.ID, func(cur *payment.Payment) error {
		cur.Notes = "should not persist"
		return payment.ErrIllegalTransition
	})
	assert.ErrorIs(t, err, payment.ErrIllegalTransition)

	stored, err := payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Notes)

	paid, err := payments.Mutate(ctx, p.ID, func(cur *payment.Payment) error {
		return cur.MarkPaid(clock.Date(2024, time.March, 6), "MM-1", time.Now().UTC())
	})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusOnTime, paid.Status)

	stored, err = payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusOnTime, stored.Status)
	assert.Equal(t, "MM-1", stored.Reference)
	require.True(t, stored.PaidDate.Valid)
	assert.True(t, clock.Date(2024, time.March, 6).Equal(stored.PaidDate.Time.UTC()))
}

func TestNotificationRepository_DedupeKey(t *testing.T) {
	db := requireDB(t)
	s := seed(t, db)
	ctx := context.Background()
	repo := NewPostgresNotificationRepository(db)

	key := notification.TenantDedupeKey(s.tenant.ID, notification.TypeTenantAdded)
	mk := func() *notification.Notification {
		return &notification.Notification{
			ID: uuid.New(), LandlordID: s.landlord.ID, Type: notification.TypeTenantAdded,
			Title: "New tenant", Message: "Tom moved in",
			TenantID:  uuid.NullUUID{UUID: s.tenant.ID, Valid: true},
			DedupeKey: key, CreatedAt: time.Now().UTC(),
		}
	}

	created, err := repo.Create(ctx, mk())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, mk())
	require.NoError(t, err)
	assert.False(t, created)
}

func TestMigrate_NothingPendingAfterRun(t *testing.T) {
	db := requireDB(t)

	pending, err := Pending(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
