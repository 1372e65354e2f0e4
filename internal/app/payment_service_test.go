package app

import (
	"context"
	"testing"
	"time"

	"landten/internal/domain/clock"
	"landten/internal/domain/notification"
	"landten/internal/domain/payment"
	"landten/internal/domain/tenant"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentService_MarkPaidOnTimeOrLate(t *testing.T) {
	tests := []struct {
		name     string
		paidDate time.Time
		want     payment.Status
	}{
		{name: "within grace window", paidDate: clock.Date(2024, 3, 4), want: payment.StatusOnTime},
		{name: "on window end", paidDate: clock.Date(2024, 3, 6), want: payment.StatusOnTime},
		{name: "after window end", paidDate: clock.Date(2024, 3, 10), want: payment.StatusLate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, clock.Date(2024, 3, 12))
			pl := f.onboard(t, nil)
			p := f.addPayment(t, pl.Tenant.ID, clock.Date(2024, 3, 1), 5, payment.StatusPending)

			got, err := f.payments.MarkPaid(context.Background(), f.landlord, p.ID, MarkPaidInput{
				PaidDate:  tt.paidDate,
				Reference: "  TRX-1001 ",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.paidDate, got.PaidDate.Time)
			assert.Equal(t, "TRX-1001", got.Reference)
			assert.Equal(t, tt.want, f.stored(t, p.ID).Status)

			received := f.notifRepo.ofType(notification.TypePaymentReceived)
			require.Len(t, received, 1)
			assert.Equal(t, f.landlord.ID, received[0].LandlordID)
		})
	}
}

func TestPaymentService_MarkPaidValidation(t *testing.T) {
	f := newFixture(t, clock.Date(2024, 3, 12))
	pl := f.onboard(t, nil)
	p := f.addPayment(t, pl.Tenant.ID, clock.Date(2024, 3, 1), 5, payment.StatusPending)
	ctx := context.Background()

	_, err := f.payments.MarkPaid(ctx, f.landlord, p.ID, MarkPaidInput{Reference: " "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.payments.MarkPaid(ctx, f.landlord, p.ID, MarkPaidInput{Reference: "x", PaidDate: clock.Date(2024, 3, 13)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.payments.MarkPaid(ctx, f.tenantPrincipal(pl), p.ID, MarkPaidInput{Reference: "x"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.payments.MarkPaid(ctx, f.stranger, p.ID, MarkPaidInput{Reference: "x"})
	assert.ErrorIs(t, err, payment.ErrNotFound)

	assert.Equal(t, payment.StatusPending, f.stored(t, p.ID).Status)
}

func TestPaymentService_WaivedCannotBePaid(t *testing.T) {
	f := newFixture(t, clock.Date(2024, 3, 1))
	pl := f.onboard(t, nil)
	p := f.addPayment(t, pl.Tenant.ID, clock.Date(2024, 3, 1), 5, payment.StatusPending)
	ctx := context.Background()

	f.setToday(clock.Date(2024, 3, 7))
	_, err := f.sweeper.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, payment.StatusOverdue, f.stored(t, p.ID).Status)

	_, err = f.payments.Waive(ctx, f.landlord, p.ID, "")
	assert.ErrorIs(t, err, ErrValidation)

	waived, err := f.payments.Waive(ctx, f.landlord, p.ID, "hardship")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusWaived, waived.Status)
	assert.Contains(t, waived.Notes, "Waived: hardship")

	_, err = f.payments.MarkPaid(ctx, f.landlord, p.ID, MarkPaidInput{Reference: "late transfer"})
	require.ErrorIs(t, err, payment.ErrIllegalTransition)
	var te *payment.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, payment.StatusWaived, te.Current)
	assert.Equal(t, payment.StatusWaived, f.stored(t, p.ID).Status)
}

func TestPaymentService_PaidCannotBeWaived(t *testing.T) {
	f := newFixture(t, clock.Date(2024, 3, 3))
	pl := f.onboard(t, nil)
	p := f.addPayment(t, pl.Tenant.ID, clock.Date(2024, 3, 1), 5, payment.StatusPending)
	ctx := context.Background()

	_, err := f.payments.MarkPaid(ctx, f.landlord, p.ID, MarkPaidInput{Reference: "TRX"})
	require.NoError(t, err)

	_, err = f.payments.Waive(ctx, f.landlord, p.ID, "changed my mind")
	assert.ErrorIs(t, err, payment.ErrIllegalTransition)
}

func TestPaymentService_CreateManual(t *testing.T) {
	f := newFixture(t, clock.Date(2024, 3, 10))
	pl := f.onboard(t, nil)
	ctx := context.Background()

	_, err := f.payments.CreateManual(ctx, f.landlord, ManualInput{TenantID: pl.Tenant.ID, Amount: decimal.Zero, DueDate: clock.Date(2024, 3, 1)})
	assert.ErrorIs(t, err, ErrValidation)

	p, err := f.payments.CreateManual(ctx, f.landlord, ManualInput{
		TenantID: pl.Tenant.ID,
		Amount:   decimal.RequireFromString("150.555"),
		DueDate:  clock.Date(2024, 3, 1),
		Notes:    "water bill",
	})
	require.NoError(t, err)
	assert.True(t, p.IsManual)
	assert.False(t, p.ScheduleID.Valid)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, "150.56", p.AmountDue.String())
	assert.Equal(t, clock.Date(2024, 3, 6), p.WindowEnd)
	assert.Equal(t, clock.Date(2024, 4, 1), p.PeriodEnd)
	assert.Equal(t, payment.StatusOverdue, p.Status, "already past its window")
	assert.Len(t, f.notifRepo.ofType(notification.TypePaymentOverdue), 1)

	_, err = f.payments.CreateManual(ctx, f.stranger, ManualInput{TenantID: pl.Tenant.ID, Amount: decimal.NewFromInt(1), DueDate: clock.Date(2024, 3, 1)})
	assert.ErrorIs(t, err, tenant.ErrNotFound)
}

func TestPaymentService_UpdateKeepsGraceLength(t *testing.T) {
	f := newFixture(t, clock.Date(2024, 2, 1))
	pl := f.onboard(t, nil)
	p := f.addPayment(t, pl.Tenant.ID, clock.Date(2024, 3, 1), 7, payment.StatusUpcoming)
	ctx := context.Background()

	amount := decimal.NewFromInt(1100)
	due := clock.Date(2024, 3, 10)
	notes := "moved by agreement"
	got, err := f.payments.Update(ctx, f.landlord, p.ID, UpdateInput{Amount: &amount, DueDate: &due, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "1100", got.AmountDue.String())
	assert.Equal(t, due, got.DueDate)
	assert.Equal(t, clock.Date(2024, 3, 17), got.WindowEnd)
	assert.Equal(t, notes, got.Notes)
	assert.Equal(t, payment.StatusUpcoming, got.Status)

	negative := decimal.NewFromInt(-5)
	_, err = f.payments.Update(ctx, f.landlord, p.ID, UpdateInput{Amount: &negative})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPaymentService_ListScopesByRole(t *testing.T) {
	f := newFixture(t, clock.Date(2024, 3, 10))
	pl := f.onboard(t, nil)
	ctx := context.Background()
	f.addPayment(t, pl.Tenant.ID, clock.Date(2024, 3, 1), 5, payment.StatusOverdue)
	f.addPayment(t, pl.Tenant.ID, clock.Date(2024, 3, 12), 5, payment.StatusPending)

	mine, err := f.payments.List(ctx, f.tenantPrincipal(pl), ListInput{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := f.payments.List(ctx, f.stranger, ListInput{})
	require.NoError(t, err)
	assert.Empty(t, theirs)

	overdue, err := f.payments.Overdue(ctx, f.landlord)
	require.NoError(t, err)
	require.Len(t, overdue, 1)

	upcoming, err := f.payments.Upcoming(ctx, f.landlord, 7)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, clock.Date(2024, 3, 12), upcoming[0].DueDate)

	_, err = f.payments.Upcoming(ctx, f.landlord, 91)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.payments.List(ctx, f.landlord, ListInput{Statuses: []payment.Status{"lost"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPaymentService_Summary(t *testing.T) {
	f := newFixture(t, clock.Date(2024, 3, 10))
	pl := f.onboard(t, nil)
	ctx := context.Background()
	f.addPayment(t, pl.Tenant.ID, clock.Date(2024, 1, 1), 5, payment.StatusOnTime)
	f.addPayment(t, pl.Tenant.ID, clock.Date(2024, 2, 1), 5, payment.StatusOverdue)
	f.addPayment(t, pl.Tenant.ID, clock.Date(2024, 3, 1), 5, payment.StatusWaived)

	sum, err := f.payments.Summary(ctx, f.landlord)
	require.NoError(t, err)
	assert.Equal(t, "USD", sum.Currency)
	assert.Equal(t, 1, sum.Counts[payment.StatusOnTime])
	assert.Equal(t, "1200", sum.Collected.String())
	assert.Equal(t, "1200", sum.Outstanding.String())
}
