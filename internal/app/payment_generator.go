package app

import (
	"context"
	"fmt"
	"time"

	"landten/internal/domain/clock"
	"landten/internal/domain/payment"
	"landten/internal/domain/schedule"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PaymentGenerator derives payment obligations from active schedules.
// Running it repeatedly is safe: existing periods are never duplicated.
type PaymentGenerator struct {
	scheduleRepo schedule.Repository
	paymentRepo  payment.Repository
	clock        clock.Clock
	newID        func() uuid.UUID
	log          *logrus.Entry
}

func NewPaymentGenerator(sr schedule.Repository, pr payment.Repository, log *logrus.Entry) *PaymentGenerator {
	return &PaymentGenerator{
		scheduleRepo: sr,
		paymentRepo:  pr,
		clock:        clock.Real{},
		newID:        uuid.New,
		log:          log,
	}
}

func (g *PaymentGenerator) WithClock(c clock.Clock) *PaymentGenerator {
	g.clock = c
	return g
}

// GenerateResult summarises one generator run.
type GenerateResult struct {
	Schedules int
	Created   []*payment.Payment
	Failed    int
}

// Run generates payments for every active schedule as of asOf. A failing schedule is
// logged and skipped; the run is safe to repeat.
func (g *PaymentGenerator) Run(ctx context.Context, asOf time.Time) (*GenerateResult, error) {
	schedules, err := g.scheduleRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active schedules: %w", err)
	}
	res := &GenerateResult{Schedules: len(schedules)}
	for _, s := range schedules {
		created, err := g.Generate(ctx, s, asOf)
		res.Created = append(res.Created, created...)
		if err != nil {
			res.Failed++
			g.log.WithError(err).WithField("schedule_id", s.ID).Error("Payment generation failed for schedule")
		}
	}
	g.log.WithFields(logrus.Fields{
		"as_of":     asOf.Format("2006-01-02"),
		"schedules": res.Schedules,
		"created":   len(res.Created),
		"failed":    res.Failed,
	}).Info("Payment generation finished")
	return res, nil
}

// Generate creates the missing payments of one schedule for periods starting on or before asOf.
func (g *PaymentGenerator) Generate(ctx context.Context, s *schedule.Schedule, asOf time.Time) ([]*payment.Payment, error) {
	var created []*payment.Payment
	now := g.clock.Now()
	for _, period := range s.PeriodsThrough(asOf) {
		p := &payment.Payment{
			ID:              g.newID(),
			TenantID:        s.TenantID,
			ScheduleID:      uuid.NullUUID{UUID: s.ID, Valid: true},
			PeriodStart:     period.Start,
			PeriodEnd:       period.End,
			AmountDue:       period.Amount,
			Currency:        s.Currency,
			DueDate:         period.DueDate,
			WindowEnd:       period.WindowEnd,
			Status:          payment.StatusUpcoming,
			StatusChangedAt: now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		ok, err := g.paymentRepo.CreateIfAbsent(ctx, p)
		if err != nil {
			return created, err
		}
		if ok {
			created = append(created, p)
		}
	}
	return created, nil
}
