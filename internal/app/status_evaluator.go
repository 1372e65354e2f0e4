package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"landten/internal/domain/clock"
	"landten/internal/domain/payment"

	"github.com/sirupsen/logrus"
)

// errUnchanged aborts a Mutate without writing when the stored row needs no change.
var errUnchanged = errors.New("unchanged")

// StatusEvaluator applies the date-driven transitions to open payments.
type StatusEvaluator struct {
	paymentRepo payment.Repository
	notifier    Notifier
	leadDays    int
	clock       clock.Clock
	log         *logrus.Entry
}

func NewStatusEvaluator(pr payment.Repository, notifier Notifier, leadDays int, log *logrus.Entry) *StatusEvaluator {
	return &StatusEvaluator{
		paymentRepo: pr,
		notifier:    notifier,
		leadDays:    leadDays,
		clock:       clock.Real{},
		log:         log,
	}
}

func (e *StatusEvaluator) WithClock(c clock.Clock) *StatusEvaluator {
	e.clock = c
	return e
}

// EvaluateResult summarises one evaluator run.
type EvaluateResult struct {
	Examined int
	Pending  int
	Overdue  int
	Failed   int
}

// Run re-evaluates every upcoming or pending payment against today.
func (e *StatusEvaluator) Run(ctx context.Context, today time.Time) (*EvaluateResult, error) {
	open, err := e.paymentRepo.ListByStatus(ctx, []payment.Status{payment.StatusUpcoming, payment.StatusPending})
	if err != nil {
		return nil, fmt.Errorf("failed to list open payments: %w", err)
	}
	res := &EvaluateResult{Examined: len(open)}
	for _, candidate := range open {
		if candidate.DateStatus(today, e.leadDays) == candidate.Status {
			continue
		}
		p, changed, err := e.evaluate(ctx, candidate, today)
		if err != nil {
			res.Failed++
			e.log.WithError(err).WithField("payment_id", candidate.ID).Error("Status evaluation failed")
			continue
		}
		if !changed {
			continue
		}
		switch p.Status {
		case payment.StatusPending:
			res.Pending++
		case payment.StatusOverdue:
			res.Overdue++
		}
		if err := e.notifier.PaymentStatusChanged(ctx, p); err != nil {
			e.log.WithError(err).WithField("payment_id", p.ID).Warn("Status change notification failed")
		}
	}
	e.log.WithFields(logrus.Fields{
		"today":    today.Format("2006-01-02"),
		"examined": res.Examined,
		"pending":  res.Pending,
		"overdue":  res.Overdue,
		"failed":   res.Failed,
	}).Info("Status evaluation finished")
	return res, nil
}

// evaluate re-checks the stored status under lock before writing.
func (e *StatusEvaluator) evaluate(ctx context.Context, candidate *payment.Payment, today time.Time) (*payment.Payment, bool, error) {
	now := e.clock.Now()
	p, err := e.paymentRepo.Mutate(ctx, candidate.ID, func(p *payment.Payment) error {
		changed, err := p.Evaluate(today, e.leadDays, now)
		if err != nil {
			return err
		}
		if !changed {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}
