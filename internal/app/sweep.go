package app

import (
	"context"
	"time"

	"landten/internal/domain/clock"

	"github.com/sirupsen/logrus"
)

// Sweeper is the daily job: generate new obligations, then move statuses.
type Sweeper struct {
	generator *PaymentGenerator
	evaluator *StatusEvaluator
	clock     clock.Clock
	log       *logrus.Entry
}

func NewSweeper(g *PaymentGenerator, e *StatusEvaluator, log *logrus.Entry) *Sweeper {
	return &Sweeper{generator: g, evaluator: e, clock: clock.Real{}, log: log}
}

func (s *Sweeper) WithClock(c clock.Clock) *Sweeper {
	s.clock = c
	return s
}

// SweepResult summarises a full sweep.
type SweepResult struct {
	AsOf     time.Time
	Generate *GenerateResult
	Evaluate *EvaluateResult
}

// Run sweeps as of today.
func (s *Sweeper) Run(ctx context.Context) (*SweepResult, error) {
	return s.RunAsOf(ctx, clock.Today(s.clock))
}

// RunAsOf sweeps as of the given date. A partial failure can be fixed by re-running in full.
func (s *Sweeper) RunAsOf(ctx context.Context, asOf time.Time) (*SweepResult, error) {
	asOf = clock.DateOf(asOf)
	s.log.WithField("as_of", asOf.Format("2006-01-02")).Info("Starting payment sweep")

	gen, err := s.generator.Run(ctx, asOf)
	if err != nil {
		return nil, err
	}
	eval, err := s.evaluator.Run(ctx, asOf)
	if err != nil {
		return &SweepResult{AsOf: asOf, Generate: gen}, err
	}
	return &SweepResult{AsOf: asOf, Generate: gen, Evaluate: eval}, nil
}
