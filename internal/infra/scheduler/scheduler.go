package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"landten/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweep is the daily job the scheduler drives.
type Sweep interface {
	Run(ctx context.Context) (*app.SweepResult, error)
}

// SweepScheduler runs the payment sweep on a cron spec. Overlapping runs are skipped.
type SweepScheduler struct {
	cronEngine *cron.Cron
	sweep      Sweep
	spec       string
	timeout    time.Duration
	onStart    bool
	logger     *logrus.Entry

	mu      sync.Mutex
	running bool
	startup sync.WaitGroup
}

func NewSweepScheduler(sweep Sweep, spec string, timeout time.Duration, logger *logrus.Entry) *SweepScheduler {
	return &SweepScheduler{
		cronEngine: cron.New(cron.WithLocation(time.UTC)),
		sweep:      sweep,
		spec:       spec,
		timeout:    timeout,
		logger:     logger,
	}
}

// WithStartupRun makes Start kick off one sweep immediately, so a process that was
// down at the scheduled time catches up without waiting for the next tick.
func (s *SweepScheduler) WithStartupRun(enabled bool) *SweepScheduler {
	s.onStart = enabled
	return s
}

// Start registers the sweep job and starts the cron engine.
func (s *SweepScheduler) Start() error {
	s.logger.WithFields(logrus.Fields{"spec": s.spec, "startup_run": s.onStart}).Info("Starting sweep scheduler")
	if _, err := s.cronEngine.AddFunc(s.spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("could not add sweep cron job %q: %w", s.spec, err)
	}
	s.cronEngine.Start()
	if s.onStart {
		s.startup.Add(1)
		go func() {
			defer s.startup.Done()
			s.RunOnce(context.Background())
		}()
	}
	return nil
}

// RunOnce executes one sweep with the configured timeout. It returns false if a
// sweep was already running.
func (s *SweepScheduler) RunOnce(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Previous sweep still running, skipping this tick")
		return false
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	res, err := s.sweep.Run(ctx)
	logCtx := s.logger.WithField("duration", time.Since(started).String())
	if res != nil {
		logCtx = logCtx.WithField("as_of", res.AsOf.Format(time.DateOnly))
		if res.Generate != nil {
			logCtx = logCtx.WithField("created", len(res.Generate.Created))
		}
		if res.Evaluate != nil {
			logCtx = logCtx.WithFields(logrus.Fields{"pending": res.Evaluate.Pending, "overdue": res.Evaluate.Overdue})
		}
	}
	if err != nil {
		logCtx.WithError(err).Error("Sweep failed")
		return true
	}
	logCtx.Info("Sweep finished")
	return true
}

// Stop stops the cron engine and waits for a running sweep to finish.
func (s *SweepScheduler) Stop() {
	s.logger.Info("Stopping sweep scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.startup.Wait()
	s.logger.Info("Sweep scheduler stopped")
}
