package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/config"
	"github.com/spec-kit/service-desk/internal/service"
)

// Sweeper runs one breach sweep.
type Sweeper interface {
	RunBreachSweep(ctx context.Context, now time.Time) (service.SweepReport, error)
}

// Locker is a non-blocking cross-instance lease.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// SweepRecorder counts sweep outcomes.
type SweepRecorder interface {
	RecordSweep(checked, updated, breached, failed int, err error, elapsed time.Duration)
}

// BreachSweeper periodically re-evaluates open tickets for SLA breaches.
type BreachSweeper struct {
	sweeper  Sweeper
	lock     Locker
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	recorder SweepRecorder
	now      func() time.Time
}

// NewBreachSweeper builds the worker. A nil lock lets every instance sweep.
func NewBreachSweeper(sweeper Sweeper, lock Locker, cfg config.SweepConfig, logger *zap.Logger, recorder SweepRecorder) *BreachSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BreachSweeper{
		sweeper:  sweeper,
		lock:     lock,
		interval: cfg.Interval(),
		timeout:  cfg.Timeout(),
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (w *BreachSweeper) Run(ctx context.Context) error {
	w.logger.Info("breach sweeper started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("breach sweeper stopped")
			return nil
		case <-ticker.C:
			if _, _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("breach sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs a single bounded sweep. ran is false when another
// instance holds the lease.
func (w *BreachSweeper) RunOnce(ctx context.Context) (report service.SweepReport, ran bool, err error) {
	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if w.lock != nil {
		acquired, err := w.lock.TryLock(runCtx)
		if err != nil {
			return report, false, err
		}
		if !acquired {
			w.logger.Debug("breach sweep skipped; lease held elsewhere")
			return report, false, nil
		}
		defer func() {
			// The run context may already be expired; release with the parent.
			if err := w.lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				w.logger.Warn("release sweep lease failed", zap.Error(err))
			}
		}()
	}

	started := w.now()
	report, err = w.sweeper.RunBreachSweep(runCtx, started)
	elapsed := w.now().Sub(started)
	if w.recorder != nil {
		w.recorder.RecordSweep(report.Checked, report.Updated, report.NewlyBreached, report.Failed, err, elapsed)
	}
	if report.NewlyBreached > 0 || report.Failed > 0 {
		w.logger.Info("breach sweep completed",
			zap.Int("checked", report.Checked),
			zap.Int("newly_breached", report.NewlyBreached),
			zap.Int("failed", report.Failed),
			zap.Duration("elapsed", elapsed))
	}
	return report, true, err
}
