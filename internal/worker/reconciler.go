package worker

import (
	"context"
	"log/slog"
	"time"

	"algo-transfers/internal/service"
)

// PendingReconciler is the part of the transaction service the loop drives.
type PendingReconciler interface {
	ReconcilePending(ctx context.Context) (service.ReconcileSummary, error)
}

// Reconciler periodically settles pending transactions.
type Reconciler struct {
	target   PendingReconciler
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewReconciler(target PendingReconciler, interval, timeout time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		target:   target,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Run blocks until ctx is done, starting one pass per tick. A pass that
// outlives its timeout is cancelled; the next tick starts a fresh one.
func (r *Reconciler) Run(ctx context.Context) {
	start := time.Now()
	r.logger.Info("Reconciler started", "interval", r.interval, "timeout", r.timeout)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Reconciler stopped", "uptime", time.Since(start))
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Reconciler) runOnce(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	summary, err := r.target.ReconcilePending(passCtx)
	if err != nil {
		r.logger.Error("Reconciliation pass failed", "error", err)
		return
	}
	if summary.Checked > 0 {
		r.logger.Debug("Reconciliation pass done", "checked", summary.Checked, "errors", summary.Errors)
	}
}
