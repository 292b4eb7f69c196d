package service

import (
	"context"
	"time"

	"github.com/engagekit/crm/internal/logger"
	"github.com/engagekit/crm/internal/repository"
	"go.uber.org/zap"
)

const stalledMessage = "operation stalled: no terminal transition before deadline"

// Reconciler sweeps ledger entries stuck PENDING past the staleness
// threshold and marks them FAILED, so callers polling the ledger see a
// terminal answer instead of an entry that is in-flight forever (e.g.
// after a publish that never happened or a consumer crash).
type Reconciler struct {
	ops        repository.OperationsRepository
	staleAfter time.Duration
	interval   time.Duration
}

func NewReconciler(ops repository.OperationsRepository, staleAfter, interval time.Duration) *Reconciler {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{ops: ops, staleAfter: staleAfter, interval: interval}
}

// SweepOnce fails everything PENDING since before now-staleAfter.
func (r *Reconciler) SweepOnce(ctx context.Context, now time.Time) (int64, error) {
	return r.ops.MarkStalled(ctx, now.Add(-r.staleAfter), stalledMessage)
}

// Run sweeps on the configured interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	tick := time.NewTicker(r.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			n, err := r.SweepOnce(ctx, time.Now())
			if err != nil {
				logger.Log.Error("ledger sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Log.Warn("marked stalled operations failed", zap.Int64("count", n))
			}
		}
	}
}
