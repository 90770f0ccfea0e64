// internal/dispatch/reconciler.go
package dispatch

import (
	"context"
	"time"

	"rentpulse/internal/common/logger"
	"rentpulse/internal/common/metrics"
	"rentpulse/internal/models"
)

// Reconciler sweeps non-terminal records that never progressed within the
// staleness bound and forces them to failed, so no record is left stuck in
// pending or sent after a crash or an abandoned resolution task.
type Reconciler struct {
	ledger     Ledger
	staleAfter time.Duration
	interval   time.Duration
	logger     logger.Logger
}

func NewReconciler(ledger Ledger, staleAfter, interval time.Duration, log logger.Logger) *Reconciler {
	return &Reconciler{
		ledger:     ledger,
		staleAfter: staleAfter,
		interval:   interval,
		logger:     log.WithFields(map[string]interface{}{"component": "reconciler"}),
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Error("sweep failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

// Sweep performs one reconciliation pass.
func (r *Reconciler) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-r.staleAfter)
	stale, err := r.ledger.ListStale(ctx, cutoff)
	if err != nil {
		return err
	}

	for i := range stale {
		record := &stale[i]
		// A record still pending this long ago never reached the gateway.
		reason := "timeout"
		if record.Status == models.DispatchStatusPending {
			reason = "abandoned"
		}
		if err := r.ledger.MarkFailed(ctx, record.ID, reason); err != nil {
			// Lost the race with a late resolution; that is fine.
			if err == ErrInvalidTransition {
				continue
			}
			r.logger.Error("failed to sweep record", map[string]interface{}{
				"dispatchId": record.ID,
				"error":      err.Error(),
			})
			continue
		}
		metrics.ReconcilerTimeouts.Inc()
		r.logger.Warn("stale record swept to failed", map[string]interface{}{
			"dispatchId": record.ID,
			"recipient":  record.Recipient,
			"reason":     reason,
			"createdAt":  record.CreatedAt.Format(time.RFC3339),
		})
	}

	return nil
}
