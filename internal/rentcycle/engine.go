// internal/rentcycle/engine.go
package rentcycle

import (
	"context"
	"time"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/common/logger"
	"rentpulse/internal/common/metrics"
	"rentpulse/internal/models"
	"rentpulse/internal/rentledger"
)

// Engine advances rent ledger entries through the monthly payment cycle:
// pending at the start of each month, overdue after the grace period, paid
// only via an external payment confirmation. Scans are idempotent and each
// unit's update is independent, so a crash mid-scan is safe to resume with
// the same now.
type Engine struct {
	ledger rentledger.Repository
	logger logger.Logger
}

func NewEngine(ledger rentledger.Repository, log logger.Logger) *Engine {
	return &Engine{
		ledger: ledger,
		logger: log.WithFields(map[string]interface{}{"component": "rentcycle"}),
	}
}

// InitializeCycle resets every occupied unit whose last payment is not within
// the current calendar month to pending with the due date at the first of the
// month. Units already paid this cycle are left alone, which makes repeated
// calls within one month harmless.
func (e *Engine) InitializeCycle(ctx context.Context, now time.Time) error {
	timer := time.Now()
	defer func() {
		metrics.CycleScans.WithLabelValues("initialize").Inc()
		metrics.CycleScanDuration.WithLabelValues("initialize").Observe(time.Since(timer).Seconds())
	}()

	entries, err := e.ledger.ListOccupied(ctx)
	if err != nil {
		return err
	}

	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	for i := range entries {
		entry := &entries[i]
		if paidThisMonth(entry, now) {
			continue
		}
		if entry.Status == models.RentStatusPending && entry.DueDate.Equal(firstOfMonth) {
			continue // already initialized for this cycle
		}
		if entry.Status == models.RentStatusOverdue && entry.DueDate.Equal(firstOfMonth) {
			continue // overdue within the current cycle; only a payment clears it
		}

		entry.DueDate = firstOfMonth
		entry.Status = models.RentStatusPending
		entry.UpdatedAt = now
		if err := e.ledger.Upsert(ctx, entry); err != nil {
			// Per-unit isolation: log and keep scanning.
			e.logger.Error("cycle init failed for unit", map[string]interface{}{
				"unitId": entry.UnitID,
				"error":  err.Error(),
			})
			continue
		}
		metrics.UnitsTransitioned.WithLabelValues(string(models.RentStatusPending)).Inc()
	}

	return nil
}

// AdvanceOverdue flips pending units to overdue once now is past the due
// date plus grace period. The transition is one-directional; the engine never
// reverts overdue to pending.
func (e *Engine) AdvanceOverdue(ctx context.Context, now time.Time) error {
	timer := time.Now()
	defer func() {
		metrics.CycleScans.WithLabelValues("advance_overdue").Inc()
		metrics.CycleScanDuration.WithLabelValues("advance_overdue").Observe(time.Since(timer).Seconds())
	}()

	entries, err := e.ledger.ListByStatus(ctx, models.RentStatusPending)
	if err != nil {
		return err
	}

	for i := range entries {
		entry := &entries[i]
		if !pastGrace(entry, now) {
			continue
		}
		moved, err := e.ledger.MarkOverdue(ctx, entry.UnitID, now)
		if err != nil {
			e.logger.Error("overdue transition failed for unit", map[string]interface{}{
				"unitId": entry.UnitID,
				"error":  err.Error(),
			})
			continue
		}
		if !moved {
			// A payment landed after the scan; leave the entry alone.
			e.logger.Debug("overdue transition skipped, entry no longer pending", map[string]interface{}{
				"unitId": entry.UnitID,
			})
			continue
		}
		metrics.UnitsTransitioned.WithLabelValues(string(models.RentStatusOverdue)).Inc()
		e.logger.Info("unit marked overdue", map[string]interface{}{
			"unitId":  entry.UnitID,
			"dueDate": entry.DueDate.Format("2006-01-02"),
		})
	}

	return nil
}

// ApplyPayment handles the external payment-confirmation event, marking the
// unit paid for the current cycle.
func (e *Engine) ApplyPayment(ctx context.Context, event models.PaymentEvent) error {
	if event.UnitID == "" {
		return commonerrors.NewValidationFailedError("payment event missing unitId")
	}
	if err := e.ledger.RecordPayment(ctx, event.UnitID, event.PaidAt); err != nil {
		return err
	}
	metrics.UnitsTransitioned.WithLabelValues(string(models.RentStatusPaid)).Inc()
	e.logger.Info("payment recorded", map[string]interface{}{
		"unitId":         event.UnitID,
		"amount":         event.Amount,
		"transactionRef": event.TransactionRef,
	})
	return nil
}

// DaysUntilDue returns the signed calendar-day distance from now to the due
// date: positive means days remaining, zero due today, negative days overdue.
// Calendar-day granularity, not wall-clock hours, so a reminder never fires
// twice or skips a day across midnight boundaries.
func DaysUntilDue(entry *models.RentLedgerEntry, now time.Time) int {
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dueDay := time.Date(entry.DueDate.Year(), entry.DueDate.Month(), entry.DueDate.Day(), 0, 0, 0, 0, time.UTC)
	return int(dueDay.Sub(nowDay).Hours() / 24)
}

func paidThisMonth(entry *models.RentLedgerEntry, now time.Time) bool {
	if entry.LastPaymentDate == nil {
		return false
	}
	p := *entry.LastPaymentDate
	return p.Year() == now.Year() && p.Month() == now.Month()
}

func pastGrace(entry *models.RentLedgerEntry, now time.Time) bool {
	return DaysUntilDue(entry, now) < -entry.GraceDays
}
