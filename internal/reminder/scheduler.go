// internal/reminder/scheduler.go
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/common/logger"
	"rentpulse/internal/common/metrics"
	"rentpulse/internal/directory"
	"rentpulse/internal/models"
	"rentpulse/internal/rentcycle"
	"rentpulse/internal/rentledger"
	"rentpulse/internal/templates"
)

// Sender is the slice of the dispatcher the scheduler needs.
type Sender interface {
	Send(ctx context.Context, recipient, body string, category models.MessageCategory) (*models.DispatchRecord, error)
}

// Scheduler runs once per day (or on demand), asks the rent ledger which
// units sit on the reminder cadence today, renders the matching template and
// hands the message to the dispatcher. A unit outside the cadence window is a
// scheduling skip, not a failure, and the two are counted separately.
type Scheduler struct {
	ledger       rentledger.Repository
	units        directory.UnitDirectory
	catalog      *templates.Engine
	sender       Sender
	dedup        DedupStore
	managerPhone string
	logger       logger.Logger
}

func NewScheduler(ledger rentledger.Repository, units directory.UnitDirectory, catalog *templates.Engine, sender Sender, dedup DedupStore, managerPhone string, log logger.Logger) *Scheduler {
	return &Scheduler{
		ledger:       ledger,
		units:        units,
		catalog:      catalog,
		sender:       sender,
		dedup:        dedup,
		managerPhone: managerPhone,
		logger:       log.WithFields(map[string]interface{}{"component": "reminder"}),
	}
}

// RunDaily processes every unit for the given day. Failures on one unit never
// abort the rest of the scan.
func (s *Scheduler) RunDaily(ctx context.Context, now time.Time) error {
	entries, err := s.ledger.ListOccupied(ctx)
	if err != nil {
		return err
	}

	for i := range entries {
		if err := s.processUnit(ctx, &entries[i], now); err != nil {
			metrics.ReminderFailures.WithLabelValues(errorCode(err)).Inc()
			s.logger.Error("reminder failed for unit", map[string]interface{}{
				"unitId": entries[i].UnitID,
				"error":  err.Error(),
			})
		}
	}
	return nil
}

func (s *Scheduler) processUnit(ctx context.Context, entry *models.RentLedgerEntry, now time.Time) error {
	if entry.Status == models.RentStatusPaid {
		metrics.RemindersSkipped.WithLabelValues("paid").Inc()
		s.logger.Debug("skip: rent already paid", map[string]interface{}{"unitId": entry.UnitID})
		return nil
	}
	if entry.Status == models.RentStatusVacant {
		metrics.RemindersSkipped.WithLabelValues("vacant").Inc()
		return nil
	}

	d := rentcycle.DaysUntilDue(entry, now)
	if !onCadence(d) {
		metrics.RemindersSkipped.WithLabelValues("off_cadence").Inc()
		s.logger.Debug("skip: outside cadence window", map[string]interface{}{
			"unitId":       entry.UnitID,
			"daysUntilDue": d,
		})
		return nil
	}

	templateName := TemplatePaymentReminder
	category := models.CategoryReminder
	if d < 0 {
		templateName = TemplateOverdueNotice
		category = models.CategoryOverdue
	}

	if err := s.sendOnce(ctx, entry, now, d, templateName, category); err != nil {
		return err
	}

	// Final notice escalates in addition to the daily overdue message.
	if d == FinalNoticeOffset {
		return s.sendOnce(ctx, entry, now, d, TemplateFinalNotice, models.CategoryOverdue)
	}
	return nil
}

// sendOnce renders and dispatches one template for the unit, guarded by the
// per-(unit, day, template) dedup slot. A failure after the slot is taken
// releases it again, so the next run of the same day can retry instead of
// silently losing the reminder.
func (s *Scheduler) sendOnce(ctx context.Context, entry *models.RentLedgerEntry, now time.Time, d int, templateName string, category models.MessageCategory) error {
	key := dedupKey(entry.UnitID, now, templateName)
	acquired, err := s.dedup.Acquire(ctx, key)
	if err != nil {
		return err
	}
	if !acquired {
		metrics.RemindersSkipped.WithLabelValues("already_sent").Inc()
		s.logger.Debug("skip: reminder already sent today", map[string]interface{}{
			"unitId":   entry.UnitID,
			"template": templateName,
		})
		return nil
	}

	if err := s.deliver(ctx, entry, now, d, templateName, category); err != nil {
		if rerr := s.dedup.Release(ctx, key); rerr != nil {
			s.logger.Warn("dedup slot not released after failed send", map[string]interface{}{
				"unitId":   entry.UnitID,
				"template": templateName,
				"error":    rerr.Error(),
			})
		}
		return err
	}
	return nil
}

func (s *Scheduler) deliver(ctx context.Context, entry *models.RentLedgerEntry, now time.Time, d int, templateName string, category models.MessageCategory) error {
	unit, err := s.units.GetUnit(ctx, entry.UnitID)
	if err != nil {
		return err
	}

	tmpl, err := s.catalog.GetByName(ctx, templateName)
	if err != nil {
		return err
	}

	variables := map[string]string{
		"tenantName":   unit.TenantName,
		"unitNumber":   unit.Number,
		"amount":       fmt.Sprintf("%.0f", entry.MonthlyAmount),
		"managerPhone": s.managerPhone,
	}
	if d >= 0 {
		variables["daysUntilDue"] = fmt.Sprintf("%d", d)
	} else {
		variables["daysOverdue"] = fmt.Sprintf("%d", -d)
	}

	body, err := templates.Render(tmpl, variables)
	if err != nil {
		return err
	}

	record, err := s.sender.Send(ctx, entry.TenantContact, body, category)
	if err != nil {
		return err
	}

	s.catalog.RecordUsage(ctx, tmpl.ID)
	metrics.RemindersSent.WithLabelValues(templateName).Inc()
	s.logger.Info("reminder dispatched", map[string]interface{}{
		"unitId":       entry.UnitID,
		"template":     templateName,
		"daysUntilDue": d,
		"dispatchId":   record.ID,
		"status":       record.Status,
	})
	return nil
}

func errorCode(err error) string {
	var se *commonerrors.StandardError
	if errors.As(err, &se) {
		return string(se.Code)
	}
	return "INTERNAL_ERROR"
}
