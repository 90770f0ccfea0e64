// internal/campaign/orchestrator.go
package campaign

import (
	"context"
	"fmt"
	"time"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/common/logger"
	"rentpulse/internal/common/metrics"
	"rentpulse/internal/directory"
	"rentpulse/internal/models"
	"rentpulse/internal/rentledger"
	"rentpulse/internal/templates"

	"github.com/google/uuid"
)

// Sender is the slice of the dispatcher the orchestrator needs.
type Sender interface {
	Send(ctx context.Context, recipient, body string, category models.MessageCategory) (*models.DispatchRecord, error)
}

// Orchestrator resolves campaign audiences and fans out templated messages
// through the dispatcher with inter-message pacing.
type Orchestrator struct {
	repo        Repository
	units       directory.UnitDirectory
	rents       rentledger.Repository
	catalog     *templates.Engine
	sender      Sender
	pacingDelay time.Duration
	logger      logger.Logger
}

func NewOrchestrator(repo Repository, units directory.UnitDirectory, rents rentledger.Repository, catalog *templates.Engine, sender Sender, pacingDelay time.Duration, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		repo:        repo,
		units:       units,
		rents:       rents,
		catalog:     catalog,
		sender:      sender,
		pacingDelay: pacingDelay,
		logger:      log.WithFields(map[string]interface{}{"component": "campaign"}),
	}
}

// Create resolves the audience from the raw criteria document, freezes the
// targeted count, and either schedules the campaign for later or executes it
// immediately.
func (o *Orchestrator) Create(ctx context.Context, name, templateID string, rawCriteria []byte, scheduledAt *time.Time) (*models.Campaign, error) {
	if name == "" {
		return nil, commonerrors.NewValidationFailedError("campaign name is required")
	}
	criteria, err := ParseCriteria(rawCriteria)
	if err != nil {
		return nil, err
	}
	if _, err := o.catalog.Get(ctx, templateID); err != nil {
		return nil, err
	}

	targets, err := o.resolveAudience(ctx, criteria)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &models.Campaign{
		ID:            uuid.New().String(),
		Name:          name,
		TemplateID:    templateID,
		Criteria:      criteria,
		TargetUnitIDs: targets,
		Status:        models.CampaignStatusDraft,
		Results:       models.CampaignResults{Targeted: len(targets)},
		ScheduledAt:   scheduledAt,
		CreatedAt:     now,
	}

	if scheduledAt != nil && scheduledAt.After(now) {
		c.Status = models.CampaignStatusScheduled
		if err := o.repo.Create(ctx, c); err != nil {
			return nil, err
		}
		o.logger.Info("campaign scheduled", map[string]interface{}{
			"campaignId":  c.ID,
			"targeted":    c.Results.Targeted,
			"scheduledAt": scheduledAt.Format(time.RFC3339),
		})
		return c, nil
	}

	if err := o.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	if err := o.Execute(ctx, c.ID); err != nil {
		return nil, err
	}
	return o.repo.Get(ctx, c.ID)
}

// resolveAudience intersects all occupied units with every present filter.
func (o *Orchestrator) resolveAudience(ctx context.Context, criteria models.TargetCriteria) ([]string, error) {
	units, err := o.units.OccupiedUnits(ctx)
	if err != nil {
		return nil, err
	}

	var targets []string
	for i := range units {
		unit := &units[i]
		var entry *models.RentLedgerEntry
		if len(criteria.RentStatuses) > 0 {
			entry, err = o.rents.Get(ctx, unit.ID)
			if err != nil {
				// A unit with no ledger entry cannot match a status filter.
				if commonerrors.IsCode(err, commonerrors.ErrCodeUnitNotFound) {
					continue
				}
				return nil, err
			}
		}
		if Matches(criteria, unit, entry) {
			targets = append(targets, unit.ID)
		}
	}
	return targets, nil
}

// Execute fans the campaign out to its frozen audience. Counters reflect the
// gateway's immediate accept/reject outcome; final delivery resolution lives
// in the dispatch ledger and is not re-aggregated here, matching the
// dashboard's historical numbers.
func (o *Orchestrator) Execute(ctx context.Context, campaignID string) error {
	c, err := o.repo.Get(ctx, campaignID)
	if err != nil {
		return err
	}
	if c.Status != models.CampaignStatusDraft && c.Status != models.CampaignStatusScheduled {
		return commonerrors.NewValidationFailedError(
			fmt.Sprintf("campaign %s cannot be executed in status %s", campaignID, c.Status))
	}

	tmpl, err := o.catalog.Get(ctx, c.TemplateID)
	if err != nil {
		// Unresolvable template fails the campaign before any sends.
		if uerr := o.repo.UpdateStatus(ctx, campaignID, models.CampaignStatusFailed, nil); uerr != nil {
			o.logger.Error("failed to mark campaign failed", map[string]interface{}{
				"campaignId": campaignID,
				"error":      uerr.Error(),
			})
		}
		return err
	}

	now := time.Now().UTC()
	if err := o.repo.UpdateStatus(ctx, campaignID, models.CampaignStatusSending, &now); err != nil {
		return err
	}

	for i, unitID := range c.TargetUnitIDs {
		if i > 0 {
			// Minimum pacing between sends to respect downstream rate limits.
			select {
			case <-ctx.Done():
				o.logger.Warn("campaign run cancelled", map[string]interface{}{
					"campaignId": campaignID,
					"sentSoFar":  i,
				})
				// ctx is already dead; the status write gets its own deadline.
				markCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if uerr := o.repo.UpdateStatus(markCtx, campaignID, models.CampaignStatusFailed, nil); uerr != nil {
					o.logger.Error("failed to mark cancelled campaign", map[string]interface{}{
						"campaignId": campaignID,
						"error":      uerr.Error(),
					})
				}
				return ctx.Err()
			case <-time.After(o.pacingDelay):
			}
		}

		// A failure on one target never aborts the rest of the fan-out.
		o.sendToUnit(ctx, c, tmpl, unitID)
	}

	if err := o.repo.UpdateStatus(ctx, campaignID, models.CampaignStatusCompleted, nil); err != nil {
		return err
	}
	o.logger.Info("campaign completed", map[string]interface{}{
		"campaignId": campaignID,
		"targeted":   c.Results.Targeted,
	})
	return nil
}

func (o *Orchestrator) sendToUnit(ctx context.Context, c *models.Campaign, tmpl *models.MessageTemplate, unitID string) {
	unit, err := o.units.GetUnit(ctx, unitID)
	if err != nil {
		o.recordFailure(ctx, c.ID, unitID, err)
		return
	}

	variables := map[string]string{
		"tenantName": unit.TenantName,
		"unitNumber": unit.Number,
		"amount":     fmt.Sprintf("%.0f", unit.MonthlyRent),
	}
	body, err := templates.Render(tmpl, variables)
	if err != nil {
		o.recordFailure(ctx, c.ID, unitID, err)
		return
	}

	record, err := o.sender.Send(ctx, unit.TenantContact, body, tmpl.Category)
	if err != nil {
		o.recordFailure(ctx, c.ID, unitID, err)
		return
	}

	if record.Status == models.DispatchStatusFailed {
		metrics.CampaignSends.WithLabelValues("rejected").Inc()
		if err := o.repo.AddResult(ctx, c.ID, 0, 1, record.Cost); err != nil {
			o.logger.Error("result update failed", map[string]interface{}{"campaignId": c.ID, "error": err.Error()})
		}
		return
	}

	o.catalog.RecordUsage(ctx, tmpl.ID)
	metrics.CampaignSends.WithLabelValues("sent").Inc()
	if err := o.repo.AddResult(ctx, c.ID, 1, 0, record.Cost); err != nil {
		o.logger.Error("result update failed", map[string]interface{}{"campaignId": c.ID, "error": err.Error()})
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, campaignID, unitID string, cause error) {
	metrics.CampaignSends.WithLabelValues("failed").Inc()
	o.logger.Warn("campaign send failed for unit", map[string]interface{}{
		"campaignId": campaignID,
		"unitId":     unitID,
		"error":      cause.Error(),
	})
	if err := o.repo.AddResult(ctx, campaignID, 0, 1, 0); err != nil {
		o.logger.Error("result update failed", map[string]interface{}{"campaignId": campaignID, "error": err.Error()})
	}
}

// ExecuteDue runs every scheduled campaign whose trigger time has passed.
// The daemon calls this on its periodic tick.
func (o *Orchestrator) ExecuteDue(ctx context.Context, now time.Time) error {
	due, err := o.repo.ListScheduledDue(ctx, now)
	if err != nil {
		return err
	}
	for i := range due {
		if err := o.Execute(ctx, due[i].ID); err != nil {
			o.logger.Error("scheduled campaign failed", map[string]interface{}{
				"campaignId": due[i].ID,
				"error":      err.Error(),
			})
		}
	}
	return nil
}
