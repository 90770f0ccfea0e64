// internal/campaign/repository.go
package campaign

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/models"

	"github.com/lib/pq"
)

// Repository stores campaign records. Result counters are incremented with
// additive updates so concurrent executions of different campaigns never
// clobber each other.
type Repository interface {
	Create(ctx context.Context, c *models.Campaign) error
	Get(ctx context.Context, id string) (*models.Campaign, error)
	List(ctx context.Context) ([]models.Campaign, error)
	ListScheduledDue(ctx context.Context, now time.Time) ([]models.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status models.CampaignStatus, sentAt *time.Time) error
	AddResult(ctx context.Context, id string, sent, failed int, cost float64) error
}

// PostgresRepository implements Repository over the campaigns table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const campaignColumns = `id, name, template_id, criteria, target_unit_ids, status, targeted, sent, delivered, failed, total_cost, scheduled_at, sent_at, created_at`

func (r *PostgresRepository) Create(ctx context.Context, c *models.Campaign) error {
	criteriaJSON, err := json.Marshal(c.Criteria)
	if err != nil {
		return commonerrors.NewLedgerWriteFailedError("campaigns", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, name, template_id, criteria, target_unit_ids, status, targeted, sent, delivered, failed, total_cost, scheduled_at, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		c.ID, c.Name, c.TemplateID, criteriaJSON, pq.Array(c.TargetUnitIDs),
		c.Status, c.Results.Targeted, c.Results.Sent, c.Results.Delivered,
		c.Results.Failed, c.Results.TotalCost, c.ScheduledAt, c.SentAt, c.CreatedAt)
	if err != nil {
		return commonerrors.NewLedgerWriteFailedError("campaigns", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Campaign, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, commonerrors.NewCampaignNotFoundError(id)
	}
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("campaigns", err)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Campaign, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("campaigns", err)
	}
	return collectCampaigns(rows)
}

// ListScheduledDue returns scheduled campaigns whose trigger time has passed.
func (r *PostgresRepository) ListScheduledDue(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at`, models.CampaignStatusScheduled, now)
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("campaigns", err)
	}
	return collectCampaigns(rows)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.CampaignStatus, sentAt *time.Time) error {
	var err error
	if sentAt != nil {
		_, err = r.db.ExecContext(ctx,
			`UPDATE campaigns SET status = $1, sent_at = $2 WHERE id = $3`, status, sentAt, id)
	} else {
		_, err = r.db.ExecContext(ctx,
			`UPDATE campaigns SET status = $1 WHERE id = $2`, status, id)
	}
	if err != nil {
		return commonerrors.NewLedgerWriteFailedError("campaigns", err)
	}
	return nil
}

// AddResult bumps the monotonically increasing counters. Targeted is never
// touched after creation.
func (r *PostgresRepository) AddResult(ctx context.Context, id string, sent, failed int, cost float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET sent = sent + $1, failed = failed + $2, total_cost = total_cost + $3
		WHERE id = $4`, sent, failed, cost, id)
	if err != nil {
		return commonerrors.NewLedgerWriteFailedError("campaigns", err)
	}
	return nil
}

func scanCampaign(row interface{ Scan(...interface{}) error }) (*models.Campaign, error) {
	var c models.Campaign
	var criteriaJSON []byte
	var scheduledAt, sentAt sql.NullTime
	if err := row.Scan(&c.ID, &c.Name, &c.TemplateID, &criteriaJSON, pq.Array(&c.TargetUnitIDs),
		&c.Status, &c.Results.Targeted, &c.Results.Sent, &c.Results.Delivered,
		&c.Results.Failed, &c.Results.TotalCost, &scheduledAt, &sentAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	if len(criteriaJSON) > 0 {
		if err := json.Unmarshal(criteriaJSON, &c.Criteria); err != nil {
			return nil, err
		}
	}
	if scheduledAt.Valid {
		t := scheduledAt.Time
		c.ScheduledAt = &t
	}
	if sentAt.Valid {
		t := sentAt.Time
		c.SentAt = &t
	}
	return &c, nil
}

func collectCampaigns(rows *sql.Rows) ([]models.Campaign, error) {
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, commonerrors.NewLedgerQueryFailedError("campaigns", err)
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("campaigns", err)
	}
	return campaigns, nil
}
