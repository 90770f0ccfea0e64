// internal/templates/repository.go
package templates

import (
	"context"
	"database/sql"
	"time"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/models"

	"github.com/lib/pq"
)

// Repository stores the template catalog.
type Repository interface {
	Create(ctx context.Context, tmpl *models.MessageTemplate) error
	Get(ctx context.Context, id string) (*models.MessageTemplate, error)
	GetByName(ctx context.Context, name string) (*models.MessageTemplate, error)
	List(ctx context.Context, category models.MessageCategory) ([]models.MessageTemplate, error)
	IncrementUsage(ctx context.Context, id string, usedAt time.Time) error
}

// PostgresRepository implements Repository over the message_templates table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const templateColumns = `id, name, category, body, variables, usage_count, last_used_at, created_at`

func (r *PostgresRepository) Create(ctx context.Context, tmpl *models.MessageTemplate) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO message_templates (id, name, category, body, variables, usage_count, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tmpl.ID, tmpl.Name, tmpl.Category, tmpl.Body, pq.Array(tmpl.Variables),
		tmpl.UsageCount, tmpl.LastUsedAt, tmpl.CreatedAt)
	if err != nil {
		return commonerrors.NewLedgerWriteFailedError("templates", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.MessageTemplate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM message_templates WHERE id = $1`, id)
	tmpl, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, commonerrors.NewTemplateNotFoundError(id)
	}
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("templates", err)
	}
	return tmpl, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.MessageTemplate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM message_templates WHERE name = $1`, name)
	tmpl, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, commonerrors.NewTemplateNotFoundError(name)
	}
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("templates", err)
	}
	return tmpl, nil
}

func (r *PostgresRepository) List(ctx context.Context, category models.MessageCategory) ([]models.MessageTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM message_templates ORDER BY name`
	args := []interface{}{}
	if category != "" {
		query = `SELECT ` + templateColumns + ` FROM message_templates WHERE category = $1 ORDER BY name`
		args = append(args, category)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("templates", err)
	}
	defer rows.Close()

	var templates []models.MessageTemplate
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, commonerrors.NewLedgerQueryFailedError("templates", err)
		}
		templates = append(templates, *tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("templates", err)
	}
	return templates, nil
}

func (r *PostgresRepository) IncrementUsage(ctx context.Context, id string, usedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE message_templates SET usage_count = usage_count + 1, last_used_at = $1 WHERE id = $2`,
		usedAt, id)
	if err != nil {
		return commonerrors.NewLedgerWriteFailedError("templates", err)
	}
	return nil
}

func scanTemplate(row interface{ Scan(...interface{}) error }) (*models.MessageTemplate, error) {
	var t models.MessageTemplate
	var lastUsed sql.NullTime
	if err := row.Scan(&t.ID, &t.Name, &t.Category, &t.Body, pq.Array(&t.Variables), &t.UsageCount, &lastUsed, &t.CreatedAt); err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		u := lastUsed.Time
		t.LastUsedAt = &u
	}
	return &t, nil
}
