// internal/rentledger/repository.go
package rentledger

import (
	"context"
	"database/sql"
	"time"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/models"
)

// Repository is the authoritative store for per-unit rent records. Writes are
// per-unit and independent; no cross-unit transaction is needed.
type Repository interface {
	Get(ctx context.Context, unitID string) (*models.RentLedgerEntry, error)
	ListOccupied(ctx context.Context) ([]models.RentLedgerEntry, error)
	ListByStatus(ctx context.Context, status models.RentStatus) ([]models.RentLedgerEntry, error)
	Upsert(ctx context.Context, entry *models.RentLedgerEntry) error
	// MarkOverdue flips a pending entry to overdue. Returns false when the
	// entry is no longer pending, so a payment confirmation that lands after
	// the caller's scan is never overwritten.
	MarkOverdue(ctx context.Context, unitID string, now time.Time) (bool, error)
	RecordPayment(ctx context.Context, unitID string, paidAt time.Time) error
}

// PostgresRepository implements Repository over the rent_ledger table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const entryColumns = `unit_id, tenant_contact, monthly_amount, due_date, grace_days, status, last_payment_date, updated_at`

func scanEntry(row interface{ Scan(...interface{}) error }) (*models.RentLedgerEntry, error) {
	var e models.RentLedgerEntry
	var lastPayment sql.NullTime
	if err := row.Scan(&e.UnitID, &e.TenantContact, &e.MonthlyAmount, &e.DueDate, &e.GraceDays, &e.Status, &lastPayment, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if lastPayment.Valid {
		t := lastPayment.Time
		e.LastPaymentDate = &t
	}
	return &e, nil
}

func (r *PostgresRepository) Get(ctx context.Context, unitID string) (*models.RentLedgerEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM rent_ledger WHERE unit_id = $1`, unitID)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, commonerrors.NewUnitNotFoundError(unitID)
	}
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("rent", err)
	}
	return entry, nil
}

func (r *PostgresRepository) ListOccupied(ctx context.Context) ([]models.RentLedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM rent_ledger WHERE status != $1 ORDER BY unit_id`,
		models.RentStatusVacant)
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("rent", err)
	}
	return collectEntries(rows)
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status models.RentStatus) ([]models.RentLedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM rent_ledger WHERE status = $1 ORDER BY unit_id`, status)
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("rent", err)
	}
	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]models.RentLedgerEntry, error) {
	defer rows.Close()

	var entries []models.RentLedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, commonerrors.NewLedgerQueryFailedError("rent", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("rent", err)
	}
	return entries, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, entry *models.RentLedgerEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rent_ledger (unit_id, tenant_contact, monthly_amount, due_date, grace_days, status, last_payment_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (unit_id) DO UPDATE SET
			tenant_contact = EXCLUDED.tenant_contact,
			monthly_amount = EXCLUDED.monthly_amount,
			due_date = EXCLUDED.due_date,
			grace_days = EXCLUDED.grace_days,
			status = EXCLUDED.status,
			last_payment_date = EXCLUDED.last_payment_date,
			updated_at = EXCLUDED.updated_at`,
		entry.UnitID, entry.TenantContact, entry.MonthlyAmount, entry.DueDate,
		entry.GraceDays, entry.Status, entry.LastPaymentDate, entry.UpdatedAt)
	if err != nil {
		return commonerrors.NewLedgerWriteFailedError("rent", err)
	}
	return nil
}

func (r *PostgresRepository) MarkOverdue(ctx context.Context, unitID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rent_ledger SET status = $1, updated_at = $2 WHERE unit_id = $3 AND status = $4`,
		models.RentStatusOverdue, now, unitID, models.RentStatusPending)
	if err != nil {
		return false, commonerrors.NewLedgerWriteFailedError("rent", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, commonerrors.NewLedgerWriteFailedError("rent", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) RecordPayment(ctx context.Context, unitID string, paidAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rent_ledger SET status = $1, last_payment_date = $2, updated_at = $3 WHERE unit_id = $4`,
		models.RentStatusPaid, paidAt, paidAt, unitID)
	if err != nil {
		return commonerrors.NewLedgerWriteFailedError("rent", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return commonerrors.NewUnitNotFoundError(unitID)
	}
	return nil
}
