// internal/dispatch/ledger.go
package dispatch

import (
	"context"
	"database/sql"
	"time"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/models"
)

// Ledger is the authoritative store for dispatch records. Status updates go
// through conditional writes keyed on the current status, which gives the
// single-writer-per-record discipline without a global lock.
type Ledger interface {
	Append(ctx context.Context, record *models.DispatchRecord) error
	MarkSent(ctx context.Context, id, gatewayRef string) error
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error
	MarkFailed(ctx context.Context, id, reason string) error
	Get(ctx context.Context, id string) (*models.DispatchRecord, error)
	ListByRecipient(ctx context.Context, recipient string, since time.Time) ([]models.DispatchRecord, error)
	ListStale(ctx context.Context, olderThan time.Time) ([]models.DispatchRecord, error)
}

// PostgresLedger implements Ledger over the dispatch_ledger table.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const recordColumns = `id, recipient, body, category, status, cost, COALESCE(gateway_ref, ''), COALESCE(failure_reason, ''), created_at, delivered_at`

func (l *PostgresLedger) Append(ctx context.Context, record *models.DispatchRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO dispatch_ledger (id, recipient, body, category, status, cost, gateway_ref, failure_reason, created_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID, record.Recipient, record.Body, record.Category, record.Status,
		record.Cost, nullable(record.GatewayRef), nullable(record.FailureReason),
		record.CreatedAt, record.DeliveredAt)
	if err != nil {
		return commonerrors.NewLedgerWriteFailedError("dispatch", err)
	}
	return nil
}

// MarkSent moves a pending record to sent. The status guard in the WHERE
// clause keeps the machine forward-only even under concurrent writers.
func (l *PostgresLedger) MarkSent(ctx context.Context, id, gatewayRef string) error {
	return l.transition(ctx, `
		UPDATE dispatch_ledger SET status = $1, gateway_ref = $2
		WHERE id = $3 AND status = $4`,
		models.DispatchStatusSent, gatewayRef, id, models.DispatchStatusPending)
}

func (l *PostgresLedger) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	return l.transition(ctx, `
		UPDATE dispatch_ledger SET status = $1, delivered_at = $2
		WHERE id = $3 AND status = $4`,
		models.DispatchStatusDelivered, deliveredAt, id, models.DispatchStatusSent)
}

// MarkFailed is valid from either pending (gateway reject) or sent (failed
// delivery, reconciliation timeout).
func (l *PostgresLedger) MarkFailed(ctx context.Context, id, reason string) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE dispatch_ledger SET status = $1, failure_reason = $2
		WHERE id = $3 AND status IN ($4, $5)`,
		models.DispatchStatusFailed, reason, id,
		models.DispatchStatusPending, models.DispatchStatusSent)
	if err != nil {
		return commonerrors.NewLedgerWriteFailedError("dispatch", err)
	}
	return checkTransition(res)
}

func (l *PostgresLedger) transition(ctx context.Context, query string, args ...interface{}) error {
	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return commonerrors.NewLedgerWriteFailedError("dispatch", err)
	}
	return checkTransition(res)
}

func checkTransition(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return commonerrors.NewLedgerWriteFailedError("dispatch", err)
	}
	if n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (l *PostgresLedger) Get(ctx context.Context, id string) (*models.DispatchRecord, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM dispatch_ledger WHERE id = $1`, id)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, commonerrors.NewValidationFailedError("dispatch record not found: " + id)
	}
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("dispatch", err)
	}
	return record, nil
}

func (l *PostgresLedger) ListByRecipient(ctx context.Context, recipient string, since time.Time) ([]models.DispatchRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM dispatch_ledger
		WHERE recipient = $1 AND created_at >= $2
		ORDER BY created_at DESC`, recipient, since)
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("dispatch", err)
	}
	return collectRecords(rows)
}

// ListStale returns non-terminal records whose creation predates olderThan;
// the reconciler sweeps these to failed. Covers records stuck in sent with no
// delivery resolution, and records orphaned in pending by a crash between the
// append and the gateway call.
func (l *PostgresLedger) ListStale(ctx context.Context, olderThan time.Time) ([]models.DispatchRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM dispatch_ledger
		WHERE status IN ($1, $2) AND created_at < $3
		ORDER BY created_at`, models.DispatchStatusPending, models.DispatchStatusSent, olderThan)
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("dispatch", err)
	}
	return collectRecords(rows)
}

func scanRecord(row interface{ Scan(...interface{}) error }) (*models.DispatchRecord, error) {
	var r models.DispatchRecord
	var deliveredAt sql.NullTime
	if err := row.Scan(&r.ID, &r.Recipient, &r.Body, &r.Category, &r.Status, &r.Cost, &r.GatewayRef, &r.FailureReason, &r.CreatedAt, &deliveredAt); err != nil {
		return nil, err
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		r.DeliveredAt = &t
	}
	return &r, nil
}

func collectRecords(rows *sql.Rows) ([]models.DispatchRecord, error) {
	defer rows.Close()

	var records []models.DispatchRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, commonerrors.NewLedgerQueryFailedError("dispatch", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("dispatch", err)
	}
	return records, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
