// internal/directory/directory.go
package directory

import (
	"context"
	"database/sql"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/models"
)

// UnitDirectory is the read-only lookup contract over the property registry.
// The registry itself lives outside this engine; consumers only ever read.
type UnitDirectory interface {
	OccupiedUnits(ctx context.Context) ([]models.Unit, error)
	GetUnit(ctx context.Context, unitID string) (*models.Unit, error)
}

// PostgresDirectory reads the registry's units table directly.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

const unitColumns = `id, unit_number, floor, occupied, COALESCE(tenant_name, ''), COALESCE(tenant_contact, ''), COALESCE(monthly_rent, 0)`

func (d *PostgresDirectory) OccupiedUnits(ctx context.Context) ([]models.Unit, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+unitColumns+` FROM units WHERE occupied = true ORDER BY id`)
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("directory", err)
	}
	defer rows.Close()

	var units []models.Unit
	for rows.Next() {
		var u models.Unit
		if err := rows.Scan(&u.ID, &u.Number, &u.Floor, &u.Occupied, &u.TenantName, &u.TenantContact, &u.MonthlyRent); err != nil {
			return nil, commonerrors.NewLedgerQueryFailedError("directory", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("directory", err)
	}
	return units, nil
}

func (d *PostgresDirectory) GetUnit(ctx context.Context, unitID string) (*models.Unit, error) {
	var u models.Unit
	err := d.db.QueryRowContext(ctx,
		`SELECT `+unitColumns+` FROM units WHERE id = $1`, unitID).
		Scan(&u.ID, &u.Number, &u.Floor, &u.Occupied, &u.TenantName, &u.TenantContact, &u.MonthlyRent)
	if err == sql.ErrNoRows {
		return nil, commonerrors.NewUnitNotFoundError(unitID)
	}
	if err != nil {
		return nil, commonerrors.NewLedgerQueryFailedError("directory", err)
	}
	return &u, nil
}
