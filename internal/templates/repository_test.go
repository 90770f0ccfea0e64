// internal/templates/repository_test.go
package templates

import (
	"context"
	"database/sql"
	"testing"
	"time"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestPostgresRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO message_templates`).
		WithArgs("t-1", "payment_reminder", string(models.CategoryReminder),
			"Dear {tenantName}", sqlmock.AnyArg(), 0, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	err = repo.Create(context.Background(), &models.MessageTemplate{
		ID:        "t-1",
		Name:      "payment_reminder",
		Category:  models.CategoryReminder,
		Body:      "Dear {tenantName}",
		Variables: []string{"tenantName"},
		CreatedAt: time.Now().UTC(),
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByName(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	createdAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM message_templates WHERE name = \$1`).
		WithArgs("payment_reminder").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "category", "body", "variables", "usage_count", "last_used_at", "created_at",
		}).AddRow("t-1", "payment_reminder", "reminder", "Dear {tenantName}", "{tenantName}", 4, nil, createdAt))

	repo := NewPostgresRepository(db)
	tmpl, err := repo.GetByName(context.Background(), "payment_reminder")
	assert.NoError(t, err)
	assert.Equal(t, "t-1", tmpl.ID)
	assert.Equal(t, models.CategoryReminder, tmpl.Category)
	assert.Equal(t, []string{"tenantName"}, tmpl.Variables)
	assert.Equal(t, 4, tmpl.UsageCount)
	assert.Nil(t, tmpl.LastUsedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByName_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM message_templates WHERE name = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := NewPostgresRepository(db)
	tmpl, err := repo.GetByName(context.Background(), "missing")
	assert.Nil(t, tmpl)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeTemplateNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_List_FiltersByCategory(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	createdAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM message_templates WHERE category = \$1 ORDER BY name`).
		WithArgs(string(models.CategoryOverdue)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "category", "body", "variables", "usage_count", "last_used_at", "created_at",
		}).
			AddRow("t-2", "final_notice", "overdue", "Final notice for {unitNumber}", "{unitNumber}", 0, nil, createdAt).
			AddRow("t-3", "overdue_notice", "overdue", "Unit {unitNumber} is overdue", "{unitNumber}", 2, nil, createdAt))

	repo := NewPostgresRepository(db)
	list, err := repo.List(context.Background(), models.CategoryOverdue)
	assert.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "final_notice", list[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_IncrementUsage(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	usedAt := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE message_templates SET usage_count = usage_count \+ 1, last_used_at = \$1 WHERE id = \$2`).
		WithArgs(usedAt, "t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	assert.NoError(t, repo.IncrementUsage(context.Background(), "t-1", usedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
