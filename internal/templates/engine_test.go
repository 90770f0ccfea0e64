// internal/templates/engine_test.go
package templates

import (
	"context"
	"testing"
	"time"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/common/logger"
	"rentpulse/internal/models"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Mock Implementations
// ==========================

type mockRepository struct {
	CreateFunc         func(ctx context.Context, tmpl *models.MessageTemplate) error
	GetFunc            func(ctx context.Context, id string) (*models.MessageTemplate, error)
	GetByNameFunc      func(ctx context.Context, name string) (*models.MessageTemplate, error)
	ListFunc           func(ctx context.Context, category models.MessageCategory) ([]models.MessageTemplate, error)
	IncrementUsageFunc func(ctx context.Context, id string, usedAt time.Time) error
}

func (m *mockRepository) Create(ctx context.Context, tmpl *models.MessageTemplate) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tmpl)
	}
	return nil
}

func (m *mockRepository) Get(ctx context.Context, id string) (*models.MessageTemplate, error) {
	return m.GetFunc(ctx, id)
}

func (m *mockRepository) GetByName(ctx context.Context, name string) (*models.MessageTemplate, error) {
	return m.GetByNameFunc(ctx, name)
}

func (m *mockRepository) List(ctx context.Context, category models.MessageCategory) ([]models.MessageTemplate, error) {
	return m.ListFunc(ctx, category)
}

func (m *mockRepository) IncrementUsage(ctx context.Context, id string, usedAt time.Time) error {
	if m.IncrementUsageFunc != nil {
		return m.IncrementUsageFunc(ctx, id, usedAt)
	}
	return nil
}

// ==========================
// Placeholder Tests
// ==========================

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []string
	}{
		{"no placeholders", "plain text body", nil},
		{"single placeholder", "Dear {tenantName}", []string{"tenantName"}},
		{"multiple placeholders", "Dear {tenantName}, unit {unitNumber} owes {amount}", []string{"tenantName", "unitNumber", "amount"}},
		{"repeated placeholder counted once", "{amount} and again {amount}", []string{"amount"}},
		{"underscore and digits allowed", "{due_date_1}", []string{"due_date_1"}},
		{"leading digit is not a placeholder", "{1amount}", nil},
		{"empty braces ignored", "{} {tenantName}", []string{"tenantName"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Placeholders(tt.body))
		})
	}
}

// ==========================
// Render Tests
// ==========================

func TestRender(t *testing.T) {
	tmpl := &models.MessageTemplate{
		ID:        "t-1",
		Name:      "payment_reminder",
		Body:      "Dear {tenantName}, rent of {amount} for unit {unitNumber} is due in {daysUntilDue} days.",
		Variables: []string{"tenantName", "amount", "unitNumber", "daysUntilDue"},
	}

	out, err := Render(tmpl, map[string]string{
		"tenantName":   "Alice",
		"amount":       "45000",
		"unitNumber":   "U1",
		"daysUntilDue": "3",
	})
	assert.NoError(t, err)
	assert.Equal(t, "Dear Alice, rent of 45000 for unit U1 is due in 3 days.", out)
}

func TestRender_MissingVariableFails(t *testing.T) {
	tmpl := &models.MessageTemplate{
		ID:   "t-1",
		Body: "Dear {tenantName}, rent of {amount} is due.",
	}

	out, err := Render(tmpl, map[string]string{"tenantName": "Alice"})
	assert.Empty(t, out, "nothing half-substituted is ever returned")
	assert.Error(t, err)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeTemplateRenderFailed))
	assert.True(t, commonerrors.IsValidation(err))
}

func TestRender_ExtraVariablesIgnored(t *testing.T) {
	tmpl := &models.MessageTemplate{ID: "t-1", Body: "Hello {tenantName}"}

	out, err := Render(tmpl, map[string]string{
		"tenantName": "Bob",
		"unused":     "whatever",
	})
	assert.NoError(t, err)
	assert.Equal(t, "Hello Bob", out)
}

func TestRender_Deterministic(t *testing.T) {
	tmpl := &models.MessageTemplate{
		ID:   "t-1",
		Body: "{a} {b} {c} {a}",
	}
	vars := map[string]string{"a": "1", "b": "2", "c": "3"}

	first, err := Render(tmpl, vars)
	assert.NoError(t, err)
	for i := 0; i < 20; i++ {
		out, err := Render(tmpl, vars)
		assert.NoError(t, err)
		assert.Equal(t, first, out)
	}
}

// ==========================
// Register Tests
// ==========================

func TestEngine_Register(t *testing.T) {
	tests := []struct {
		name         string
		tmplName     string
		body         string
		variables    []string
		expectErr    bool
		expectedCode commonerrors.ErrorCode
	}{
		{
			name:      "valid template",
			tmplName:  "payment_reminder",
			body:      "Dear {tenantName}, rent is due in {daysUntilDue} days.",
			variables: []string{"tenantName", "daysUntilDue"},
		},
		{
			name:      "no placeholders",
			tmplName:  "water_outage",
			body:      "Water will be off tomorrow morning.",
			variables: nil,
		},
		{
			name:         "empty name",
			tmplName:     "  ",
			body:         "body",
			expectErr:    true,
			expectedCode: commonerrors.ErrCodeValidationFailed,
		},
		{
			name:         "empty body",
			tmplName:     "reminder",
			body:         "",
			expectErr:    true,
			expectedCode: commonerrors.ErrCodeValidationFailed,
		},
		{
			name:         "undeclared placeholder",
			tmplName:     "reminder",
			body:         "Dear {tenantName}, owe {amount}",
			variables:    []string{"tenantName"},
			expectErr:    true,
			expectedCode: commonerrors.ErrCodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created *models.MessageTemplate
			repo := &mockRepository{
				CreateFunc: func(ctx context.Context, tmpl *models.MessageTemplate) error {
					created = tmpl
					return nil
				},
			}
			engine := NewEngine(repo, logger.NewNoOpLogger())

			tmpl, err := engine.Register(context.Background(), tt.tmplName, models.CategoryReminder, tt.body, tt.variables)
			if tt.expectErr {
				assert.Error(t, err)
				assert.True(t, commonerrors.IsCode(err, tt.expectedCode))
				assert.Nil(t, tmpl)
				assert.Nil(t, created, "invalid templates never reach the repository")
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, tmpl.ID)
			assert.Equal(t, tt.tmplName, tmpl.Name)
			assert.NotNil(t, created)
		})
	}
}

// ==========================
// Usage Tests
// ==========================

func TestEngine_RecordUsage_SwallowsRepositoryError(t *testing.T) {
	repo := &mockRepository{
		IncrementUsageFunc: func(ctx context.Context, id string, usedAt time.Time) error {
			return commonerrors.NewLedgerWriteFailedError("templates", assert.AnError)
		},
	}
	engine := NewEngine(repo, logger.NewNoOpLogger())

	// Usage accounting is analytics only; a failed bump must not panic or
	// surface to the send path.
	engine.RecordUsage(context.Background(), "t-1")
}
