// internal/engagement/scorer_test.go
package engagement

import (
	"context"
	"testing"
	"time"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/models"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Mock Implementations
// ==========================

type mockRents struct {
	entry *models.RentLedgerEntry
}

func (m *mockRents) Get(ctx context.Context, unitID string) (*models.RentLedgerEntry, error) {
	if m.entry == nil {
		return nil, commonerrors.NewUnitNotFoundError(unitID)
	}
	return m.entry, nil
}

func (m *mockRents) ListOccupied(ctx context.Context) ([]models.RentLedgerEntry, error) {
	return nil, nil
}

func (m *mockRents) ListByStatus(ctx context.Context, status models.RentStatus) ([]models.RentLedgerEntry, error) {
	return nil, nil
}

func (m *mockRents) Upsert(ctx context.Context, entry *models.RentLedgerEntry) error { return nil }

func (m *mockRents) MarkOverdue(ctx context.Context, unitID string, now time.Time) (bool, error) {
	return false, nil
}

func (m *mockRents) RecordPayment(ctx context.Context, unitID string, paidAt time.Time) error {
	return nil
}

type mockDispatchLedger struct {
	records []models.DispatchRecord
	since   time.Time
}

func (m *mockDispatchLedger) Append(ctx context.Context, record *models.DispatchRecord) error {
	return nil
}

func (m *mockDispatchLedger) MarkSent(ctx context.Context, id, gatewayRef string) error { return nil }

func (m *mockDispatchLedger) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	return nil
}

func (m *mockDispatchLedger) MarkFailed(ctx context.Context, id, reason string) error { return nil }

func (m *mockDispatchLedger) Get(ctx context.Context, id string) (*models.DispatchRecord, error) {
	return nil, nil
}

func (m *mockDispatchLedger) ListByRecipient(ctx context.Context, recipient string, since time.Time) ([]models.DispatchRecord, error) {
	m.since = since
	return m.records, nil
}

func (m *mockDispatchLedger) ListStale(ctx context.Context, olderThan time.Time) ([]models.DispatchRecord, error) {
	return nil, nil
}

// ==========================
// Test Helper Functions
// ==========================

func dispatches(n int) []models.DispatchRecord {
	out := make([]models.DispatchRecord, n)
	for i := range out {
		out[i] = models.DispatchRecord{ID: "d", Status: models.DispatchStatusDelivered}
	}
	return out
}

// ==========================
// Score Tests
// ==========================

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		status    models.RentStatus
		nDispatch int
		expected  int
	}{
		{"baseline pending with some dispatches", models.RentStatusPending, 3, 50},
		{"paid with zero dispatches", models.RentStatusPaid, 0, 90},
		{"paid with some dispatches", models.RentStatusPaid, 2, 80},
		{"paid but chatty", models.RentStatusPaid, 6, 65},
		{"overdue with some dispatches", models.RentStatusOverdue, 3, 30},
		{"overdue and chatty", models.RentStatusOverdue, 6, 15},
		{"overdue with zero dispatches", models.RentStatusOverdue, 0, 40},
		{"pending with zero dispatches", models.RentStatusPending, 0, 60},
		{"exactly five dispatches is not chatty", models.RentStatusPending, 5, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &models.RentLedgerEntry{UnitID: "U1", Status: tt.status}
			assert.Equal(t, tt.expected, Score(entry, dispatches(tt.nDispatch)))
		})
	}
}

func TestScore_ClampedToRange(t *testing.T) {
	for _, status := range []models.RentStatus{models.RentStatusVacant, models.RentStatusPending, models.RentStatusPaid, models.RentStatusOverdue} {
		for n := 0; n <= 10; n++ {
			entry := &models.RentLedgerEntry{UnitID: "U1", Status: status}
			score := Score(entry, dispatches(n))
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}

// ==========================
// ScoreUnit Tests
// ==========================

func TestScorer_ScoreUnit(t *testing.T) {
	rents := &mockRents{entry: &models.RentLedgerEntry{
		UnitID:        "U1",
		TenantContact: "+254700000001",
		Status:        models.RentStatusPaid,
	}}
	ledger := &mockDispatchLedger{records: dispatches(2)}
	scorer := NewScorer(rents, ledger)

	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	score, err := scorer.ScoreUnit(context.Background(), "U1", now)
	assert.NoError(t, err)
	assert.Equal(t, 80, score)
	assert.True(t, ledger.since.Equal(now.Add(-RecentWindow)), "only the trailing 30 days count")
}

func TestScorer_ScoreUnit_UnknownUnit(t *testing.T) {
	scorer := NewScorer(&mockRents{}, &mockDispatchLedger{})

	score, err := scorer.ScoreUnit(context.Background(), "U9", time.Now().UTC())
	assert.Zero(t, score)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeUnitNotFound))
}
