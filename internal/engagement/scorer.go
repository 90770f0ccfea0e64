// internal/engagement/scorer.go
package engagement

import (
	"context"
	"time"

	"rentpulse/internal/dispatch"
	"rentpulse/internal/models"
	"rentpulse/internal/rentledger"
)

// RecentWindow is how far back dispatch history counts toward the score.
const RecentWindow = 30 * 24 * time.Hour

// Score derives a 0-100 communication score from a unit's rent status and its
// recent dispatch volume. This is an explicit heuristic, not a statistical
// model: 50 baseline, +30 paid, -20 overdue, +10 for zero recent dispatches,
// -15 for more than five. The thresholds are load-bearing for downstream
// dashboards; change them and the historical distributions shift.
func Score(entry *models.RentLedgerEntry, recentDispatches []models.DispatchRecord) int {
	score := 50

	switch entry.Status {
	case models.RentStatusPaid:
		score += 30
	case models.RentStatusOverdue:
		score -= 20
	}

	switch n := len(recentDispatches); {
	case n == 0:
		score += 10
	case n > 5:
		score -= 15
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Scorer computes scores from the authoritative ledgers.
type Scorer struct {
	rents    rentledger.Repository
	dispatch dispatch.Ledger
}

func NewScorer(rents rentledger.Repository, ledger dispatch.Ledger) *Scorer {
	return &Scorer{rents: rents, dispatch: ledger}
}

// ScoreUnit computes the current engagement score for one unit.
func (s *Scorer) ScoreUnit(ctx context.Context, unitID string, now time.Time) (int, error) {
	entry, err := s.rents.Get(ctx, unitID)
	if err != nil {
		return 0, err
	}
	recent, err := s.dispatch.ListByRecipient(ctx, entry.TenantContact, now.Add(-RecentWindow))
	if err != nil {
		return 0, err
	}
	return Score(entry, recent), nil
}
