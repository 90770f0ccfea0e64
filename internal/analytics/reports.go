// internal/analytics/reports.go
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rentpulse/internal/common/logger"
	"rentpulse/internal/dispatch"
	"rentpulse/internal/engagement"
	"rentpulse/internal/models"
	"rentpulse/internal/rentledger"

	"github.com/elastic/go-elasticsearch/v8"
)

// DispatchSummary is the aggregate view exposed to reporting UIs.
type DispatchSummary struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"byStatus"`
	ByCategory   map[string]int64 `json:"byCategory"`
	TotalCost    float64          `json:"totalCost"`
	DeliveryRate float64          `json:"deliveryRate"`
}

// EngagementBucket is one slice of the tenant engagement distribution.
type EngagementBucket struct {
	Label string `json:"label"` // "low", "medium", "high"
	Count int    `json:"count"`
}

// Reports answers aggregate questions. Summaries always return the best-known
// numbers; a unit that cannot be scored is skipped, not fatal.
type Reports struct {
	es     *elasticsearch.Client
	index  string
	ledger dispatch.Ledger
	rents  rentledger.Repository
	scorer *engagement.Scorer
	logger logger.Logger
}

func NewReports(es *elasticsearch.Client, index string, ledger dispatch.Ledger, rents rentledger.Repository, scorer *engagement.Scorer, log logger.Logger) *Reports {
	return &Reports{
		es:     es,
		index:  index,
		ledger: ledger,
		rents:  rents,
		scorer: scorer,
		logger: log.WithFields(map[string]interface{}{"component": "analytics"}),
	}
}

const summaryQuery = `{
	"size": 0,
	"aggs": {
		"by_status": {"terms": {"field": "status.keyword"}},
		"by_category": {"terms": {"field": "category.keyword"}},
		"total_cost": {"sum": {"field": "cost"}}
	}
}`

// Summary aggregates the mirrored dispatch index.
func (r *Reports) Summary(ctx context.Context) (*DispatchSummary, error) {
	res, err := r.es.Search(
		r.es.Search.WithContext(ctx),
		r.es.Search.WithIndex(r.index),
		r.es.Search.WithBody(strings.NewReader(summaryQuery)),
	)
	if err != nil {
		return nil, fmt.Errorf("summary search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("summary search error: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
		} `json:"hits"`
		Aggregations struct {
			ByStatus struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"by_status"`
			ByCategory struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"by_category"`
			TotalCost struct {
				Value float64 `json:"value"`
			} `json:"total_cost"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode summary response: %w", err)
	}

	summary := &DispatchSummary{
		Total:      parsed.Hits.Total.Value,
		ByStatus:   make(map[string]int64),
		ByCategory: make(map[string]int64),
		TotalCost:  parsed.Aggregations.TotalCost.Value,
	}
	for _, b := range parsed.Aggregations.ByStatus.Buckets {
		summary.ByStatus[b.Key] = b.DocCount
	}
	for _, b := range parsed.Aggregations.ByCategory.Buckets {
		summary.ByCategory[b.Key] = b.DocCount
	}

	delivered := summary.ByStatus[string(models.DispatchStatusDelivered)]
	failed := summary.ByStatus[string(models.DispatchStatusFailed)]
	if resolved := delivered + failed; resolved > 0 {
		summary.DeliveryRate = float64(delivered) / float64(resolved)
	}
	return summary, nil
}

// RecipientHistory returns the dispatch history for one recipient straight
// from the authoritative ledger.
func (r *Reports) RecipientHistory(ctx context.Context, recipient string, since time.Time) ([]models.DispatchRecord, error) {
	return r.ledger.ListByRecipient(ctx, recipient, since)
}

// EngagementDistribution buckets all occupied units by engagement score:
// low < 40, medium 40-69, high >= 70.
func (r *Reports) EngagementDistribution(ctx context.Context, now time.Time) ([]EngagementBucket, error) {
	entries, err := r.rents.ListOccupied(ctx)
	if err != nil {
		return nil, err
	}

	buckets := map[string]int{"low": 0, "medium": 0, "high": 0}
	for i := range entries {
		score, err := r.scorer.ScoreUnit(ctx, entries[i].UnitID, now)
		if err != nil {
			r.logger.Warn("score skipped for unit", map[string]interface{}{
				"unitId": entries[i].UnitID,
				"error":  err.Error(),
			})
			continue
		}
		switch {
		case score < 40:
			buckets["low"]++
		case score < 70:
			buckets["medium"]++
		default:
			buckets["high"]++
		}
	}

	return []EngagementBucket{
		{Label: "low", Count: buckets["low"]},
		{Label: "medium", Count: buckets["medium"]},
		{Label: "high", Count: buckets["high"]},
	}, nil
}
