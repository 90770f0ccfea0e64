// internal/analytics/indexer.go
package analytics

import (
	"bytes"
	"context"
	"encoding/json"

	"rentpulse/internal/common/logger"
	"rentpulse/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// Indexer mirrors terminally-resolved dispatch records into Elasticsearch for
// reporting. The ledger stays authoritative; an indexing failure is logged
// and dropped, never surfaced to the dispatch path.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "analytics"}),
	}
}

// IndexDispatch upserts one record by its dispatch id, so re-indexing after a
// reconciliation rewrite is idempotent.
func (ix *Indexer) IndexDispatch(ctx context.Context, record *models.DispatchRecord) {
	body, err := json.Marshal(record)
	if err != nil {
		ix.logger.Error("marshal dispatch record", map[string]interface{}{
			"dispatchId": record.ID,
			"error":      err.Error(),
		})
		return
	}

	res, err := ix.client.Index(
		ix.index,
		bytes.NewReader(body),
		ix.client.Index.WithDocumentID(record.ID),
		ix.client.Index.WithContext(ctx),
	)
	if err != nil {
		ix.logger.Warn("dispatch index failed", map[string]interface{}{
			"dispatchId": record.ID,
			"error":      err.Error(),
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		ix.logger.Warn("dispatch index error", map[string]interface{}{
			"dispatchId": record.ID,
			"status":     res.Status(),
		})
	}
}
