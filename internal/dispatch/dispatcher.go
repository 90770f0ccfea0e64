// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/common/logger"
	"rentpulse/internal/common/metrics"
	"rentpulse/internal/gateway"
	"rentpulse/internal/models"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when a status write would move a record
// backwards or touch a record already in a terminal state.
var ErrInvalidTransition = errors.New("dispatch: invalid status transition")

// SegmentSize is the per-segment character limit used for cost accounting.
const SegmentSize = 160

// Sink receives a copy of every record that reaches a terminal status. Used
// to mirror records into the analytics index; failures there never affect the
// ledger.
type Sink interface {
	IndexDispatch(ctx context.Context, record *models.DispatchRecord)
}

// Dispatcher turns (recipient, body, category) into a ledger entry, performs
// the synchronous gateway accept/reject, and tracks an asynchronous
// resolution task per accepted record. Send returns as soon as the initial
// outcome is known; callers must never assume delivery has happened.
type Dispatcher struct {
	ledger         Ledger
	adapter        gateway.Adapter
	resolver       gateway.DeliveryResolver
	sink           Sink
	segmentPrice   float64
	resolveTimeout time.Duration
	logger         logger.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	root    context.Context
	stop    context.CancelFunc
}

type Options struct {
	SegmentPrice   float64
	ResolveTimeout time.Duration
	Sink           Sink // optional
}

func NewDispatcher(ledger Ledger, adapter gateway.Adapter, resolver gateway.DeliveryResolver, opts Options, log logger.Logger) *Dispatcher {
	root, stop := context.WithCancel(context.Background())
	return &Dispatcher{
		ledger:         ledger,
		adapter:        adapter,
		resolver:       resolver,
		sink:           opts.Sink,
		segmentPrice:   opts.SegmentPrice,
		resolveTimeout: opts.ResolveTimeout,
		logger:         log.WithFields(map[string]interface{}{"component": "dispatch"}),
		cancels:        make(map[string]context.CancelFunc),
		root:           root,
		stop:           stop,
	}
}

// Cost computes the deterministic message cost: one price unit per started
// 160-character segment, an empty body still counting as one segment. Pure,
// for auditability.
func Cost(body string, segmentPrice float64) float64 {
	segments := (len(body) + SegmentSize - 1) / SegmentSize
	if segments == 0 {
		segments = 1
	}
	return float64(segments) * segmentPrice
}

// Send validates the recipient, appends a pending record, and performs the
// synchronous gateway call. On accept the record moves to sent and a
// cancellable resolution task is scheduled; on reject it is failed
// immediately with the gateway's reason. The returned record reflects the
// state at return time.
func (d *Dispatcher) Send(ctx context.Context, recipient, body string, category models.MessageCategory) (*models.DispatchRecord, error) {
	if strings.TrimSpace(recipient) == "" {
		return nil, commonerrors.NewInvalidRecipientError(recipient)
	}

	record := &models.DispatchRecord{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Body:      body,
		Category:  category,
		Status:    models.DispatchStatusPending,
		Cost:      Cost(body, d.segmentPrice),
		CreatedAt: time.Now().UTC(),
	}
	if err := d.ledger.Append(ctx, record); err != nil {
		return nil, err
	}
	metrics.DispatchesCreated.WithLabelValues(string(category)).Inc()
	metrics.DispatchCost.WithLabelValues(string(category)).Add(record.Cost)

	result, err := d.adapter.SendRaw(ctx, recipient, body)
	if err != nil {
		// Transport-level failure is treated like a reject: terminal,
		// reported, not retried here.
		result = gateway.Result{Accepted: false, Reason: err.Error()}
	}

	if !result.Accepted {
		record.Status = models.DispatchStatusFailed
		record.FailureReason = result.Reason
		if err := d.ledger.MarkFailed(ctx, record.ID, result.Reason); err != nil {
			d.logger.Error("failed to record gateway reject", map[string]interface{}{
				"dispatchId": record.ID,
				"error":      err.Error(),
			})
		}
		d.finalize(record)
		return record, nil
	}

	record.Status = models.DispatchStatusSent
	record.GatewayRef = result.GatewayRef
	if err := d.ledger.MarkSent(ctx, record.ID, result.GatewayRef); err != nil {
		d.logger.Error("failed to record gateway accept", map[string]interface{}{
			"dispatchId": record.ID,
			"error":      err.Error(),
		})
	}

	d.scheduleResolution(record.ID, result.GatewayRef)
	return record, nil
}

// scheduleResolution starts the per-record asynchronous delivery resolution.
// Each task carries its own timeout and cancel handle so a shutdown or an
// explicit Cancel never leaves it untracked.
func (d *Dispatcher) scheduleResolution(id, gatewayRef string) {
	taskCtx, cancel := context.WithTimeout(d.root, d.resolveTimeout)

	d.mu.Lock()
	d.cancels[id] = cancel
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			cancel()
			d.mu.Lock()
			delete(d.cancels, id)
			d.mu.Unlock()
		}()

		d.resolve(taskCtx, id, gatewayRef)
	}()
}

func (d *Dispatcher) resolve(ctx context.Context, id, gatewayRef string) {
	delivered, reason, err := d.resolver.ResolveDelivery(ctx, gatewayRef)
	if err != nil {
		// Timed out or cancelled before the provider answered. The record
		// stays sent; the reconciler sweeps it to failed once stale.
		d.logger.Warn("delivery resolution interrupted", map[string]interface{}{
			"dispatchId": id,
			"error":      err.Error(),
		})
		return
	}

	// Ledger writes below use a fresh context: the resolution outcome is
	// known and must be recorded even if the task deadline just expired.
	writeCtx, cancelWrite := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelWrite()

	if delivered {
		if err := d.ledger.MarkDelivered(writeCtx, id, time.Now().UTC()); err != nil {
			d.logger.Error("failed to mark delivered", map[string]interface{}{
				"dispatchId": id,
				"error":      err.Error(),
			})
			return
		}
		metrics.DispatchesResolved.WithLabelValues(string(models.DispatchStatusDelivered)).Inc()
	} else {
		if err := d.ledger.MarkFailed(writeCtx, id, reason); err != nil {
			d.logger.Error("failed to mark failed", map[string]interface{}{
				"dispatchId": id,
				"error":      err.Error(),
			})
			return
		}
		metrics.DispatchesResolved.WithLabelValues(string(models.DispatchStatusFailed)).Inc()
	}

	if record, err := d.ledger.Get(writeCtx, id); err == nil {
		d.finalize(record)
	}
}

func (d *Dispatcher) finalize(record *models.DispatchRecord) {
	if d.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.sink.IndexDispatch(ctx, record)
}

// Cancel aborts the in-flight resolution for one record, if any.
func (d *Dispatcher) Cancel(id string) {
	d.mu.Lock()
	cancel, ok := d.cancels[id]
	d.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown cancels every in-flight resolution and waits for the tasks to
// drain. Records left in sent are picked up by the reconciler on the next
// start.
func (d *Dispatcher) Shutdown() {
	d.stop()
	d.wg.Wait()
}
