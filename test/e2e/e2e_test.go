// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentpulse/internal/campaign"
	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/common/logger"
	"rentpulse/internal/dispatch"
	"rentpulse/internal/engagement"
	"rentpulse/internal/gateway"
	"rentpulse/internal/models"
	"rentpulse/internal/reminder"
	"rentpulse/internal/rentcycle"
	"rentpulse/internal/templates"
	"rentpulse/pkg/catalog"
)

// ==========================
// In-Memory Stores
// ==========================

type memRentLedger struct {
	mu      sync.Mutex
	entries map[string]*models.RentLedgerEntry
}

func newMemRentLedger() *memRentLedger {
	return &memRentLedger{entries: make(map[string]*models.RentLedgerEntry)}
}

func (m *memRentLedger) Get(ctx context.Context, unitID string) (*models.RentLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[unitID]
	if !ok {
		return nil, commonerrors.NewUnitNotFoundError(unitID)
	}
	copied := *e
	return &copied, nil
}

func (m *memRentLedger) ListOccupied(ctx context.Context) ([]models.RentLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RentLedgerEntry
	for _, id := range []string{"U1", "U2"} {
		if e, ok := m.entries[id]; ok && e.Status != models.RentStatusVacant {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memRentLedger) ListByStatus(ctx context.Context, status models.RentStatus) ([]models.RentLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RentLedgerEntry
	for _, e := range m.entries {
		if e.Status == status {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memRentLedger) Upsert(ctx context.Context, entry *models.RentLedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *entry
	m.entries[entry.UnitID] = &copied
	return nil
}

func (m *memRentLedger) MarkOverdue(ctx context.Context, unitID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[unitID]
	if !ok {
		return false, commonerrors.NewUnitNotFoundError(unitID)
	}
	if e.Status != models.RentStatusPending {
		return false, nil
	}
	e.Status = models.RentStatusOverdue
	e.UpdatedAt = now
	return true, nil
}

func (m *memRentLedger) RecordPayment(ctx context.Context, unitID string, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[unitID]
	if !ok {
		return commonerrors.NewUnitNotFoundError(unitID)
	}
	e.Status = models.RentStatusPaid
	e.LastPaymentDate = &paidAt
	e.UpdatedAt = paidAt
	return nil
}

type memDirectory struct {
	units map[string]*models.Unit
}

func (m *memDirectory) OccupiedUnits(ctx context.Context) ([]models.Unit, error) {
	var out []models.Unit
	for _, id := range []string{"U1", "U2"} {
		if u, ok := m.units[id]; ok && u.Occupied {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memDirectory) GetUnit(ctx context.Context, unitID string) (*models.Unit, error) {
	u, ok := m.units[unitID]
	if !ok {
		return nil, commonerrors.NewUnitNotFoundError(unitID)
	}
	copied := *u
	return &copied, nil
}

type memTemplates struct {
	mu    sync.Mutex
	byID  map[string]*models.MessageTemplate
	usage map[string]int
}

func newMemTemplates() *memTemplates {
	return &memTemplates{byID: make(map[string]*models.MessageTemplate), usage: make(map[string]int)}
}

func (m *memTemplates) Create(ctx context.Context, tmpl *models.MessageTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *tmpl
	m.byID[tmpl.ID] = &copied
	return nil
}

func (m *memTemplates) Get(ctx context.Context, id string) (*models.MessageTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, commonerrors.NewTemplateNotFoundError(id)
	}
	copied := *t
	return &copied, nil
}

func (m *memTemplates) GetByName(ctx context.Context, name string) (*models.MessageTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byID {
		if t.Name == name {
			copied := *t
			return &copied, nil
		}
	}
	return nil, commonerrors.NewTemplateNotFoundError(name)
}

func (m *memTemplates) List(ctx context.Context, category models.MessageCategory) ([]models.MessageTemplate, error) {
	return nil, nil
}

func (m *memTemplates) IncrementUsage(ctx context.Context, id string, usedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[id]++
	return nil
}

type memDispatchLedger struct {
	mu      sync.Mutex
	records map[string]*models.DispatchRecord
	order   []string
}

func newMemDispatchLedger() *memDispatchLedger {
	return &memDispatchLedger{records: make(map[string]*models.DispatchRecord)}
}

func (m *memDispatchLedger) Append(ctx context.Context, record *models.DispatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.records[record.ID] = &copied
	m.order = append(m.order, record.ID)
	return nil
}

func (m *memDispatchLedger) move(id string, next models.DispatchStatus, apply func(*models.DispatchRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || !r.Status.CanTransitionTo(next) {
		return dispatch.ErrInvalidTransition
	}
	r.Status = next
	apply(r)
	return nil
}

func (m *memDispatchLedger) MarkSent(ctx context.Context, id, gatewayRef string) error {
	return m.move(id, models.DispatchStatusSent, func(r *models.DispatchRecord) { r.GatewayRef = gatewayRef })
}

func (m *memDispatchLedger) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	return m.move(id, models.DispatchStatusDelivered, func(r *models.DispatchRecord) { r.DeliveredAt = &deliveredAt })
}

func (m *memDispatchLedger) MarkFailed(ctx context.Context, id, reason string) error {
	return m.move(id, models.DispatchStatusFailed, func(r *models.DispatchRecord) { r.FailureReason = reason })
}

func (m *memDispatchLedger) Get(ctx context.Context, id string) (*models.DispatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *r
	return &copied, nil
}

func (m *memDispatchLedger) ListByRecipient(ctx context.Context, recipient string, since time.Time) ([]models.DispatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DispatchRecord
	for _, id := range m.order {
		r := m.records[id]
		if r.Recipient == recipient && !r.CreatedAt.Before(since) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memDispatchLedger) ListStale(ctx context.Context, olderThan time.Time) ([]models.DispatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DispatchRecord
	for _, id := range m.order {
		r := m.records[id]
		stuck := r.Status == models.DispatchStatusPending || r.Status == models.DispatchStatusSent
		if stuck && r.CreatedAt.Before(olderThan) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memDispatchLedger) all() []models.DispatchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.DispatchRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.records[id])
	}
	return out
}

type memCampaigns struct {
	mu        sync.Mutex
	campaigns map[string]*models.Campaign
}

func newMemCampaigns() *memCampaigns {
	return &memCampaigns{campaigns: make(map[string]*models.Campaign)}
}

func (m *memCampaigns) Create(ctx context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *c
	m.campaigns[c.ID] = &copied
	return nil
}

func (m *memCampaigns) Get(ctx context.Context, id string) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, commonerrors.NewCampaignNotFoundError(id)
	}
	copied := *c
	return &copied, nil
}

func (m *memCampaigns) List(ctx context.Context) ([]models.Campaign, error) { return nil, nil }

func (m *memCampaigns) ListScheduledDue(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Campaign
	for _, c := range m.campaigns {
		if c.Status == models.CampaignStatusScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCampaigns) UpdateStatus(ctx context.Context, id string, status models.CampaignStatus, sentAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return commonerrors.NewCampaignNotFoundError(id)
	}
	c.Status = status
	if sentAt != nil {
		c.SentAt = sentAt
	}
	return nil
}

func (m *memCampaigns) AddResult(ctx context.Context, id string, sent, failed int, cost float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return commonerrors.NewCampaignNotFoundError(id)
	}
	c.Results.Sent += sent
	c.Results.Failed += failed
	c.Results.TotalCost += cost
	return nil
}

// ==========================
// Full Month Scenario
// ==========================

// Walks two units through January 2025 with the real engine, scheduler,
// dispatcher, campaign orchestrator and scorer wired over in-memory stores
// and the simulated gateway: U1 never pays until day 10 overdue, U2 pays
// upfront and stays quiet.
func TestFullRentCycle(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNoOpLogger()

	const (
		u1Contact = "+254700000001"
		u2Contact = "+254700000002"
	)
	dueDate := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	paidUpfront := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	rents := newMemRentLedger()
	require.NoError(t, rents.Upsert(ctx, &models.RentLedgerEntry{
		UnitID: "U1", TenantContact: u1Contact, MonthlyAmount: 45000,
		DueDate: dueDate, GraceDays: 5, Status: models.RentStatusPending,
	}))
	require.NoError(t, rents.Upsert(ctx, &models.RentLedgerEntry{
		UnitID: "U2", TenantContact: u2Contact, MonthlyAmount: 52000,
		DueDate: dueDate, GraceDays: 5, Status: models.RentStatusPaid,
		LastPaymentDate: &paidUpfront,
	}))

	units := &memDirectory{units: map[string]*models.Unit{
		"U1": {ID: "U1", Number: "A1", Floor: 1, Occupied: true, TenantName: "Alice", TenantContact: u1Contact, MonthlyRent: 45000},
		"U2": {ID: "U2", Number: "A2", Floor: 1, Occupied: true, TenantName: "Bob", TenantContact: u2Contact, MonthlyRent: 52000},
	}}

	tmplRepo := newMemTemplates()
	catalogEngine := templates.NewEngine(tmplRepo, log)
	for _, seed := range catalog.Stock().Templates {
		_, err := catalogEngine.Register(ctx, seed.Name, models.MessageCategory(seed.Category), seed.Body, seed.Variables)
		require.NoError(t, err)
	}
	announcement, err := catalogEngine.Register(ctx, "water_outage", models.CategoryGeneral,
		"Dear {tenantName}, water maintenance is scheduled for unit {unitNumber}.",
		[]string{"tenantName", "unitNumber"})
	require.NoError(t, err)

	dispatchLedger := newMemDispatchLedger()
	gw := gateway.NewSimulatedWithSeed(1.0, 1.0, 0, 7)
	dispatcher := dispatch.NewDispatcher(dispatchLedger, gw, gw,
		dispatch.Options{SegmentPrice: 0.8, ResolveTimeout: 5 * time.Second}, log)
	defer dispatcher.Shutdown()

	mr := miniredis.RunT(t)
	dedup := reminder.NewRedisDedup(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	engine := rentcycle.NewEngine(rents, log)
	scheduler := reminder.NewScheduler(rents, units, catalogEngine, dispatcher, dedup, "+254711000000", log)
	campaigns := newMemCampaigns()
	orchestrator := campaign.NewOrchestrator(campaigns, units, rents, catalogEngine, dispatcher, 0, log)
	scorer := engagement.NewScorer(rents, dispatchLedger)

	countByCategory := func() map[models.MessageCategory]int {
		out := make(map[models.MessageCategory]int)
		for _, r := range dispatchLedger.all() {
			out[r.Category]++
		}
		return out
	}

	runDay := func(day time.Time) {
		require.NoError(t, engine.InitializeCycle(ctx, day))
		require.NoError(t, engine.AdvanceOverdue(ctx, day))
		require.NoError(t, scheduler.RunDaily(ctx, day))
	}
	at := func(d int) time.Time {
		return time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC).AddDate(0, 0, d-1)
	}

	// Pre-due cadence: days -7, -3 and -1 relative to the due date fire,
	// everything else in between stays silent.
	for offset := -8; offset <= -1; offset++ {
		day := at(1).AddDate(0, 0, offset)
		require.NoError(t, engine.AdvanceOverdue(ctx, day))
		require.NoError(t, scheduler.RunDaily(ctx, day))
	}
	assert.Equal(t, 3, countByCategory()[models.CategoryReminder])

	// Due day itself is the last pre-due reminder.
	runDay(at(1))
	assert.Equal(t, 4, countByCategory()[models.CategoryReminder], "cadence is 7, 3, 1, 0 days before due")

	// Grace period: daily overdue notices start the day after the due date,
	// but the rent status flips only once grace is exhausted.
	for d := 2; d <= 6; d++ {
		runDay(at(d))
		entry, err := rents.Get(ctx, "U1")
		require.NoError(t, err)
		assert.Equal(t, models.RentStatusPending, entry.Status, "still within grace on Jan %d", d)
	}
	assert.Equal(t, 5, countByCategory()[models.CategoryOverdue])

	// Day 7: past the 5-day grace period.
	runDay(at(7))
	entry, err := rents.Get(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, models.RentStatusOverdue, entry.Status)

	// Re-running the same day must not double-send.
	require.NoError(t, scheduler.RunDaily(ctx, at(7).Add(2*time.Hour)))
	assert.Equal(t, 6, countByCategory()[models.CategoryOverdue])

	// Day 8: a campaign targets overdue units only.
	runDay(at(8))
	c, err := orchestrator.Create(ctx, "overdue chase", announcement.ID,
		[]byte(`{"rentStatuses": ["overdue"]}`), nil)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, c.Status)
	assert.Equal(t, 1, c.Results.Targeted, "only U1 is overdue")
	assert.Equal(t, []string{"U1"}, c.TargetUnitIDs)
	assert.Equal(t, 1, c.Results.Sent)
	assert.Equal(t, 1, countByCategory()[models.CategoryGeneral])

	// Days 9 and 10.
	runDay(at(9))
	runDay(at(10))

	// Day 11 is ten days overdue: the final notice fires on top of the
	// daily overdue message.
	runDay(at(11))
	byCat := countByCategory()
	assert.Equal(t, 4, byCat[models.CategoryReminder])
	assert.Equal(t, 11, byCat[models.CategoryOverdue], "daily notices plus one final notice")

	finalNotices := 0
	for _, r := range dispatchLedger.all() {
		if r.Category == models.CategoryOverdue && r.Body != "" && r.Recipient == u1Contact {
			if len(r.Body) >= 12 && r.Body[:12] == "FINAL NOTICE" {
				finalNotices++
			}
		}
	}
	assert.Equal(t, 1, finalNotices, "final notice fires exactly once")

	// Engagement before the payment lands: overdue and heavily messaged.
	score, err := scorer.ScoreUnit(ctx, "U1", at(11))
	require.NoError(t, err)
	assert.Equal(t, 15, score)

	score, err = scorer.ScoreUnit(ctx, "U2", at(11))
	require.NoError(t, err)
	assert.Equal(t, 90, score, "paid upfront with zero dispatches")

	// Payment clears the unit; the next day is silent.
	require.NoError(t, engine.ApplyPayment(ctx, models.PaymentEvent{
		UnitID: "U1", Amount: 45000, PaidAt: at(11).Add(6 * time.Hour), TransactionRef: "MPESA-0042",
	}))
	before := len(dispatchLedger.all())
	runDay(at(12))
	assert.Equal(t, before, len(dispatchLedger.all()), "paid units get no further messages")

	entry, err = rents.Get(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, models.RentStatusPaid, entry.Status)

	// Every accepted record resolves to delivered through the async task.
	assert.Eventually(t, func() bool {
		for _, r := range dispatchLedger.all() {
			if r.Status != models.DispatchStatusDelivered {
				return false
			}
		}
		return true
	}, 5*time.Second, 20*time.Millisecond)

	// U2 never received anything across the whole month.
	u2History, err := dispatchLedger.ListByRecipient(ctx, u2Contact, at(1).AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Empty(t, u2History)

	// Cost accounting: every message here fits one segment.
	var total float64
	for _, r := range dispatchLedger.all() {
		total += r.Cost
	}
	expected := 0.8 * float64(before)
	assert.InDelta(t, expected, total, 1e-9, fmt.Sprintf("%d single-segment messages", before))
}
