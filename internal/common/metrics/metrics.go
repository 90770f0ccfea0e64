// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CycleScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentcycle_scans_total",
			Help: "Total number of rent ledger scans by operation",
		},
		[]string{"operation"},
	)

	CycleScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "rentcycle_scan_duration_seconds",
			Help: "Duration of rent ledger scans in seconds",
		},
		[]string{"operation"},
	)

	UnitsTransitioned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentcycle_units_transitioned_total",
			Help: "Total number of per-unit rent status transitions",
		},
		[]string{"to_status"},
	)

	RemindersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_sent_total",
			Help: "Total number of reminders handed to the dispatcher",
		},
		[]string{"template"},
	)

	// Scheduling skips are not failures; they get their own series so
	// dashboards can tell the two apart.
	RemindersSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_skipped_total",
			Help: "Total number of units skipped by the reminder scheduler",
		},
		[]string{"reason"},
	)

	ReminderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_failures_total",
			Help: "Total number of per-unit reminder failures",
		},
		[]string{"error_code"},
	)

	DispatchesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_created_total",
			Help: "Total number of dispatch records created",
		},
		[]string{"category"},
	)

	DispatchesResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_resolved_total",
			Help: "Total number of dispatch records resolved to a terminal status",
		},
		[]string{"status"},
	)

	DispatchCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_cost_total",
			Help: "Accumulated dispatch cost in cost units",
		},
		[]string{"category"},
	)

	CampaignSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_sends_total",
			Help: "Total number of campaign fan-out sends by outcome",
		},
		[]string{"outcome"},
	)

	ReconcilerTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_reconciler_timeouts_total",
			Help: "Total number of stale sent records forced to failed",
		},
	)
)
