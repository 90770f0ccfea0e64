// internal/models/dispatch.go
package models

import "time"

// DispatchStatus is the lifecycle state of one outbound message attempt.
// Transitions only move forward: pending -> sent -> {delivered|failed}, or
// pending -> failed on an immediate gateway reject.
type DispatchStatus string

const (
	DispatchStatusPending   DispatchStatus = "pending"
	DispatchStatusSent      DispatchStatus = "sent"
	DispatchStatusDelivered DispatchStatus = "delivered"
	DispatchStatusFailed    DispatchStatus = "failed"
)

// IsTerminal reports whether the status admits no further transition.
func (s DispatchStatus) IsTerminal() bool {
	return s == DispatchStatusDelivered || s == DispatchStatusFailed
}

// CanTransitionTo reports whether the forward-only status machine permits
// moving from s to next.
func (s DispatchStatus) CanTransitionTo(next DispatchStatus) bool {
	switch s {
	case DispatchStatusPending:
		return next == DispatchStatusSent || next == DispatchStatusFailed
	case DispatchStatusSent:
		return next == DispatchStatusDelivered || next == DispatchStatusFailed
	}
	return false
}

// MessageCategory classifies outbound messages for analytics and routing.
type MessageCategory string

const (
	CategoryReminder     MessageCategory = "reminder"
	CategoryOverdue      MessageCategory = "overdue"
	CategoryConfirmation MessageCategory = "confirmation"
	CategoryGeneral      MessageCategory = "general"
	CategoryMaintenance  MessageCategory = "maintenance"
)

// DispatchRecord is one outbound message attempt and its tracked lifecycle.
// Records are retained indefinitely for analytics and owned exclusively by
// the dispatch ledger.
type DispatchRecord struct {
	ID            string          `json:"id"`
	Recipient     string          `json:"recipient"`
	Body          string          `json:"body"`
	Category      MessageCategory `json:"category"`
	Status        DispatchStatus  `json:"status"`
	Cost          float64         `json:"cost"`
	GatewayRef    string          `json:"gatewayRef,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	DeliveredAt   *time.Time      `json:"deliveredAt,omitempty"`
}
