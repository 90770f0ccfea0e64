// internal/models/rent.go
package models

import "time"

// RentStatus is the per-unit payment lifecycle state.
type RentStatus string

const (
	RentStatusVacant  RentStatus = "vacant"
	RentStatusPending RentStatus = "pending"
	RentStatusPaid    RentStatus = "paid"
	RentStatusOverdue RentStatus = "overdue"
)

// RentLedgerEntry is the authoritative payment record for one occupied unit.
// Status is vacant iff the unit has no tenant; overdue implies the due date
// plus grace period has passed with no payment recorded for the cycle.
type RentLedgerEntry struct {
	UnitID          string     `json:"unitId"`
	TenantContact   string     `json:"tenantContact"`
	MonthlyAmount   float64    `json:"monthlyAmount"`
	DueDate         time.Time  `json:"dueDate"`
	GraceDays       int        `json:"graceDays"`
	Status          RentStatus `json:"status"`
	LastPaymentDate *time.Time `json:"lastPaymentDate,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// PaymentEvent is the external payment-confirmation contract. Its source
// (mobile-money webhook, manual entry) is outside this engine.
type PaymentEvent struct {
	UnitID         string    `json:"unitId"`
	Amount         float64   `json:"amount"`
	PaidAt         time.Time `json:"paidAt"`
	TransactionRef string    `json:"transactionRef"`
}
