// Package errors provides standardized error handling for the rent-cycle and
// notification engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidRecipient     ErrorCode = "INVALID_RECIPIENT"
	ErrCodeTemplateNotFound     ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateRenderFailed ErrorCode = "TEMPLATE_RENDER_FAILED"

	ErrCodeGatewayRejected ErrorCode = "GATEWAY_REJECTED"
	ErrCodeDeliveryTimeout ErrorCode = "DELIVERY_TIMEOUT"

	ErrCodeUnitNotFound     ErrorCode = "UNIT_NOT_FOUND"
	ErrCodeCampaignNotFound ErrorCode = "CAMPAIGN_NOT_FOUND"
	ErrCodeInvalidCriteria  ErrorCode = "INVALID_CRITERIA"

	ErrCodeLedgerQueryFailed ErrorCode = "LEDGER_QUERY_FAILED"
	ErrCodeLedgerWriteFailed ErrorCode = "LEDGER_WRITE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// IsCode reports whether err is a *StandardError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsValidation reports whether err is one of the pre-mutation validation
// failures (bad recipient, unknown template, unresolved placeholder, bad
// criteria). Validation errors are rejected before any state is written.
func IsValidation(err error) bool {
	var se *StandardError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case ErrCodeValidationFailed, ErrCodeInvalidRecipient,
		ErrCodeTemplateNotFound, ErrCodeTemplateRenderFailed,
		ErrCodeInvalidCriteria:
		return true
	}
	return false
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationFailedError creates a non-retryable validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRecipientError creates a non-retryable recipient error.
func NewInvalidRecipientError(recipient string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRecipient,
		Message:   "Recipient address is malformed or empty",
		Details:   fmt.Sprintf("recipient: %s", recipient),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable template error.
func NewTemplateNotFoundError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found in catalog",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateRenderFailedError creates a non-retryable render error for an
// unresolved placeholder.
func NewTemplateRenderFailedError(templateID, placeholder string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateRenderFailed,
		Message:   "Template placeholder has no bound variable",
		Details:   fmt.Sprintf("templateId: %s, placeholder: %s", templateID, placeholder),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGatewayRejectedError creates a non-retryable gateway rejection. The
// rejection is terminal for the dispatch record; retry policy belongs to the
// caller.
func NewGatewayRejectedError(reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGatewayRejected,
		Message:   "Gateway rejected the outbound message",
		Details:   reason,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliveryTimeoutError creates the terminal error recorded when a sent
// message never resolves within the reconciliation bound.
func NewDeliveryTimeoutError(dispatchID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryTimeout,
		Message:   "Delivery confirmation timed out",
		Details:   fmt.Sprintf("dispatchId: %s", dispatchID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnitNotFoundError creates a non-retryable directory lookup error.
func NewUnitNotFoundError(unitID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnitNotFound,
		Message:   "Unit not found in directory",
		Details:   fmt.Sprintf("unitId: %s", unitID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCampaignNotFoundError creates a non-retryable campaign lookup error.
func NewCampaignNotFoundError(campaignID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCampaignNotFound,
		Message:   "Campaign not found",
		Details:   fmt.Sprintf("campaignId: %s", campaignID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidCriteriaError creates a non-retryable criteria validation error.
func NewInvalidCriteriaError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidCriteria,
		Message:   "Campaign target criteria failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLedgerQueryFailedError creates a retryable ledger read error.
func NewLedgerQueryFailedError(ledger string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLedgerQueryFailed,
		Message:   "Ledger query failed",
		Details:   fmt.Sprintf("ledger: %s, error: %s", ledger, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLedgerWriteFailedError creates a retryable ledger write error.
func NewLedgerWriteFailedError(ledger string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLedgerWriteFailed,
		Message:   "Ledger write failed",
		Details:   fmt.Sprintf("ledger: %s, error: %s", ledger, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
