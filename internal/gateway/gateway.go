// internal/gateway/gateway.go
package gateway

import "context"

// Result is the gateway's immediate accept/reject outcome. Acceptance only
// means the provider took the message; delivery is confirmed asynchronously.
type Result struct {
	Accepted   bool   `json:"accepted"`
	GatewayRef string `json:"gatewayRef,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Adapter is the hard boundary to an outbound message provider. The engine
// depends only on this contract, never on a provider's wire protocol.
type Adapter interface {
	SendRaw(ctx context.Context, recipient, body string) (Result, error)
}

// DeliveryResolver reports the final delivery outcome for an accepted
// message. Real providers confirm via callback or polling; the simulated
// adapter decides itself. The dispatcher calls this from the per-record
// resolution task.
type DeliveryResolver interface {
	ResolveDelivery(ctx context.Context, gatewayRef string) (delivered bool, reason string, err error)
}
