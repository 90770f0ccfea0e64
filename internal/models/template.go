// internal/models/template.go
package models

import "time"

// MessageTemplate is a reusable message body with named {placeholder}
// variables. Every placeholder appearing in Body must be declared in
// Variables; the catalog rejects templates that violate this at registration
// and the renderer fails loudly rather than leaving a placeholder unresolved.
type MessageTemplate struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Category   MessageCategory `json:"category"`
	Body       string          `json:"body"`
	Variables  []string        `json:"variables"`
	UsageCount int             `json:"usageCount"`
	LastUsedAt *time.Time      `json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
