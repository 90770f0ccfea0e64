// internal/models/campaign.go
package models

import "time"

// CampaignStatus is the bulk fan-out lifecycle state.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// TargetCriteria narrows the campaign audience. All present filters are
// ANDed; a nil field means no constraint on that dimension. The audience
// always starts from occupied units only.
type TargetCriteria struct {
	RentStatuses []RentStatus `json:"rentStatuses,omitempty"`
	Floors       []int        `json:"floors,omitempty"`
	UnitIDs      []string     `json:"unitIds,omitempty"`
}

// CampaignResults aggregates fan-out outcomes. Targeted is frozen once the
// audience is resolved; the other counters only grow while the campaign is
// sending. Sent and Failed reflect the gateway's immediate accept/reject,
// not final delivery.
type CampaignResults struct {
	Targeted  int     `json:"targeted"`
	Sent      int     `json:"sent"`
	Delivered int     `json:"delivered"`
	Failed    int     `json:"failed"`
	TotalCost float64 `json:"totalCost"`
}

// Campaign is a one-shot or scheduled fan-out of a single template to a
// filtered audience.
type Campaign struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	TemplateID string         `json:"templateId"`
	Criteria   TargetCriteria `json:"criteria"`
	// TargetUnitIDs is the audience resolved at creation time. Freezing the
	// unit list here is what keeps Results.Targeted immutable for scheduled
	// campaigns executed later.
	TargetUnitIDs []string        `json:"targetUnitIds"`
	Status        CampaignStatus  `json:"status"`
	Results       CampaignResults `json:"results"`
	ScheduledAt   *time.Time      `json:"scheduledAt,omitempty"`
	SentAt        *time.Time      `json:"sentAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}
