// internal/models/unit.go
package models

// Unit is the read-only directory view of one rental unit. The directory is
// owned by the property registry outside this engine; this struct is the
// lookup contract only.
type Unit struct {
	ID            string  `json:"id"`
	Number        string  `json:"number"`
	Floor         int     `json:"floor"`
	Occupied      bool    `json:"occupied"`
	TenantName    string  `json:"tenantName,omitempty"`
	TenantContact string  `json:"tenantContact,omitempty"`
	MonthlyRent   float64 `json:"monthlyRent,omitempty"`
}
