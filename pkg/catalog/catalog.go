// pkg/catalog/catalog.go
package catalog

import (
	"encoding/json"
	"os"
)

// Load reads a seed manifest from disk.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	err = json.Unmarshal(data, &m)
	return &m, err
}

// Stock returns the built-in manifest with the three templates the daily
// reminder scheduler depends on. The bodies match the wording the property
// managers signed off on.
func Stock() *Manifest {
	return &Manifest{
		Version: "1",
		Templates: []SeedTemplate{
			{
				Name:      "payment_reminder",
				Category:  "reminder",
				Body:      "Dear {tenantName}, rent of KES {amount} for unit {unitNumber} is due in {daysUntilDue} days. For questions call {managerPhone}.",
				Variables: []string{"tenantName", "amount", "unitNumber", "daysUntilDue", "managerPhone"},
			},
			{
				Name:      "overdue_notice",
				Category:  "overdue",
				Body:      "Dear {tenantName}, rent of KES {amount} for unit {unitNumber} is {daysOverdue} days overdue. Please settle immediately or call {managerPhone}.",
				Variables: []string{"tenantName", "amount", "unitNumber", "daysOverdue", "managerPhone"},
			},
			{
				Name:      "final_notice",
				Category:  "overdue",
				Body:      "FINAL NOTICE: rent for unit {unitNumber} is {daysOverdue} days overdue. Contact the property manager on {managerPhone} today to avoid further action.",
				Variables: []string{"unitNumber", "daysOverdue", "managerPhone"},
			},
		},
	}
}
