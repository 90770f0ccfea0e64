// pkg/catalog/schema.go
package catalog

// Manifest is the on-disk seed document for the message template catalog.
// Operations keeps one per environment so staging can carry draft wording
// without touching production.
type Manifest struct {
	Version   string         `json:"version"`
	Templates []SeedTemplate `json:"templates"`
}

// SeedTemplate describes one template to register. Variables must cover every
// placeholder in Body; the catalog engine enforces that on registration.
type SeedTemplate struct {
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Body      string   `json:"body"`
	Variables []string `json:"variables"`
}
