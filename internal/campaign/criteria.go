// internal/campaign/criteria.go
package campaign

import (
	"encoding/json"
	"fmt"
	"strings"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// criteriaSchema validates the target-criteria document the campaign UI
// submits. Absent keys mean "no constraint on that dimension".
const criteriaSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"rentStatuses": {
			"type": "array",
			"items": {"type": "string", "enum": ["vacant", "pending", "paid", "overdue"]}
		},
		"floors": {
			"type": "array",
			"items": {"type": "integer", "minimum": 0}
		},
		"unitIds": {
			"type": "array",
			"items": {"type": "string", "minLength": 1}
		}
	}
}`

var compiledCriteriaSchema = gojsonschema.NewStringLoader(criteriaSchema)

// ParseCriteria validates the raw criteria document against the schema and
// decodes it. Schema violations come back as a single INVALID_CRITERIA error
// listing every offending field.
func ParseCriteria(raw []byte) (models.TargetCriteria, error) {
	var criteria models.TargetCriteria
	if len(raw) == 0 {
		return criteria, nil
	}

	result, err := gojsonschema.Validate(compiledCriteriaSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return criteria, commonerrors.NewInvalidCriteriaError(err.Error())
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return criteria, commonerrors.NewInvalidCriteriaError(strings.Join(details, "; "))
	}

	if err := json.Unmarshal(raw, &criteria); err != nil {
		return criteria, commonerrors.NewInvalidCriteriaError(err.Error())
	}
	return criteria, nil
}

// Matches reports whether a unit and its ledger entry satisfy every present
// filter. Filters are conjunctive, never disjunctive.
func Matches(criteria models.TargetCriteria, unit *models.Unit, entry *models.RentLedgerEntry) bool {
	if !unit.Occupied {
		return false
	}
	if len(criteria.RentStatuses) > 0 {
		if entry == nil || !containsStatus(criteria.RentStatuses, entry.Status) {
			return false
		}
	}
	if len(criteria.Floors) > 0 && !containsInt(criteria.Floors, unit.Floor) {
		return false
	}
	if len(criteria.UnitIDs) > 0 && !containsString(criteria.UnitIDs, unit.ID) {
		return false
	}
	return true
}

func containsStatus(list []models.RentStatus, s models.RentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
