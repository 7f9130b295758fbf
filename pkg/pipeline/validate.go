package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/brwells78094/mozaic-daily/schemas"
)

// maxReportedViolations caps the violation list in the returned error so a
// systematically broken output does not produce an unreadable wall of text
const maxReportedViolations = 20

// ErrValidationFailed is returned when the output rows violate the schema
// or the semantic checks
var ErrValidationFailed = errors.New("output validation failed")

// Validator checks forecast output rows against the embedded JSON schema
// plus semantic rules the schema cannot express (the country whitelist is
// run-dependent).
type Validator struct {
	schema    *gojsonschema.Schema
	countries map[string]bool
}

// NewValidator compiles the output schema for the run's country set
func NewValidator(countries []string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemas.ForecastOutput))
	if err != nil {
		return nil, fmt.Errorf("compile output schema: %w", err)
	}

	allowed := make(map[string]bool, len(countries)+2)
	for _, country := range countries {
		allowed[country] = true
	}
	// Aggregate buckets present in the output but never queried directly
	allowed["ALL"] = true
	allowed["ROW"] = true

	return &Validator{
		schema:    schema,
		countries: allowed,
	}, nil
}

// Validate checks every row and returns a single error listing the
// violations, or nil when all rows conform.
func (v *Validator) Validate(rows []OutputRow) error {
	var violations []string

	for i, row := range rows {
		if len(violations) >= maxReportedViolations {
			violations = append(violations, "... (further violations omitted)")

			break
		}

		encoded, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d for validation: %w", i, err)
		}

		result, err := v.schema.Validate(gojsonschema.NewBytesLoader(encoded))
		if err != nil {
			return fmt.Errorf("validate row %d: %w", i, err)
		}

		for _, issue := range result.Errors() {
			violations = append(violations, fmt.Sprintf("row %d: %s", i, issue.String()))
		}

		if !v.countries[row.Country] {
			violations = append(violations, fmt.Sprintf("row %d: unknown country %q", i, row.Country))
		}
	}

	if len(violations) > 0 {
		return fmt.Errorf("%w:\n  %s", ErrValidationFailed, strings.Join(violations, "\n  "))
	}

	return nil
}
