// Package validation validates section payloads against JSON schema
// documents and turns the results into bounded, human-readable error
// lists fit for a single chat response.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// DefaultMaxProblems bounds the error list when the caller passes 0.
const DefaultMaxProblems = 8

// Result holds the outcome of validating one payload.
type Result struct {
	Valid     bool     `json:"valid"`
	Problems  []string `json:"problems,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
}

// Validate checks payload against the given JSON schema document. The
// returned error is reserved for a broken schema; payload violations land
// in Result.Problems, capped at maxProblems entries.
func Validate(schemaJSON string, payload map[string]interface{}, maxProblems int) (*Result, error) {
	if maxProblems <= 0 {
		maxProblems = DefaultMaxProblems
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation setup failed: %w", err)
	}

	if result.Valid() {
		return &Result{Valid: true}, nil
	}

	out := &Result{Valid: false}
	for _, resultErr := range result.Errors() {
		if len(out.Problems) >= maxProblems {
			out.Truncated = true
			break
		}
		out.Problems = append(out.Problems, formatProblem(resultErr))
	}

	return out, nil
}

// formatProblem renders one schema violation for display. The root field
// marker "(root)" reads poorly in chat, so it is replaced by the payload
// as a whole.
func formatProblem(resultErr gojsonschema.ResultError) string {
	field := resultErr.Field()
	if field == "(root)" {
		return resultErr.Description()
	}
	return fmt.Sprintf("%s: %s", field, resultErr.Description())
}
