// Package validate performs structural JSON-Schema validation of inbound
// CreateTestResult payloads (C15), layered before the status
// closed-enumeration check described in spec.md §4.3 and §7. It runs
// ahead of the domain-level checks so a payload missing a required field
// or carrying the wrong JSON type is rejected with a schema-level message
// rather than a confusing downstream type error.
package validate

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// createTestResultSchema mirrors CreateTestResult per spec.md §3: every
// attribute except id, counter, and execution_id (the streaming path
// injects execution_id from the URL, never the body).
const createTestResultSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "platform", "status"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "platform": {"type": "string", "minLength": 1},
    "status": {"type": "string"},
    "description": {"type": ["string", "null"]},
    "execution_time_ms": {"type": ["integer", "null"], "minimum": 0},
    "log": {"type": ["string", "null"]},
    "screenshot_id": {"type": ["string", "null"]},
    "created_by": {"type": ["string", "null"]}
  },
  "additionalProperties": true
}`

// Validator wraps a compiled CreateTestResult schema. It is immutable
// after construction and safe for concurrent use.
type Validator struct {
	schema *jsonschema.Schema
}

// NewCreateTestResultValidator compiles the embedded schema once at
// startup.
func NewCreateTestResultValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	const resourceURL = "testharbor://create-test-result.schema.json"
	if err := compiler.AddResource(resourceURL, bytes.NewReader([]byte(createTestResultSchema))); err != nil {
		return nil, fmt.Errorf("validate: add schema resource: %w", err)
	}
	schema, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("validate: compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// ValidateCreateTestResult validates a decoded-to-any JSON document
// (typically json.Unmarshal'd into map[string]any or similar) against
// the CreateTestResult schema.
func (v *Validator) ValidateCreateTestResult(doc any) error {
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
