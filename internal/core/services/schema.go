package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// resolveSchema parses and resolves a JSON Schema document.
func resolveSchema(raw json.RawMessage) (*jsonschema.Resolved, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}
	return resolved, nil
}

// validateJSON checks raw against a resolved schema. Empty input counts as {}.
func validateJSON(schema *jsonschema.Resolved, raw json.RawMessage) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		raw = json.RawMessage("{}")
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	return schema.Validate(instance)
}

// extractJSONObject returns the outermost {...} span of a model reply,
// dropping code fences and any prose around it.
func extractJSONObject(reply string) (string, bool) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end < start {
		return "", false
	}
	return reply[start : end+1], true
}
