package domain

import (
	"encoding/json"
	"strings"
)

// ValidateIdentifier validates an item or bucket identifier
func ValidateIdentifier(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationFailure{Field: field, Reason: "must not be empty"}
	}
	if strings.ContainsAny(id, " \t\r\n") {
		return &ValidationFailure{Field: field, Reason: "must not contain whitespace"}
	}
	return nil
}

// ValidatePayload validates that a payload is either empty or a JSON object
func ValidatePayload(field string, payload json.RawMessage) error {
	if len(payload) == 0 {
		return nil
	}
	if !json.Valid(payload) {
		return &ValidationFailure{Field: field, Reason: "must be valid JSON"}
	}
	trimmed := strings.TrimSpace(string(payload))
	if !strings.HasPrefix(trimmed, "{") {
		return &ValidationFailure{Field: field, Reason: "must be a JSON object"}
	}
	return nil
}
