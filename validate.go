package genstream

import (
	"encoding/json"
	"fmt"
)

// Validate checks universal constraints on Request.
// Provider implementations may apply additional provider-specific validation.
func (r Request) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("at least one message is required: %w", ErrValidation)
	}
	for i, m := range r.Messages {
		if err := ValidateMessage(m); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	seen := make(map[string]bool, len(r.Tools))
	for i, t := range r.Tools {
		if err := ValidateTool(t); err != nil {
			return fmt.Errorf("tool %d: %w", i, err)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate tool name %q: %w", t.Name, ErrValidation)
		}
		seen[t.Name] = true
	}
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	return nil
}

// ValidateMessage checks that a chat message has a known role.
func ValidateMessage(m ChatMessage) error {
	switch m.Role {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("unknown role %q: %w", m.Role, ErrValidation)
	}
}

// ValidateTool checks that a tool has a name and, when given, a JSON object
// as its parameter schema.
func ValidateTool(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required: %w", ErrValidation)
	}
	if len(t.Parameters) == 0 {
		return nil
	}
	var schema map[string]any
	if err := json.Unmarshal(t.Parameters, &schema); err != nil {
		return fmt.Errorf("tool %q: parameters must be a JSON object: %w", t.Name, ErrValidation)
	}
	return nil
}
