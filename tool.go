package genstream

import "encoding/json"

// Tool describes a function the model may call. Parameters is a JSON Schema
// object; nil means the tool takes no arguments.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}
