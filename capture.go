package genstream

// CaptureOptions selects which aggregates a stream accumulates for EventEnd.
// It is resolved once before the stream starts and never changes.
type CaptureOptions struct {
	Usage     bool
	Content   bool
	Reasoning bool
	ToolCalls bool
}

// ChatOptions holds optional capture settings at one configuration level
// (client defaults or a single request). Nil means "not set here".
type ChatOptions struct {
	CaptureUsage     *bool
	CaptureContent   *bool
	CaptureReasoning *bool
	CaptureToolCalls *bool
}

// Resolve returns the effective CaptureOptions. Values set on o win over
// values set on defaults; values set on neither are false.
func (o ChatOptions) Resolve(defaults ChatOptions) CaptureOptions {
	return CaptureOptions{
		Usage:     pick(o.CaptureUsage, defaults.CaptureUsage),
		Content:   pick(o.CaptureContent, defaults.CaptureContent),
		Reasoning: pick(o.CaptureReasoning, defaults.CaptureReasoning),
		ToolCalls: pick(o.CaptureToolCalls, defaults.CaptureToolCalls),
	}
}

func pick(v, fallback *bool) bool {
	if v != nil {
		return *v
	}
	if fallback != nil {
		return *fallback
	}
	return false
}

// Aggregates is the capture-gated summary of a stream, delivered once in
// EventEnd.
//
// Content and Reasoning are nil unless captured; when captured they are
// non-nil even if nothing was streamed. Usage is nil unless captured and at
// least one snapshot was reported. ToolCalls is nil unless captured.
type Aggregates struct {
	Usage     *Usage
	Content   *string
	Reasoning *string
	ToolCalls []ToolCall
}
