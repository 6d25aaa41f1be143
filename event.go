package genstream

// Event is a sealed interface representing one normalized stream occurrence.
// Events are provider-agnostic. Transport and decode failures come from
// Next()'s error return, not from events.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventStart signals that the upstream stream opened. It occurs at most once
// and, when present, before any other event.
type EventStart struct{}

func (EventStart) event() {}

// EventContentChunk carries a piece of the main answer text.
type EventContentChunk struct {
	Text string
}

func (EventContentChunk) event() {}

// EventReasoningChunk carries a piece of the reasoning trace.
type EventReasoningChunk struct {
	Text string
}

func (EventReasoningChunk) event() {}

// EventToolCall carries one complete tool call.
type EventToolCall struct {
	Call ToolCall
}

func (EventToolCall) event() {}

// EventEnd is the terminal event of a successful stream. It carries the
// aggregates captured over the whole stream.
type EventEnd struct {
	Aggregates Aggregates
}

func (EventEnd) event() {}

// Interface compliance checks.
var (
	_ Event = EventStart{}
	_ Event = EventContentChunk{}
	_ Event = EventReasoningChunk{}
	_ Event = EventToolCall{}
	_ Event = EventEnd{}
)
