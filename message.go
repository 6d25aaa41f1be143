package genstream

// EventOpen is the Event value of the synthetic message an event source
// reports once the upstream connection is open.
const EventOpen = "open"

// Message is one complete logical message taken from a stream: a delimited
// text span, a canonical JSON value, an array marker ("[" or "]"), or a
// server-sent event.
type Message struct {
	// Event is the server-sent event type. Empty for framed messages.
	Event string
	// Data is the message payload.
	Data string
	// Raw is the exact span of transport bytes consumed to produce the
	// message, including any separators skipped in front of it. Nil for
	// sources that do not track byte spans.
	Raw []byte
}

// IsOpen reports whether m is the open marker of an event source.
func (m Message) IsOpen() bool {
	return m.Event == EventOpen && m.Data == ""
}

// Source yields the logical messages of one stream in order.
// Next returns io.EOF when the upstream closes gracefully. Any other error is
// terminal. Close releases the transport and may be called more than once.
type Source interface {
	Next() (Message, error)
	Close() error
}
