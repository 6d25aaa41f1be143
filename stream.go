package genstream

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StreamStateIdle      StreamState = iota // Before any event.
	StreamStateStarted                      // EventStart delivered, no content yet.
	StreamStateStreaming                    // Mid-stream, delivering chunks.
	StreamStateEnded                        // Terminal: EventEnd delivered or a fatal error occurred.
	StreamStateClosed                       // Close() called before a terminal outcome.
)

// String returns the lower-case name of the state.
func (s StreamState) String() string {
	switch s {
	case StreamStateIdle:
		return "idle"
	case StreamStateStarted:
		return "started"
	case StreamStateStreaming:
		return "streaming"
	case StreamStateEnded:
		return "ended"
	case StreamStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream uses a pull-based iterator pattern. Cancellation flows through the
// context passed to Provider.Stream() or through Close().
//
// Next() returns events until the stream ends. A successful stream delivers
// exactly one EventEnd, after which Next() returns io.EOF. A failed stream
// returns the same terminal error from every later Next() call; Err()
// reports it. No event follows EventEnd.
//
// Close() releases the transport and discards anything accumulated. After
// Close(), Next() returns ErrStreamClosed unless a terminal outcome had
// already been reached.
type Stream interface {
	Next() (Event, error)
	State() StreamState
	Err() error
	Close() error
}
