package mock

import (
	"io"

	"github.com/fwojciec/genstream"
)

// Interface compliance check.
var _ genstream.Stream = (*Stream)(nil)

// Stream is a test double for genstream.Stream.
// Set the function fields for the methods you need. NextFn panics when nil to
// catch missing setup. StateFn, ErrFn and CloseFn are nil-safe (zero value
// and no-op) because test code commonly calls defer stream.Close() and these
// methods rarely need custom behavior.
type Stream struct {
	NextFn  func() (genstream.Event, error)
	StateFn func() genstream.StreamState
	ErrFn   func() error
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (genstream.Event, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateIdle when StateFn is nil.
func (s *Stream) State() genstream.StreamState {
	if s.StateFn == nil {
		return genstream.StreamStateIdle
	}
	return s.StateFn()
}

// Err delegates to ErrFn. Returns nil when ErrFn is not set.
func (s *Stream) Err() error {
	if s.ErrFn == nil {
		return nil
	}
	return s.ErrFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Events returns a Stream that yields evs in order and then io.EOF.
func Events(evs ...genstream.Event) *Stream {
	i := 0
	return &Stream{
		NextFn: func() (genstream.Event, error) {
			if i >= len(evs) {
				return nil, io.EOF
			}
			ev := evs[i]
			i++
			return ev, nil
		},
	}
}
