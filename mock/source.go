package mock

import (
	"io"

	"github.com/fwojciec/genstream"
)

// Interface compliance checks.
var (
	_ genstream.Source  = (*Source)(nil)
	_ genstream.Decoder = (*Decoder)(nil)
)

// Source is a test double for genstream.Source.
// NextFn panics when nil. CloseFn is nil-safe.
type Source struct {
	NextFn  func() (genstream.Message, error)
	CloseFn func() error

	Closed int // number of Close calls
}

// Next delegates to NextFn.
func (s *Source) Next() (genstream.Message, error) {
	return s.NextFn()
}

// Close counts the call and delegates to CloseFn.
func (s *Source) Close() error {
	s.Closed++
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Messages returns a Source that yields msgs in order and then err, or
// io.EOF when err is nil.
func Messages(err error, msgs ...genstream.Message) *Source {
	i := 0
	return &Source{
		NextFn: func() (genstream.Message, error) {
			if i < len(msgs) {
				m := msgs[i]
				i++
				return m, nil
			}
			if err != nil {
				return genstream.Message{}, err
			}
			return genstream.Message{}, io.EOF
		},
	}
}

// Decoder is a test double for genstream.Decoder.
// DecodeFn panics when nil.
type Decoder struct {
	DecodeFn func(msg genstream.Message) (genstream.Unit, error)
}

// Decode delegates to DecodeFn.
func (d *Decoder) Decode(msg genstream.Message) (genstream.Unit, error) {
	return d.DecodeFn(msg)
}
