// Package frame turns an arbitrarily chunked byte stream into an ordered
// sequence of complete logical messages.
//
// A [Framer] reads deliveries from an [io.ReadCloser] and hands the
// unconsumed tail of its buffer plus each new delivery to a [Strategy],
// which locates message boundaries. Two strategies are provided: [Delimiter]
// for separator-framed streams such as newline-delimited JSON, and
// [BalancedArray] for a pretty-printed top-level JSON array whose elements
// may land anywhere across deliveries.
package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/fwojciec/genstream"
	"github.com/rs/zerolog"
)

const defaultReadSize = 32 * 1024

// Frame is one message located by a Strategy.
type Frame struct {
	// Data is the message payload.
	Data string
	// End is the offset in the scanned buffer just past the bytes the
	// message consumed.
	End int
}

// Strategy locates message boundaries. A Strategy may keep state between
// calls and belongs to a single Framer.
type Strategy interface {
	// Scan returns the frames completed in buf, in order, with strictly
	// increasing End offsets. Bytes past the last End are retained and
	// prefixed to the next delivery.
	Scan(buf []byte) []Frame
	// Flush decides what becomes of the retained bytes when the transport
	// ends. It returns false when nothing should be emitted.
	Flush(rest []byte) (Frame, bool)
}

// Interface compliance check.
var _ genstream.Source = (*Framer)(nil)

// Framer implements [genstream.Source] over a raw byte stream.
type Framer struct {
	body     io.ReadCloser
	strategy Strategy
	logger   zerolog.Logger
	provider string

	chunk  []byte              // read buffer, one delivery at a time
	buf    []byte              // retained partial message
	queue  []genstream.Message // messages found but not yet returned
	eof    bool                // transport reported end of stream
	err    error               // terminal error, if any
	closed bool
}

// Option configures a [Framer].
type Option func(*Framer)

// WithReadSize sets the maximum size of a single read. Default is 32 KiB.
func WithReadSize(n int) Option {
	return func(f *Framer) {
		if n > 0 {
			f.chunk = make([]byte, n)
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Framer) { f.logger = l }
}

// WithProvider labels transport errors with the provider name.
func WithProvider(name string) Option {
	return func(f *Framer) { f.provider = name }
}

// New creates a Framer reading from body with the given strategy.
func New(body io.ReadCloser, s Strategy, opts ...Option) *Framer {
	f := &Framer{
		body:     body,
		strategy: s,
		logger:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(f)
	}
	if f.chunk == nil {
		f.chunk = make([]byte, defaultReadSize)
	}
	return f
}

// Next returns the next complete message. It returns io.EOF once the
// transport has ended and every message has been returned.
func (f *Framer) Next() (genstream.Message, error) {
	for {
		if f.closed {
			return genstream.Message{}, genstream.ErrStreamClosed
		}
		if len(f.queue) > 0 {
			msg := f.queue[0]
			f.queue = f.queue[1:]
			return msg, nil
		}
		if f.err != nil {
			return genstream.Message{}, f.err
		}
		if f.eof {
			return genstream.Message{}, io.EOF
		}
		if err := f.fill(); err != nil {
			f.err = err
			f.queue = nil
		}
	}
}

// Close releases the transport. It is safe to call more than once.
func (f *Framer) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.queue = nil
	f.buf = nil
	return f.body.Close()
}

// fill performs one read and scans whatever it delivered. A returned error
// is fatal and discards the queue; a transport error is recorded in f.err
// instead so that complete messages are still delivered.
func (f *Framer) fill() error {
	n, err := f.body.Read(f.chunk)
	if n > 0 {
		f.buf = append(f.buf, f.chunk[:n]...)
		if scanErr := f.scan(); scanErr != nil {
			return scanErr
		}
	}
	if errors.Is(err, io.EOF) {
		f.eof = true
		return f.flush()
	}
	if err != nil {
		// Messages completed by this read are returned before the error.
		f.err = &genstream.TransportError{Provider: f.provider, Err: err}
	}
	return nil
}

func (f *Framer) scan() error {
	frames := f.strategy.Scan(f.buf)
	prev := 0
	for _, fr := range frames {
		if err := f.enqueue(fr.Data, f.buf[prev:fr.End]); err != nil {
			return err
		}
		prev = fr.End
	}
	f.buf = append(f.buf[:0], f.buf[prev:]...)
	return nil
}

func (f *Framer) flush() error {
	rest := f.buf
	f.buf = nil
	if len(rest) == 0 {
		return nil
	}
	fr, ok := f.strategy.Flush(rest)
	if !ok {
		if len(bytes.TrimSpace(rest)) > 0 {
			f.logger.Debug().Int("bytes", len(rest)).Msg("frame: discarding incomplete trailing fragment")
		}
		return nil
	}
	return f.enqueue(fr.Data, rest)
}

func (f *Framer) enqueue(data string, raw []byte) error {
	if !utf8.ValidString(data) {
		return fmt.Errorf("frame: %w", genstream.ErrInvalidEncoding)
	}
	f.queue = append(f.queue, genstream.Message{Data: data, Raw: bytes.Clone(raw)})
	return nil
}
