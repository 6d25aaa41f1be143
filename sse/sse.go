// Package sse implements [genstream.Source] for text/event-stream responses.
//
// Event parsing is delegated to the openai-go ssestream decoder. The source
// reports a synthetic open message first, mirroring the open event of a
// browser EventSource, and then one message per server-sent event.
package sse

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/fwojciec/genstream"
	"github.com/openai/openai-go/packages/ssestream"
)

// Interface compliance check.
var _ genstream.Source = (*Source)(nil)

// Source reads server-sent events from an HTTP response body.
type Source struct {
	dec      ssestream.Decoder
	provider string
	opened   bool
	done     bool
	closed   bool
}

// Option configures a [Source].
type Option func(*Source)

// WithProvider labels transport errors with the provider name.
func WithProvider(name string) Option {
	return func(s *Source) { s.provider = name }
}

// New creates a Source reading the body of resp.
func New(resp *http.Response, opts ...Option) *Source {
	s := &Source{dec: ssestream.NewDecoder(resp)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewFromReader creates a Source reading an event stream from body.
func NewFromReader(body io.ReadCloser, opts ...Option) *Source {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       body,
	}
	return New(resp, opts...)
}

// Next returns the open marker on the first call and then one message per
// event. It returns io.EOF when the stream ends.
func (s *Source) Next() (genstream.Message, error) {
	if s.closed {
		return genstream.Message{}, genstream.ErrStreamClosed
	}
	if s.dec == nil {
		return genstream.Message{}, &genstream.TransportError{Provider: s.provider, Err: fmt.Errorf("sse: no response body")}
	}
	if !s.opened {
		s.opened = true
		return genstream.Message{Event: genstream.EventOpen}, nil
	}
	if s.done {
		return genstream.Message{}, io.EOF
	}
	for s.dec.Next() {
		evt := s.dec.Event()
		// The decoder terminates every data line with a newline.
		data := bytes.TrimSuffix(evt.Data, []byte("\n"))
		if evt.Type == "" && len(data) == 0 {
			// Blank lines without fields do not form an event.
			continue
		}
		if !utf8.Valid(data) {
			return genstream.Message{}, fmt.Errorf("sse: %w", genstream.ErrInvalidEncoding)
		}
		return genstream.Message{Event: evt.Type, Data: string(data)}, nil
	}
	s.done = true
	if err := s.dec.Err(); err != nil {
		return genstream.Message{}, &genstream.TransportError{Provider: s.provider, Err: err}
	}
	return genstream.Message{}, io.EOF
}

// Close releases the response body. It is safe to call more than once.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.dec == nil {
		return nil
	}
	return s.dec.Close()
}
