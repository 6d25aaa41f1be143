// Package streamer normalizes one upstream stream into [genstream.Event]s.
//
// A [Streamer] pulls logical messages from a [genstream.Source] (a framed
// byte stream or a server-sent event source), decodes each one with the
// injected per-provider [genstream.Decoder], maintains the capture-gated
// aggregates, and hands out events one at a time through the pull-based
// [genstream.Stream] interface. The provider-specific part of a stream is
// only the decoder; everything else is shared.
package streamer

import (
	"errors"
	"io"

	"github.com/fwojciec/genstream"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Interface compliance check.
var _ genstream.Stream = (*Streamer)(nil)

// Streamer implements [genstream.Stream]. It is not safe for concurrent use.
type Streamer struct {
	src      genstream.Source
	dec      genstream.Decoder
	m        *machine
	logger   zerolog.Logger
	id       string
	provider string

	err      error // terminal error, if any
	released bool  // source closed
}

// Option configures a [Streamer].
type Option func(*Streamer)

// WithLogger sets the logger. The stream id and provider are attached to
// every entry.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Streamer) { s.logger = l }
}

// WithProvider sets the provider name used in logs and errors.
func WithProvider(name string) Option {
	return func(s *Streamer) { s.provider = name }
}

// WithID sets the stream id used in logs. Default is a random UUID.
func WithID(id string) Option {
	return func(s *Streamer) { s.id = id }
}

// New creates a Streamer over src. The capture options are fixed for the
// lifetime of the stream.
func New(src genstream.Source, dec genstream.Decoder, capture genstream.CaptureOptions, opts ...Option) *Streamer {
	s := &Streamer{
		src:    src,
		dec:    dec,
		m:      newMachine(capture),
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.logger = s.logger.With().
		Str("stream_id", s.id).
		Str("provider", s.provider).
		Logger()
	return s
}

// ID returns the stream id.
func (s *Streamer) ID() string {
	return s.id
}

// Next returns the next event. Buffered events are returned without touching
// the transport; otherwise Next blocks on the source until a message that
// produces an event arrives or the stream terminates.
func (s *Streamer) Next() (genstream.Event, error) {
	if ev, ok := s.m.pop(); ok {
		return ev, nil
	}
	switch {
	case s.err != nil:
		return nil, s.err
	case s.m.state == genstream.StreamStateClosed:
		return nil, genstream.ErrStreamClosed
	case s.m.state == genstream.StreamStateEnded:
		return nil, io.EOF
	}

	for {
		msg, err := s.src.Next()
		if errors.Is(err, io.EOF) {
			s.logger.Debug().Msg("streamer: transport closed")
			var evs []genstream.Event
			if fl, ok := s.dec.(genstream.Flusher); ok {
				evs = s.m.step(input{kind: inputUnit, unit: fl.Flush()})
			}
			return s.emit(append(evs, s.m.step(input{kind: inputClose})...))
		}
		if err != nil {
			return nil, s.fail(s.transportError(err))
		}

		var in input
		if msg.IsOpen() {
			in = input{kind: inputOpen}
		} else {
			s.logger.Debug().Str("event", msg.Event).Int("bytes", len(msg.Data)).Msg("streamer: message")
			unit, err := s.dec.Decode(msg)
			if err != nil {
				return nil, s.fail(s.decodeError(msg, err))
			}
			s.logMedia(unit)
			in = input{kind: inputUnit, unit: unit}
		}

		evs := s.m.step(in)
		if len(evs) == 0 {
			// Usage-only or empty unit: keep pulling.
			continue
		}
		return s.emit(evs)
	}
}

// State returns the current stream state.
func (s *Streamer) State() genstream.StreamState {
	return s.m.state
}

// Err returns the terminal error, or nil.
func (s *Streamer) Err() error {
	return s.err
}

// Close releases the transport and discards any accumulated aggregates and
// events not yet returned, including a queued EventEnd. It is safe to call at
// any time and more than once.
func (s *Streamer) Close() error {
	if !s.m.terminal() {
		s.logger.Debug().Str("state", s.m.state.String()).Msg("streamer: closed by caller")
		s.m.abort(genstream.StreamStateClosed)
	}
	return s.release()
}

// emit queues evs and returns the first one. When evs ends the stream, the
// transport is released right away.
func (s *Streamer) emit(evs []genstream.Event) (genstream.Event, error) {
	s.m.push(evs)
	if s.m.ended {
		s.logger.Debug().Msg("streamer: stream ended")
		if err := s.release(); err != nil {
			s.logger.Debug().Err(err).Msg("streamer: release transport")
		}
	}
	ev, _ := s.m.pop()
	return ev, nil
}

func (s *Streamer) fail(err error) error {
	s.m.step(input{kind: inputError})
	s.err = err
	s.logger.Error().Err(err).Msg("streamer: stream failed")
	if relErr := s.release(); relErr != nil {
		s.logger.Debug().Err(relErr).Msg("streamer: release transport")
	}
	return err
}

func (s *Streamer) release() error {
	if s.released {
		return nil
	}
	s.released = true
	return s.src.Close()
}

func (s *Streamer) transportError(err error) error {
	var te *genstream.TransportError
	if errors.As(err, &te) || errors.Is(err, genstream.ErrInvalidEncoding) || errors.Is(err, genstream.ErrStreamClosed) {
		return err
	}
	return &genstream.TransportError{Provider: s.provider, Err: err}
}

func (s *Streamer) decodeError(msg genstream.Message, err error) error {
	var de *genstream.DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &genstream.DecodeError{Provider: s.provider, Data: msg.Data, Err: err}
}

func (s *Streamer) logMedia(u genstream.Unit) {
	for _, p := range u.Parts {
		if mp, ok := p.(genstream.MediaPart); ok {
			s.logger.Debug().Str("mime_type", mp.MimeType).Int("bytes", len(mp.Data)).Msg("streamer: media part has no event")
		}
	}
}
