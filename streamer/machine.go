package streamer

import (
	"strings"

	"github.com/fwojciec/genstream"
)

// inputKind names what the upstream delivered to the state machine.
type inputKind int

const (
	inputOpen  inputKind = iota // The transport opened.
	inputUnit                   // A message was decoded into a unit.
	inputClose                  // The transport ended gracefully.
	inputError                  // The transport or decoder failed.
)

type input struct {
	kind inputKind
	unit genstream.Unit
}

// machine is the normalizer's state: lifecycle state, capture-gated
// aggregates and events produced but not yet handed to the caller. It does
// no I/O, so every transition can be driven directly from tests.
//
// state follows what the caller has received: it becomes Ended only when
// EventEnd is popped. ended is set as soon as EventEnd is produced and stops
// further input.
type machine struct {
	state   genstream.StreamState
	ended   bool
	capture genstream.CaptureOptions
	agg     aggregator
	pending []genstream.Event
}

func newMachine(capture genstream.CaptureOptions) *machine {
	return &machine{state: genstream.StreamStateIdle, capture: capture}
}

// step applies one input and returns the events it produces in delivery
// order. Inputs after the stream ended produce nothing.
func (m *machine) step(in input) []genstream.Event {
	if m.ended || m.terminal() {
		return nil
	}
	switch in.kind {
	case inputOpen:
		return m.start()
	case inputUnit:
		return m.unit(in.unit)
	case inputClose:
		return []genstream.Event{m.end()}
	case inputError:
		m.abort(genstream.StreamStateEnded)
	}
	return nil
}

// terminal reports whether the caller has seen the stream's outcome.
func (m *machine) terminal() bool {
	return m.state == genstream.StreamStateEnded || m.state == genstream.StreamStateClosed
}

// push queues events behind anything still pending.
func (m *machine) push(evs []genstream.Event) {
	m.pending = append(m.pending, evs...)
}

// pop returns the oldest pending event.
func (m *machine) pop() (genstream.Event, bool) {
	if len(m.pending) == 0 {
		return nil, false
	}
	ev := m.pending[0]
	m.pending[0] = nil
	m.pending = m.pending[1:]
	if _, ok := ev.(genstream.EventEnd); ok {
		m.state = genstream.StreamStateEnded
	}
	return ev, true
}

func (m *machine) start() []genstream.Event {
	if m.state != genstream.StreamStateIdle {
		return nil
	}
	m.state = genstream.StreamStateStarted
	return []genstream.Event{genstream.EventStart{}}
}

// unit turns one decoded unit into events: reasoning first, then the parts in
// order with adjacent text joined and every tool call on its own.
func (m *machine) unit(u genstream.Unit) []genstream.Event {
	var evs []genstream.Event
	if u.Signal == genstream.SignalStart {
		evs = append(evs, m.start()...)
	}

	var content []genstream.Event
	if u.Reasoning != "" {
		if m.capture.Reasoning {
			m.agg.reasoning.WriteString(u.Reasoning)
		}
		content = append(content, genstream.EventReasoningChunk{Text: u.Reasoning})
	}
	var text strings.Builder
	flush := func() {
		if text.Len() == 0 {
			return
		}
		chunk := text.String()
		text.Reset()
		if m.capture.Content {
			m.agg.content.WriteString(chunk)
		}
		content = append(content, genstream.EventContentChunk{Text: chunk})
	}
	for _, p := range u.Parts {
		switch p := p.(type) {
		case genstream.TextPart:
			text.WriteString(p.Text)
		case genstream.ToolCall:
			flush()
			if m.capture.ToolCalls {
				m.agg.toolCalls = append(m.agg.toolCalls, p)
			}
			content = append(content, genstream.EventToolCall{Call: p})
		}
	}
	flush()

	if u.Usage != nil && m.capture.Usage {
		snapshot := *u.Usage
		m.agg.usage = &snapshot
	}
	if len(content) > 0 {
		m.state = genstream.StreamStateStreaming
		evs = append(evs, content...)
	}
	if u.Signal == genstream.SignalEnd {
		evs = append(evs, m.end())
	}
	return evs
}

// end moves the aggregates out into the terminal event.
func (m *machine) end() genstream.Event {
	m.ended = true
	agg := m.agg.finish(m.capture)
	m.agg = aggregator{}
	return genstream.EventEnd{Aggregates: agg}
}

// abort discards everything accumulated and moves to a terminal state.
func (m *machine) abort(state genstream.StreamState) {
	m.state = state
	m.ended = true
	m.pending = nil
	m.agg = aggregator{}
}

// aggregator accumulates the capture-gated side channels of one stream.
type aggregator struct {
	usage     *genstream.Usage
	content   strings.Builder
	reasoning strings.Builder
	toolCalls []genstream.ToolCall
}

func (a *aggregator) finish(c genstream.CaptureOptions) genstream.Aggregates {
	var out genstream.Aggregates
	if c.Usage {
		out.Usage = a.usage
	}
	if c.Content {
		s := a.content.String()
		out.Content = &s
	}
	if c.Reasoning {
		s := a.reasoning.String()
		out.Reasoning = &s
	}
	if c.ToolCalls {
		out.ToolCalls = append([]genstream.ToolCall{}, a.toolCalls...)
	}
	return out
}
