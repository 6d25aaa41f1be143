package streamer

import (
	"encoding/json"
	"testing"

	"github.com/fwojciec/genstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var captureAll = genstream.CaptureOptions{Usage: true, Content: true, Reasoning: true, ToolCalls: true}

func unitInput(u genstream.Unit) input {
	return input{kind: inputUnit, unit: u}
}

func TestMachine_StartAtMostOnce(t *testing.T) {
	t.Parallel()
	m := newMachine(captureAll)

	assert.Equal(t, []genstream.Event{genstream.EventStart{}}, m.step(input{kind: inputOpen}))
	assert.Equal(t, genstream.StreamStateStarted, m.state)
	assert.Empty(t, m.step(unitInput(genstream.Unit{Signal: genstream.SignalStart})))
	assert.Empty(t, m.step(input{kind: inputOpen}))
	assert.Equal(t, genstream.StreamStateStarted, m.state)
}

func TestMachine_NoStartWithoutSignal(t *testing.T) {
	t.Parallel()
	m := newMachine(captureAll)

	evs := m.step(unitInput(genstream.Unit{Parts: []genstream.Part{genstream.TextPart{Text: "hi"}}}))

	assert.Equal(t, []genstream.Event{genstream.EventContentChunk{Text: "hi"}}, evs)
	assert.Equal(t, genstream.StreamStateStreaming, m.state)
	// Start cannot follow content.
	assert.Empty(t, m.step(input{kind: inputOpen}))
}

func TestMachine_UnitOrdering(t *testing.T) {
	t.Parallel()
	m := newMachine(captureAll)
	call := genstream.ToolCall{ID: "c1", Name: "lookup", Arguments: json.RawMessage(`{"q":"x"}`)}

	evs := m.step(unitInput(genstream.Unit{
		Signal:    genstream.SignalStart,
		Reasoning: "think",
		Parts: []genstream.Part{
			genstream.TextPart{Text: "a"},
			genstream.TextPart{Text: "b"},
			call,
			genstream.MediaPart{MimeType: "image/png", Data: []byte{1}},
			genstream.TextPart{Text: "c"},
		},
	}))

	assert.Equal(t, []genstream.Event{
		genstream.EventStart{},
		genstream.EventReasoningChunk{Text: "think"},
		genstream.EventContentChunk{Text: "ab"},
		genstream.EventToolCall{Call: call},
		genstream.EventContentChunk{Text: "c"},
	}, evs)
}

func TestMachine_UsageOnlyUnit(t *testing.T) {
	t.Parallel()
	m := newMachine(captureAll)
	m.step(input{kind: inputOpen})

	evs := m.step(unitInput(genstream.Unit{Usage: &genstream.Usage{PromptTokens: 3}}))

	assert.Empty(t, evs)
	assert.Equal(t, genstream.StreamStateStarted, m.state)
	require.NotNil(t, m.agg.usage)
	assert.Equal(t, 3, m.agg.usage.PromptTokens)
}

func TestMachine_UsageSnapshotReplaced(t *testing.T) {
	t.Parallel()
	m := newMachine(captureAll)
	first := &genstream.Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4}
	m.step(unitInput(genstream.Unit{Usage: first}))
	m.step(unitInput(genstream.Unit{Usage: &genstream.Usage{PromptTokens: 3, CompletionTokens: 5, TotalTokens: 8}}))
	first.PromptTokens = 99

	evs := m.step(input{kind: inputClose})

	require.Len(t, evs, 1)
	end := evs[0].(genstream.EventEnd)
	assert.Equal(t, &genstream.Usage{PromptTokens: 3, CompletionTokens: 5, TotalTokens: 8}, end.Aggregates.Usage)
}

func TestMachine_EndMovesAggregates(t *testing.T) {
	t.Parallel()
	m := newMachine(captureAll)
	call := genstream.ToolCall{ID: "c1", Name: "f", Arguments: json.RawMessage(`{}`)}
	m.step(unitInput(genstream.Unit{Reasoning: "r1", Parts: []genstream.Part{genstream.TextPart{Text: "x"}}}))
	m.step(unitInput(genstream.Unit{Reasoning: "r2", Parts: []genstream.Part{genstream.TextPart{Text: "y"}, call}}))

	evs := m.step(unitInput(genstream.Unit{Signal: genstream.SignalEnd}))

	require.Len(t, evs, 1)
	agg := evs[0].(genstream.EventEnd).Aggregates
	require.NotNil(t, agg.Content)
	require.NotNil(t, agg.Reasoning)
	assert.Equal(t, "xy", *agg.Content)
	assert.Equal(t, "r1r2", *agg.Reasoning)
	assert.Equal(t, []genstream.ToolCall{call}, agg.ToolCalls)
	assert.Nil(t, agg.Usage)
	assert.True(t, m.ended)
	assert.Zero(t, m.agg.content.Len())

	// Nothing follows End.
	assert.Empty(t, m.step(unitInput(genstream.Unit{Parts: []genstream.Part{genstream.TextPart{Text: "late"}}})))
	assert.Empty(t, m.step(input{kind: inputClose}))
}

func TestMachine_CaptureDisabled(t *testing.T) {
	t.Parallel()
	m := newMachine(genstream.CaptureOptions{})
	m.step(unitInput(genstream.Unit{
		Reasoning: "r",
		Parts:     []genstream.Part{genstream.TextPart{Text: "x"}, genstream.ToolCall{Name: "f"}},
		Usage:     &genstream.Usage{TotalTokens: 1},
	}))

	evs := m.step(input{kind: inputClose})

	assert.Equal(t, []genstream.Event{genstream.EventEnd{}}, evs)
}

func TestMachine_CapturedButEmpty(t *testing.T) {
	t.Parallel()
	m := newMachine(captureAll)

	evs := m.step(input{kind: inputClose})

	agg := evs[0].(genstream.EventEnd).Aggregates
	require.NotNil(t, agg.Content)
	require.NotNil(t, agg.Reasoning)
	assert.Empty(t, *agg.Content)
	assert.Empty(t, *agg.Reasoning)
	assert.NotNil(t, agg.ToolCalls)
	assert.Empty(t, agg.ToolCalls)
	assert.Nil(t, agg.Usage)
}

func TestMachine_ErrorDiscardsEverything(t *testing.T) {
	t.Parallel()
	m := newMachine(captureAll)
	m.step(unitInput(genstream.Unit{Parts: []genstream.Part{genstream.TextPart{Text: "x"}}}))
	m.push([]genstream.Event{genstream.EventContentChunk{Text: "queued"}})

	evs := m.step(input{kind: inputError})

	assert.Empty(t, evs)
	assert.Equal(t, genstream.StreamStateEnded, m.state)
	assert.Empty(t, m.pending)
	assert.Zero(t, m.agg.content.Len())
}

func TestMachine_PendingFIFO(t *testing.T) {
	t.Parallel()
	m := newMachine(captureAll)
	m.push([]genstream.Event{genstream.EventStart{}, genstream.EventContentChunk{Text: "a"}})
	m.push([]genstream.Event{genstream.EventContentChunk{Text: "b"}})

	var got []genstream.Event
	for {
		ev, ok := m.pop()
		if !ok {
			break
		}
		got = append(got, ev)
	}

	assert.Equal(t, []genstream.Event{
		genstream.EventStart{},
		genstream.EventContentChunk{Text: "a"},
		genstream.EventContentChunk{Text: "b"},
	}, got)
}

func TestMachine_EndedOnlyOnceEndIsPopped(t *testing.T) {
	t.Parallel()
	m := newMachine(captureAll)
	m.push(m.step(unitInput(genstream.Unit{
		Reasoning: "r",
		Parts:     []genstream.Part{genstream.TextPart{Text: "a"}},
		Signal:    genstream.SignalEnd,
	})))

	assert.True(t, m.ended)
	assert.Equal(t, genstream.StreamStateStreaming, m.state)
	ev, ok := m.pop()
	require.True(t, ok)
	assert.Equal(t, genstream.EventReasoningChunk{Text: "r"}, ev)
	assert.Equal(t, genstream.StreamStateStreaming, m.state)
	_, _ = m.pop()
	ev, ok = m.pop()
	require.True(t, ok)
	assert.IsType(t, genstream.EventEnd{}, ev)
	assert.Equal(t, genstream.StreamStateEnded, m.state)
}
