package genstream_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/fwojciec/genstream"
	"github.com/fwojciec/genstream/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_RecordsEventsAndReply(t *testing.T) {
	t.Parallel()

	end := genstream.EventEnd{Aggregates: genstream.Aggregates{Usage: &genstream.Usage{TotalTokens: 7}}}
	stream := mock.Events(
		genstream.EventStart{},
		genstream.EventReasoningChunk{Text: "hmm"},
		genstream.EventContentChunk{Text: "Hello"},
		genstream.EventContentChunk{Text: ", world"},
		end,
	)
	closed := 0
	stream.CloseFn = func() error { closed++; return nil }

	var got genstream.Request
	p := &mock.Provider{StreamFn: func(_ context.Context, req genstream.Request) (genstream.Stream, error) {
		got = req
		return stream, nil
	}}

	tr := &genstream.Transcript{
		Model:        "m1",
		SystemPrompt: "be brief",
		Messages:     []genstream.ChatMessage{{Role: genstream.RoleUser, Text: "hi"}},
		Tools:        []genstream.Tool{{Name: "now"}},
	}
	var seen []genstream.Event
	err := genstream.Run(context.Background(), p, tr,
		genstream.WithEventHandler(func(e genstream.Event) { seen = append(seen, e) }),
		genstream.WithMaxTokens(64),
		genstream.WithTemperature(0.5),
		genstream.WithChatOptions(genstream.ChatOptions{CaptureUsage: ptr(true)}),
	)
	require.NoError(t, err)

	assert.Equal(t, "m1", got.Model)
	assert.Equal(t, "be brief", got.SystemPrompt)
	assert.Equal(t, 64, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.5, *got.Temperature, 1e-9)
	require.NotNil(t, got.Options.CaptureUsage)
	assert.Len(t, got.Tools, 1)

	assert.Len(t, seen, 5)
	assert.Equal(t, seen, tr.Events)
	require.Len(t, tr.Messages, 2)
	assert.Equal(t, genstream.ChatMessage{Role: genstream.RoleAssistant, Text: "Hello, world"}, tr.Messages[1])
	assert.False(t, tr.CreatedAt.IsZero())
	assert.False(t, tr.UpdatedAt.Before(tr.CreatedAt))
	assert.Equal(t, 1, closed)

	last, ok := tr.LastEnd()
	require.True(t, ok)
	assert.Equal(t, end, last)
}

func TestRun_NoReplyWithoutContent(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{StreamFn: func(context.Context, genstream.Request) (genstream.Stream, error) {
		return mock.Events(genstream.EventStart{}, genstream.EventEnd{}), nil
	}}
	tr := &genstream.Transcript{Messages: []genstream.ChatMessage{{Role: genstream.RoleUser, Text: "hi"}}}
	require.NoError(t, genstream.Run(context.Background(), p, tr))
	assert.Len(t, tr.Messages, 1)
	assert.Len(t, tr.Events, 2)
}

func TestRun_StreamErrorKeepsPartialEvents(t *testing.T) {
	t.Parallel()
	boom := &genstream.TransportError{Provider: "mock", Err: io.ErrUnexpectedEOF}
	calls := 0
	stream := &mock.Stream{NextFn: func() (genstream.Event, error) {
		calls++
		if calls == 1 {
			return genstream.EventContentChunk{Text: "par"}, nil
		}
		return nil, boom
	}}
	p := &mock.Provider{StreamFn: func(context.Context, genstream.Request) (genstream.Stream, error) {
		return stream, nil
	}}
	tr := &genstream.Transcript{Messages: []genstream.ChatMessage{{Role: genstream.RoleUser, Text: "hi"}}}

	err := genstream.Run(context.Background(), p, tr)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, []genstream.Event{genstream.EventContentChunk{Text: "par"}}, tr.Events)
	assert.Len(t, tr.Messages, 1)
	_, ok := tr.LastEnd()
	assert.False(t, ok)
}

func TestRun_ProviderError(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{StreamFn: func(context.Context, genstream.Request) (genstream.Stream, error) {
		return nil, genstream.ErrValidation
	}}
	tr := &genstream.Transcript{}
	err := genstream.Run(context.Background(), p, tr)
	assert.ErrorIs(t, err, genstream.ErrValidation)
	assert.Empty(t, tr.Events)
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &mock.Provider{StreamFn: func(context.Context, genstream.Request) (genstream.Stream, error) {
		t.Fatal("provider must not be called")
		return nil, errors.New("unreachable")
	}}
	err := genstream.Run(ctx, p, &genstream.Transcript{})
	assert.ErrorIs(t, err, context.Canceled)
}
