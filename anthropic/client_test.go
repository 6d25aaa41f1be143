package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/genstream"
	"github.com/fwojciec/genstream/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// sseResponse is a helper to build SSE responses for tests.
type sseResponse struct {
	events []sseEvent
}

type sseEvent struct {
	event string
	data  string
}

func (s sseResponse) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, evt := range s.events {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.event, evt.data)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// thinkingToolResponse streams thinking, text and a tool call.
func thinkingToolResponse() sseResponse {
	return sseResponse{events: []sseEvent{
		{"message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-20250514","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":1}}}`},
		{"content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"thinking","thinking":""}}`},
		{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"Need weather."}}`},
		{"content_block_stop", `{"type":"content_block_stop","index":0}`},
		{"content_block_start", `{"type":"content_block_start","index":1,"content_block":{"type":"text","text":""}}`},
		{"ping", `{"type":"ping"}`},
		{"content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":"Hello"}}`},
		{"content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":" world"}}`},
		{"content_block_stop", `{"type":"content_block_stop","index":1}`},
		{"content_block_start", `{"type":"content_block_start","index":2,"content_block":{"type":"tool_use","id":"toolu_1","name":"weather","input":{}}}`},
		{"content_block_delta", `{"type":"content_block_delta","index":2,"delta":{"type":"input_json_delta","partial_json":"{\"city\":"}}`},
		{"content_block_delta", `{"type":"content_block_delta","index":2,"delta":{"type":"input_json_delta","partial_json":"\"Oslo\"}"}}`},
		{"content_block_stop", `{"type":"content_block_stop","index":2}`},
		{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"tool_use","stop_sequence":null},"usage":{"output_tokens":25}}`},
		{"message_stop", `{"type":"message_stop"}`},
	}}
}

func drain(t *testing.T, s genstream.Stream) ([]genstream.Event, error) {
	t.Helper()
	var evs []genstream.Event
	for {
		ev, err := s.Next()
		if errors.Is(err, io.EOF) {
			return evs, nil
		}
		if err != nil {
			return evs, err
		}
		evs = append(evs, ev)
	}
}

func chat(text string) genstream.Request {
	return genstream.Request{Messages: []genstream.ChatMessage{{Role: genstream.RoleUser, Text: text}}}
}

func TestClient_Stream(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(thinkingToolResponse().handler())
	defer srv.Close()

	on := ptr(true)
	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL), anthropic.WithDefaults(genstream.ChatOptions{
		CaptureUsage: on, CaptureContent: on, CaptureReasoning: on, CaptureToolCalls: on,
	}))
	s, err := client.Stream(context.Background(), chat("Hi"))
	require.NoError(t, err)
	defer s.Close()

	evs, err := drain(t, s)
	require.NoError(t, err)

	call := genstream.ToolCall{ID: "toolu_1", Name: "weather", Arguments: json.RawMessage(`{"city":"Oslo"}`)}
	require.Len(t, evs, 6)
	assert.Equal(t, genstream.EventStart{}, evs[0])
	assert.Equal(t, genstream.EventReasoningChunk{Text: "Need weather."}, evs[1])
	assert.Equal(t, genstream.EventContentChunk{Text: "Hello"}, evs[2])
	assert.Equal(t, genstream.EventContentChunk{Text: " world"}, evs[3])
	assert.Equal(t, genstream.EventToolCall{Call: call}, evs[4])

	end, ok := evs[5].(genstream.EventEnd)
	require.True(t, ok)
	assert.Equal(t, &genstream.Usage{PromptTokens: 10, CompletionTokens: 25, TotalTokens: 35}, end.Aggregates.Usage)
	assert.Equal(t, "Hello world", *end.Aggregates.Content)
	assert.Equal(t, "Need weather.", *end.Aggregates.Reasoning)
	assert.Equal(t, []genstream.ToolCall{call}, end.Aggregates.ToolCalls)
	assert.Equal(t, genstream.StreamStateEnded, s.State())
}

func TestClient_RequestFormat(t *testing.T) {
	t.Parallel()
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("Anthropic-Version"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"))
	}))
	defer srv.Close()

	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL), anthropic.WithThinking(1024))
	s, err := client.Stream(context.Background(), genstream.Request{
		SystemPrompt: "Be brief.",
		Messages: []genstream.ChatMessage{
			{Role: genstream.RoleUser, Text: "Hello"},
			{Role: genstream.RoleUser, Text: "Are you there?"},
			{Role: genstream.RoleAssistant, Text: "Yes."},
			{Role: genstream.RoleUser, Text: "Weather?"},
		},
		Tools: []genstream.Tool{
			{Name: "weather", Description: "Forecast", Parameters: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`)},
			{Name: "now"},
		},
		Temperature: ptr(1.0),
	})
	require.NoError(t, err)
	defer s.Close()
	_, err = drain(t, s)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))
	assert.Equal(t, "claude-sonnet-4-20250514", body["model"])
	assert.Equal(t, float64(8192), body["max_tokens"])
	assert.Equal(t, true, body["stream"])
	assert.Equal(t, 1.0, body["temperature"])
	assert.Equal(t, map[string]any{"type": "enabled", "budget_tokens": float64(1024)}, body["thinking"])
	assert.Equal(t, map[string]any{"type": "ephemeral"}, body["cache_control"])

	system := body["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, map[string]any{"type": "text", "text": "Be brief.", "cache_control": map[string]any{"type": "ephemeral"}}, system[0])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 3, "consecutive user turns are merged")
	first := msgs[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Len(t, first["content"], 2)

	tools := body["tools"].([]any)
	require.Len(t, tools, 2)
	assert.NotContains(t, tools[0], "cache_control")
	last := tools[1].(map[string]any)
	assert.Equal(t, map[string]any{"type": "ephemeral"}, last["cache_control"])
	assert.Equal(t, map[string]any{"type": "object", "properties": map[string]any{}}, last["input_schema"])
}

func TestClient_ThinkingBudgetMustFitMaxTokens(t *testing.T) {
	t.Parallel()
	client := anthropic.New("k", anthropic.WithBaseURL("http://127.0.0.1:0"), anthropic.WithThinking(2048))
	req := chat("Hi")
	req.MaxTokens = 1024
	_, err := client.Stream(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, genstream.ErrValidation)
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	client := anthropic.New("bad", anthropic.WithBaseURL(srv.URL))
	_, err := client.Stream(context.Background(), chat("Hi"))
	require.Error(t, err)
	var te *genstream.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
	assert.Equal(t, "anthropic: HTTP 401: invalid x-api-key", err.Error())
}

func TestClient_ErrorEventMidStream(t *testing.T) {
	t.Parallel()
	resp := sseResponse{events: []sseEvent{
		{"message_start", `{"type":"message_start","message":{"usage":{"input_tokens":3,"output_tokens":0}}}`},
		{"content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`},
		{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Par"}}`},
		{"error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`},
	}}
	srv := httptest.NewServer(resp.handler())
	defer srv.Close()

	client := anthropic.New("k", anthropic.WithBaseURL(srv.URL))
	s, err := client.Stream(context.Background(), chat("Hi"))
	require.NoError(t, err)
	defer s.Close()

	evs, err := drain(t, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded_error: Overloaded")
	assert.Equal(t, []genstream.Event{genstream.EventStart{}, genstream.EventContentChunk{Text: "Par"}}, evs)
	assert.Equal(t, err, s.Err())
}

func TestClient_ValidatesRequest(t *testing.T) {
	t.Parallel()
	client := anthropic.New("k")
	_, err := client.Stream(context.Background(), genstream.Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, genstream.ErrValidation)
}
