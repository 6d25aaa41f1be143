package openai_test

import (
	"testing"

	"github.com/fwojciec/genstream"
	"github.com/fwojciec/genstream/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, data ...string) []genstream.Unit {
	t.Helper()
	d := openai.NewDecoder()
	units := make([]genstream.Unit, 0, len(data))
	for _, s := range data {
		u, err := d.Decode(genstream.Message{Data: s})
		require.NoError(t, err, s)
		units = append(units, u)
	}
	return units
}

func TestDecoder_Content(t *testing.T) {
	t.Parallel()
	units := decodeAll(t,
		`{"choices":[{"index":0,"delta":{"role":"assistant","content":""}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":null}]}`,
		"[DONE]",
	)
	assert.Empty(t, units[0].Parts)
	assert.Equal(t, []genstream.Part{genstream.TextPart{Text: "Hel"}}, units[1].Parts)
	assert.Equal(t, []genstream.Part{genstream.TextPart{Text: "lo"}}, units[2].Parts)
	assert.Equal(t, genstream.Unit{Signal: genstream.SignalEnd}, units[3])
}

func TestDecoder_Reasoning(t *testing.T) {
	t.Parallel()
	units := decodeAll(t,
		`{"choices":[{"index":0,"delta":{"reasoning_content":"step 1"}}]}`,
		`{"choices":[{"index":0,"delta":{"reasoning":"step 2","content":"done"}}]}`,
	)
	assert.Equal(t, "step 1", units[0].Reasoning)
	assert.Equal(t, "step 2", units[1].Reasoning)
	assert.Equal(t, []genstream.Part{genstream.TextPart{Text: "done"}}, units[1].Parts)
}

func TestDecoder_Usage(t *testing.T) {
	t.Parallel()
	units := decodeAll(t, `{"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":30,"total_tokens":42,"prompt_tokens_details":{"cached_tokens":8},"completion_tokens_details":{"reasoning_tokens":20}}}`)
	assert.Equal(t, &genstream.Usage{
		PromptTokens:     12,
		CompletionTokens: 30,
		TotalTokens:      42,
		CachedTokens:     8,
		ReasoningTokens:  20,
	}, units[0].Usage)
	assert.Empty(t, units[0].Parts)
}

func TestDecoder_ToolCallsAssembledOnFinish(t *testing.T) {
	t.Parallel()
	units := decodeAll(t,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_a","type":"function","function":{"name":"get_weather","arguments":""}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"id":"call_b","type":"function","function":{"name":"get_time","arguments":"{}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"city\":"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"Paris\"}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
		"[DONE]",
	)
	for _, u := range units[:4] {
		assert.Empty(t, u.Parts)
	}
	require.Len(t, units[4].Parts, 2)
	first := units[4].Parts[0].(genstream.ToolCall)
	assert.Equal(t, "call_a", first.ID)
	assert.Equal(t, "get_weather", first.Name)
	assert.JSONEq(t, `{"city":"Paris"}`, string(first.Arguments))
	second := units[4].Parts[1].(genstream.ToolCall)
	assert.Equal(t, "call_b", second.ID)
	assert.JSONEq(t, `{}`, string(second.Arguments))
	assert.Empty(t, units[5].Parts, "calls are emitted once")
}

func TestDecoder_ToolCallsFlushedAtDone(t *testing.T) {
	t.Parallel()
	units := decodeAll(t,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"f","arguments":"{\"a\":1}"}}]}}]}`,
		"[DONE]",
	)
	require.Len(t, units[1].Parts, 1)
	assert.Equal(t, genstream.SignalEnd, units[1].Signal)
	assert.JSONEq(t, `{"a":1}`, string(units[1].Parts[0].(genstream.ToolCall).Arguments))
}

func TestDecoder_RepairsArguments(t *testing.T) {
	t.Parallel()
	units := decodeAll(t,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"f","arguments":"{\"path\": \"a.txt\""}}]},"finish_reason":"tool_calls"}]}`,
	)
	require.Len(t, units[0].Parts, 1)
	assert.JSONEq(t, `{"path":"a.txt"}`, string(units[0].Parts[0].(genstream.ToolCall).Arguments))
}

func TestDecoder_EmptyArguments(t *testing.T) {
	t.Parallel()
	units := decodeAll(t,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"f"}}]},"finish_reason":"tool_calls"}]}`,
	)
	assert.Equal(t, `{}`, string(units[0].Parts[0].(genstream.ToolCall).Arguments))
}

func TestDecoder_TextBeforeToolCallsInSameChunk(t *testing.T) {
	t.Parallel()
	units := decodeAll(t,
		`{"choices":[{"index":0,"delta":{"content":"Checking.","tool_calls":[{"index":0,"id":"c1","function":{"name":"f","arguments":"{}"}}]},"finish_reason":"tool_calls"}]}`,
	)
	require.Len(t, units[0].Parts, 2)
	assert.Equal(t, genstream.TextPart{Text: "Checking."}, units[0].Parts[0])
	assert.IsType(t, genstream.ToolCall{}, units[0].Parts[1])
}

func TestDecoder_IgnoresOtherChoices(t *testing.T) {
	t.Parallel()
	units := decodeAll(t, `{"choices":[{"index":1,"delta":{"content":"other"}},{"index":0,"delta":{"content":"mine"}}]}`)
	assert.Equal(t, []genstream.Part{genstream.TextPart{Text: "mine"}}, units[0].Parts)
}

func TestDecoder_ErrorObject(t *testing.T) {
	t.Parallel()
	data := `{"error":{"message":"The server had an error","type":"server_error"}}`
	_, err := openai.NewDecoder().Decode(genstream.Message{Data: data})

	var de *genstream.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "openai", de.Provider)
	assert.Contains(t, err.Error(), "server_error: The server had an error")
}

func TestDecoder_Malformed(t *testing.T) {
	t.Parallel()
	_, err := openai.NewDecoder().Decode(genstream.Message{Data: `{"choices":[`})

	var de *genstream.DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestDecoder_EmptyData(t *testing.T) {
	t.Parallel()
	units := decodeAll(t, "", "  ")
	assert.Equal(t, genstream.Unit{}, units[0])
	assert.Equal(t, genstream.Unit{}, units[1])
}

func TestDecoder_RepeatedNameNotDoubled(t *testing.T) {
	t.Parallel()
	units := decodeAll(t,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"lookup","arguments":"{\"q\":"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"name":"lookup","arguments":"\"go\"}"}}]},"finish_reason":"tool_calls"}]}`,
	)
	require.Len(t, units[1].Parts, 1)
	call := units[1].Parts[0].(genstream.ToolCall)
	assert.Equal(t, "lookup", call.Name)
	assert.JSONEq(t, `{"q":"go"}`, string(call.Arguments))
}

func TestDecoder_FlushReturnsPendingCalls(t *testing.T) {
	t.Parallel()
	d := openai.NewDecoder()
	_, err := d.Decode(genstream.Message{Data: `{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"f","arguments":"{\"a\":1}"}}]}}]}`})
	require.NoError(t, err)

	u := d.Flush()
	require.Len(t, u.Parts, 1)
	assert.Equal(t, "c1", u.Parts[0].(genstream.ToolCall).ID)
	assert.Equal(t, genstream.SignalNone, u.Signal)
	assert.Empty(t, d.Flush().Parts, "calls are emitted once")
}
