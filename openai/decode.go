package openai

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/fwojciec/genstream"
	"github.com/kaptinlin/jsonrepair"
)

// Interface compliance checks.
var (
	_ genstream.Decoder = (*Decoder)(nil)
	_ genstream.Flusher = (*Decoder)(nil)
)

// Decoder decodes chat.completion.chunk events. It assembles tool calls
// across chunks and is therefore bound to one stream.
type Decoder struct {
	calls map[int]*toolCallState
}

type toolCallState struct {
	id   string
	name string
	args strings.Builder
}

// NewDecoder returns a Decoder for one stream.
func NewDecoder() *Decoder {
	return &Decoder{calls: make(map[int]*toolCallState)}
}

type apiChunk struct {
	Choices []apiChoice `json:"choices"`
	Usage   *apiUsage   `json:"usage"`
	Error   *apiError   `json:"error"`
}

type apiChoice struct {
	Index        int      `json:"index"`
	Delta        apiDelta `json:"delta"`
	FinishReason *string  `json:"finish_reason"`
}

type apiDelta struct {
	Content          string            `json:"content"`
	ReasoningContent string            `json:"reasoning_content"`
	Reasoning        string            `json:"reasoning"`
	ToolCalls        []apiToolCallDiff `json:"tool_calls"`
}

type apiToolCallDiff struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type apiUsage struct {
	PromptTokens        int `json:"prompt_tokens"`
	CompletionTokens    int `json:"completion_tokens"`
	TotalTokens         int `json:"total_tokens"`
	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Decode maps one event to a unit. "[DONE]" ends the stream, after any tool
// calls still being assembled.
func (d *Decoder) Decode(msg genstream.Message) (genstream.Unit, error) {
	data := strings.TrimSpace(msg.Data)
	if data == doneSentinel {
		return genstream.Unit{Parts: d.flushCalls(), Signal: genstream.SignalEnd}, nil
	}
	if data == "" {
		return genstream.Unit{}, nil
	}

	var chunk apiChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return genstream.Unit{}, decodeError(msg, err)
	}
	if chunk.Error != nil {
		return genstream.Unit{}, decodeError(msg, fmt.Errorf("%s: %s", chunk.Error.Type, chunk.Error.Message))
	}

	var u genstream.Unit
	if chunk.Usage != nil {
		u.Usage = convertUsage(chunk.Usage)
	}
	for _, c := range chunk.Choices {
		// Only the first choice is streamed.
		if c.Index != 0 {
			continue
		}
		u.Reasoning = c.Delta.ReasoningContent
		if u.Reasoning == "" {
			u.Reasoning = c.Delta.Reasoning
		}
		if c.Delta.Content != "" {
			u.Parts = append(u.Parts, genstream.TextPart{Text: c.Delta.Content})
		}
		for _, tc := range c.Delta.ToolCalls {
			d.accumulate(tc)
		}
		if c.FinishReason != nil && *c.FinishReason != "" {
			u.Parts = append(u.Parts, d.flushCalls()...)
		}
	}
	return u, nil
}

// Flush returns tool calls still being assembled when the stream ends
// without a finish reason or "[DONE]".
func (d *Decoder) Flush() genstream.Unit {
	return genstream.Unit{Parts: d.flushCalls()}
}

func (d *Decoder) accumulate(tc apiToolCallDiff) {
	st, ok := d.calls[tc.Index]
	if !ok {
		st = &toolCallState{}
		d.calls[tc.Index] = st
	}
	if tc.ID != "" {
		st.id = tc.ID
	}
	// Some compatible backends repeat the name in every delta.
	if st.name == "" {
		st.name = tc.Function.Name
	}
	st.args.WriteString(tc.Function.Arguments)
}

// flushCalls returns the assembled tool calls in index order and forgets
// them.
func (d *Decoder) flushCalls() []genstream.Part {
	if len(d.calls) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(d.calls))
	for i := range d.calls {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)
	parts := make([]genstream.Part, 0, len(indexes))
	for _, i := range indexes {
		st := d.calls[i]
		parts = append(parts, genstream.ToolCall{
			ID:        st.id,
			Name:      st.name,
			Arguments: repairArguments(st.args.String()),
		})
	}
	clear(d.calls)
	return parts
}

// repairArguments returns args as valid JSON. Truncated or sloppy argument
// strings are repaired; anything beyond repair becomes an empty object.
func repairArguments(args string) json.RawMessage {
	if strings.TrimSpace(args) == "" {
		return json.RawMessage(emptyToolArgument)
	}
	if json.Valid([]byte(args)) {
		return json.RawMessage(args)
	}
	fixed, err := jsonrepair.JSONRepair(args)
	if err != nil || !json.Valid([]byte(fixed)) {
		return json.RawMessage(emptyToolArgument)
	}
	return json.RawMessage(fixed)
}

func convertUsage(u *apiUsage) *genstream.Usage {
	out := &genstream.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if u.PromptTokensDetails != nil {
		out.CachedTokens = u.PromptTokensDetails.CachedTokens
	}
	if u.CompletionTokensDetails != nil {
		out.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	return out
}

func decodeError(msg genstream.Message, err error) error {
	return &genstream.DecodeError{Provider: providerName, Data: msg.Data, Err: err}
}
