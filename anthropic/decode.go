package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/genstream"
	"github.com/kaptinlin/jsonrepair"
)

// Interface compliance check.
var _ genstream.Decoder = (*Decoder)(nil)

// Decoder decodes Messages API stream events. It tracks content blocks and
// running usage across events and is therefore bound to one stream.
type Decoder struct {
	blocks map[int]*blockState
	usage  genstream.Usage
}

type blockState struct {
	kind  string
	id    string
	name  string
	input strings.Builder
}

// NewDecoder returns a Decoder for one stream.
func NewDecoder() *Decoder {
	return &Decoder{blocks: make(map[int]*blockState)}
}

// Decode maps one event to a unit. The event type comes from the SSE event
// name, or from the payload's "type" field when the name is missing.
func (d *Decoder) Decode(msg genstream.Message) (genstream.Unit, error) {
	data := strings.TrimSpace(msg.Data)
	if data == "" {
		return genstream.Unit{}, nil
	}
	kind := msg.Event
	if kind == "" {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(data), &probe); err != nil {
			return genstream.Unit{}, decodeError(msg, err)
		}
		kind = probe.Type
	}

	switch kind {
	case "message_start":
		var evt sseMessageStart
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return genstream.Unit{}, decodeError(msg, err)
		}
		d.usage = genstream.Usage{}
		d.setInput(&evt.Message.Usage.InputTokens, evt.Message.Usage.CacheReadInputTokens, evt.Message.Usage.CacheCreationInputTokens)
		d.setOutput(evt.Message.Usage.OutputTokens)
		usage := d.usage
		return genstream.Unit{Signal: genstream.SignalStart, Usage: &usage}, nil
	case "content_block_start":
		return d.blockStart(msg, data)
	case "content_block_delta":
		return d.blockDelta(msg, data)
	case "content_block_stop":
		return d.blockStop(msg, data)
	case "message_delta":
		var evt sseMessageDelta
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return genstream.Unit{}, decodeError(msg, err)
		}
		d.setInput(evt.Usage.InputTokens, evt.Usage.CacheReadInputTokens, evt.Usage.CacheCreationInputTokens)
		if evt.Usage.OutputTokens != nil {
			d.setOutput(*evt.Usage.OutputTokens)
		}
		usage := d.usage
		return genstream.Unit{Usage: &usage}, nil
	case "message_stop":
		return genstream.Unit{Signal: genstream.SignalEnd}, nil
	case "error":
		var evt sseError
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return genstream.Unit{}, decodeError(msg, err)
		}
		return genstream.Unit{}, decodeError(msg, fmt.Errorf("%s: %s", evt.Error.Type, evt.Error.Message))
	default:
		// ping and event types added later carry nothing to normalize.
		return genstream.Unit{}, nil
	}
}

func (d *Decoder) blockStart(msg genstream.Message, data string) (genstream.Unit, error) {
	var evt sseContentBlockStart
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return genstream.Unit{}, decodeError(msg, err)
	}
	cb := evt.ContentBlock
	d.blocks[evt.Index] = &blockState{kind: cb.Type, id: cb.ID, name: cb.Name}

	var u genstream.Unit
	switch cb.Type {
	case "text":
		if cb.Text != "" {
			u.Parts = []genstream.Part{genstream.TextPart{Text: cb.Text}}
		}
	case "thinking":
		u.Reasoning = cb.Thinking
	}
	return u, nil
}

func (d *Decoder) blockDelta(msg genstream.Message, data string) (genstream.Unit, error) {
	var evt sseContentBlockDelta
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return genstream.Unit{}, decodeError(msg, err)
	}
	bs := d.blocks[evt.Index]
	if bs == nil {
		return genstream.Unit{}, decodeError(msg, fmt.Errorf("delta for unknown block index %d", evt.Index))
	}

	var u genstream.Unit
	switch evt.Delta.Type {
	case "text_delta":
		if evt.Delta.Text != "" {
			u.Parts = []genstream.Part{genstream.TextPart{Text: evt.Delta.Text}}
		}
	case "thinking_delta":
		u.Reasoning = evt.Delta.Thinking
	case "input_json_delta":
		bs.input.WriteString(evt.Delta.PartialJSON)
	}
	return u, nil
}

func (d *Decoder) blockStop(msg genstream.Message, data string) (genstream.Unit, error) {
	var evt sseContentBlockStop
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return genstream.Unit{}, decodeError(msg, err)
	}
	bs := d.blocks[evt.Index]
	if bs == nil {
		return genstream.Unit{}, decodeError(msg, fmt.Errorf("stop for unknown block index %d", evt.Index))
	}
	delete(d.blocks, evt.Index)
	if bs.kind != "tool_use" {
		return genstream.Unit{}, nil
	}
	call := genstream.ToolCall{
		ID:        bs.id,
		Name:      bs.name,
		Arguments: repairArguments(bs.input.String()),
	}
	return genstream.Unit{Parts: []genstream.Part{call}}, nil
}

// setInput records prompt-side counts. Anthropic reports cache reads and
// writes separately from input_tokens; PromptTokens includes both.
func (d *Decoder) setInput(input, cacheRead, cacheWrite *int) {
	if input == nil && cacheRead == nil && cacheWrite == nil {
		return
	}
	prompt := 0
	if input != nil {
		prompt += *input
	}
	cached := 0
	if cacheRead != nil {
		cached = *cacheRead
	}
	if cacheWrite != nil {
		prompt += *cacheWrite
	}
	d.usage.PromptTokens = prompt + cached
	d.usage.CachedTokens = cached
	d.usage.TotalTokens = d.usage.PromptTokens + d.usage.CompletionTokens
}

func (d *Decoder) setOutput(output int) {
	d.usage.CompletionTokens = output
	d.usage.TotalTokens = d.usage.PromptTokens + d.usage.CompletionTokens
}

// repairArguments returns the streamed tool input as valid JSON. Truncated
// input is repaired; anything beyond repair becomes an empty object.
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

func decodeError(msg genstream.Message, err error) error {
	return &genstream.DecodeError{Provider: providerName, Data: msg.Data, Err: err}
}
