package cohere

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/fwojciec/genstream"
)

// Interface compliance check.
var _ genstream.Decoder = Decoder{}

// Decoder decodes chat stream events. It keeps no state.
type Decoder struct{}

type apiEvent struct {
	EventType    string        `json:"event_type"`
	Text         string        `json:"text"`
	ToolCalls    []apiToolCall `json:"tool_calls"`
	FinishReason string        `json:"finish_reason"`
	Response     *apiResponse  `json:"response"`
}

type apiToolCall struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

type apiResponse struct {
	Text string   `json:"text"`
	Meta *apiMeta `json:"meta"`
}

type apiMeta struct {
	BilledUnits *apiTokens `json:"billed_units"`
	Tokens      *apiTokens `json:"tokens"`
}

type apiTokens struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Decode maps one event line to a unit. Unknown event types decode to an
// empty unit.
func (Decoder) Decode(msg genstream.Message) (genstream.Unit, error) {
	data := strings.TrimSpace(msg.Data)
	if data == "" {
		return genstream.Unit{}, nil
	}
	var ev apiEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return genstream.Unit{}, decodeError(msg, err)
	}

	switch ev.EventType {
	case eventStreamStart:
		return genstream.Unit{Signal: genstream.SignalStart}, nil
	case eventTextGen:
		if ev.Text == "" {
			return genstream.Unit{}, nil
		}
		return genstream.Unit{Parts: []genstream.Part{genstream.TextPart{Text: ev.Text}}}, nil
	case eventToolCallsGen:
		var u genstream.Unit
		for _, tc := range ev.ToolCalls {
			args := tc.Parameters
			if len(args) == 0 || string(args) == "null" {
				args = json.RawMessage(`{}`)
			}
			u.Parts = append(u.Parts, genstream.ToolCall{ID: tc.Name, Name: tc.Name, Arguments: args})
		}
		return u, nil
	case eventStreamEnd:
		if ev.FinishReason == finishReasonError {
			reason := "stream ended with finish reason ERROR"
			if ev.Response != nil && ev.Response.Text != "" {
				reason += ": " + ev.Response.Text
			}
			return genstream.Unit{}, decodeError(msg, errors.New(reason))
		}
		return genstream.Unit{Usage: convertUsage(ev.Response), Signal: genstream.SignalEnd}, nil
	}
	return genstream.Unit{}, nil
}

// convertUsage prefers the token counts the model saw and falls back to
// billed units.
func convertUsage(resp *apiResponse) *genstream.Usage {
	if resp == nil || resp.Meta == nil {
		return nil
	}
	t := resp.Meta.Tokens
	if t == nil {
		t = resp.Meta.BilledUnits
	}
	if t == nil {
		return nil
	}
	return &genstream.Usage{
		PromptTokens:     t.InputTokens,
		CompletionTokens: t.OutputTokens,
		TotalTokens:      t.InputTokens + t.OutputTokens,
	}
}

func decodeError(msg genstream.Message, err error) error {
	return &genstream.DecodeError{Provider: providerName, Data: msg.Data, Err: err}
}
