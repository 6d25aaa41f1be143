package ollama

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/fwojciec/genstream"
)

// Interface compliance check.
var _ genstream.Decoder = Decoder{}

// Decoder decodes /api/chat stream objects. It keeps no state.
type Decoder struct{}

type apiChunk struct {
	Message         *apiMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error"`
}

type apiMessage struct {
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	Thinking  string        `json:"thinking,omitempty"`
	ToolCalls []apiToolCall `json:"tool_calls,omitempty"`
}

type apiToolCall struct {
	Function struct {
		Index     int             `json:"index"`
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// Decode maps one object to a unit. The done object ends the stream.
func (Decoder) Decode(msg genstream.Message) (genstream.Unit, error) {
	data := strings.TrimSpace(msg.Data)
	if data == "" {
		return genstream.Unit{}, nil
	}
	var chunk apiChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return genstream.Unit{}, decodeError(msg, err)
	}
	if chunk.Error != "" {
		return genstream.Unit{}, decodeError(msg, errors.New(chunk.Error))
	}

	var u genstream.Unit
	if m := chunk.Message; m != nil {
		u.Reasoning = m.Thinking
		if m.Content != "" {
			u.Parts = append(u.Parts, genstream.TextPart{Text: m.Content})
		}
		for _, tc := range m.ToolCalls {
			args := tc.Function.Arguments
			if len(args) == 0 || string(args) == "null" {
				args = json.RawMessage(`{}`)
			}
			u.Parts = append(u.Parts, genstream.ToolCall{
				ID:        tc.Function.Name,
				Name:      tc.Function.Name,
				Arguments: args,
			})
		}
	}
	if chunk.Done {
		u.Usage = &genstream.Usage{
			PromptTokens:     chunk.PromptEvalCount,
			CompletionTokens: chunk.EvalCount,
			TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
		}
		u.Signal = genstream.SignalEnd
	}
	return u, nil
}

func decodeError(msg genstream.Message, err error) error {
	return &genstream.DecodeError{Provider: providerName, Data: msg.Data, Err: err}
}
