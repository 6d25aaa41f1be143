package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/genstream"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ genstream.Decoder = Decoder{}

// Decoder decodes streamGenerateContent messages. It keeps no state, so a
// single value may serve any number of streams.
type Decoder struct{}

// apiError is the error envelope Gemini sends in place of a response.
type apiError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Decode maps "[" and "]" to the start and end signals and every other
// message, a GenerateContentResponse object, to a unit.
func (Decoder) Decode(msg genstream.Message) (genstream.Unit, error) {
	switch msg.Data {
	case "[":
		return genstream.Unit{Signal: genstream.SignalStart}, nil
	case "]":
		return genstream.Unit{Signal: genstream.SignalEnd}, nil
	}

	var env apiError
	if err := json.Unmarshal([]byte(msg.Data), &env); err != nil {
		return genstream.Unit{}, decodeError(msg, err)
	}
	if env.Error != nil {
		return genstream.Unit{}, decodeError(msg, fmt.Errorf("%s (%d): %s", env.Error.Status, env.Error.Code, env.Error.Message))
	}

	var resp genai.GenerateContentResponse
	if err := json.Unmarshal([]byte(msg.Data), &resp); err != nil {
		return genstream.Unit{}, decodeError(msg, err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" && len(resp.Candidates) == 0 {
		return genstream.Unit{}, decodeError(msg, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
	}

	u := genstream.Unit{Usage: convertUsage(resp.UsageMetadata)}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return u, nil
	}
	var reasoning []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil {
			continue
		}
		switch {
		case p.FunctionCall != nil:
			call, err := convertFunctionCall(p.FunctionCall)
			if err != nil {
				return genstream.Unit{}, decodeError(msg, err)
			}
			u.Parts = append(u.Parts, call)
		case p.ExecutableCode != nil:
			reasoning = append(reasoning, p.ExecutableCode.Code)
		case p.CodeExecutionResult != nil:
			reasoning = append(reasoning, p.CodeExecutionResult.Output)
		case p.InlineData != nil:
			u.Parts = append(u.Parts, genstream.MediaPart{MimeType: p.InlineData.MIMEType, Data: p.InlineData.Data})
		case p.Thought:
			if p.Text != "" {
				reasoning = append(reasoning, p.Text)
			}
		case p.Text != "":
			u.Parts = append(u.Parts, genstream.TextPart{Text: p.Text})
		}
	}
	u.Reasoning = strings.Join(reasoning, "\n")
	return u, nil
}

// convertFunctionCall builds a tool call. Gemini often omits the call id, in
// which case the function name stands in for it.
func convertFunctionCall(fc *genai.FunctionCall) (genstream.ToolCall, error) {
	id := fc.ID
	if id == "" {
		id = fc.Name
	}
	args := json.RawMessage(`{}`)
	if fc.Args != nil {
		b, err := json.Marshal(fc.Args)
		if err != nil {
			return genstream.ToolCall{}, fmt.Errorf("invalid tool call arguments for %s: %w", fc.Name, err)
		}
		args = b
	}
	return genstream.ToolCall{ID: id, Name: fc.Name, Arguments: args}, nil
}

// convertUsage normalizes usage metadata. Gemini reports thought tokens
// separately from candidate tokens; they are folded into CompletionTokens.
func convertUsage(m *genai.GenerateContentResponseUsageMetadata) *genstream.Usage {
	if m == nil {
		return nil
	}
	return &genstream.Usage{
		PromptTokens:     int(m.PromptTokenCount),
		CompletionTokens: int(m.CandidatesTokenCount) + int(m.ThoughtsTokenCount),
		TotalTokens:      int(m.TotalTokenCount),
		CachedTokens:     int(m.CachedContentTokenCount),
		ReasoningTokens:  int(m.ThoughtsTokenCount),
	}
}

func decodeError(msg genstream.Message, err error) error {
	return &genstream.DecodeError{Provider: providerName, Data: msg.Data, Err: err}
}
