package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fwojciec/genstream"
)

// Event type discriminators.
const (
	typeStart     = "start"
	typeContent   = "content"
	typeReasoning = "reasoning"
	typeToolCall  = "tool_call"
	typeEnd       = "end"
)

// eventDTO is the JSON representation of an Event with a type discriminator.
type eventDTO struct {
	Type       string         `json:"type"`
	Text       *string        `json:"text,omitempty"`
	Call       *toolCallDTO   `json:"call,omitempty"`
	Aggregates *aggregatesDTO `json:"aggregates,omitempty"`
}

type toolCallDTO struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// aggregatesDTO keeps the captured/not-captured distinction: a nil pointer
// is omitted, an empty capture is written as "" or [].
type aggregatesDTO struct {
	Usage     *usageDTO      `json:"usage,omitempty"`
	Content   *string        `json:"content,omitempty"`
	Reasoning *string        `json:"reasoning,omitempty"`
	ToolCalls *[]toolCallDTO `json:"tool_calls,omitempty"`
}

// MarshalEvent serializes an Event to a single JSON object.
func MarshalEvent(e genstream.Event) ([]byte, error) {
	dto, err := marshalEvent(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(dto)
}

// UnmarshalEvent deserializes an Event written by MarshalEvent.
func UnmarshalEvent(data []byte) (genstream.Event, error) {
	var dto eventDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return unmarshalEvent(dto)
}

// Encoder writes events as newline-delimited JSON.
type Encoder struct {
	enc *json.Encoder
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Encoder{enc: enc}
}

// Encode writes e followed by a newline.
func (e *Encoder) Encode(ev genstream.Event) error {
	dto, err := marshalEvent(ev)
	if err != nil {
		return err
	}
	return e.enc.Encode(dto)
}

func marshalEvent(e genstream.Event) (eventDTO, error) {
	switch v := e.(type) {
	case genstream.EventStart:
		return eventDTO{Type: typeStart}, nil
	case genstream.EventContentChunk:
		return eventDTO{Type: typeContent, Text: &v.Text}, nil
	case genstream.EventReasoningChunk:
		return eventDTO{Type: typeReasoning, Text: &v.Text}, nil
	case genstream.EventToolCall:
		call := marshalToolCall(v.Call)
		return eventDTO{Type: typeToolCall, Call: &call}, nil
	case genstream.EventEnd:
		return eventDTO{Type: typeEnd, Aggregates: marshalAggregates(v.Aggregates)}, nil
	default:
		return eventDTO{}, fmt.Errorf("unknown event type: %T", e)
	}
}

func unmarshalEvent(dto eventDTO) (genstream.Event, error) {
	switch dto.Type {
	case typeStart:
		return genstream.EventStart{}, nil
	case typeContent:
		return genstream.EventContentChunk{Text: deref(dto.Text)}, nil
	case typeReasoning:
		return genstream.EventReasoningChunk{Text: deref(dto.Text)}, nil
	case typeToolCall:
		if dto.Call == nil {
			return nil, errors.New("tool_call event without call")
		}
		return genstream.EventToolCall{Call: unmarshalToolCall(*dto.Call)}, nil
	case typeEnd:
		return genstream.EventEnd{Aggregates: unmarshalAggregates(dto.Aggregates)}, nil
	default:
		return nil, fmt.Errorf("unknown event type: %q", dto.Type)
	}
}

func marshalToolCall(c genstream.ToolCall) toolCallDTO {
	return toolCallDTO{ID: c.ID, Name: c.Name, Arguments: c.Arguments}
}

func unmarshalToolCall(dto toolCallDTO) genstream.ToolCall {
	return genstream.ToolCall{ID: dto.ID, Name: dto.Name, Arguments: dto.Arguments}
}

func marshalAggregates(a genstream.Aggregates) *aggregatesDTO {
	dto := &aggregatesDTO{
		Usage:     marshalUsage(a.Usage),
		Content:   a.Content,
		Reasoning: a.Reasoning,
	}
	if a.ToolCalls != nil {
		calls := make([]toolCallDTO, len(a.ToolCalls))
		for i, c := range a.ToolCalls {
			calls[i] = marshalToolCall(c)
		}
		dto.ToolCalls = &calls
	}
	return dto
}

func unmarshalAggregates(dto *aggregatesDTO) genstream.Aggregates {
	if dto == nil {
		return genstream.Aggregates{}
	}
	a := genstream.Aggregates{
		Usage:     unmarshalUsage(dto.Usage),
		Content:   dto.Content,
		Reasoning: dto.Reasoning,
	}
	if dto.ToolCalls != nil {
		a.ToolCalls = make([]genstream.ToolCall, len(*dto.ToolCalls))
		for i, c := range *dto.ToolCalls {
			a.ToolCalls[i] = unmarshalToolCall(c)
		}
	}
	return a
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
