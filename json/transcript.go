package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/genstream"
)

// envelope is the v1 wire format for a persisted transcript.
type envelope struct {
	Version      int          `json:"version"`
	ID           string       `json:"id"`
	Provider     string       `json:"provider"`
	Model        string       `json:"model,omitempty"`
	SystemPrompt string       `json:"system_prompt"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Messages     []messageDTO `json:"messages"`
	Tools        []toolDTO    `json:"tools,omitempty"`
	Events       []eventDTO   `json:"events"`
}

type messageDTO struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type toolDTO struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// MarshalTranscript serializes a Transcript to JSON in v1 envelope format.
func MarshalTranscript(t genstream.Transcript) ([]byte, error) {
	env := envelope{
		Version:      1,
		ID:           t.ID,
		Provider:     t.Provider,
		Model:        t.Model,
		SystemPrompt: t.SystemPrompt,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		Messages:     make([]messageDTO, len(t.Messages)),
		Events:       make([]eventDTO, len(t.Events)),
	}
	for i, m := range t.Messages {
		env.Messages[i] = messageDTO{Role: string(m.Role), Text: m.Text}
	}
	for _, tool := range t.Tools {
		env.Tools = append(env.Tools, toolDTO{Name: tool.Name, Description: tool.Description, Parameters: tool.Parameters})
	}
	for i, e := range t.Events {
		dto, err := marshalEvent(e)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		env.Events[i] = dto
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalTranscript deserializes a Transcript from JSON in v1 envelope
// format.
func UnmarshalTranscript(data []byte) (genstream.Transcript, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return genstream.Transcript{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return genstream.Transcript{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	msgs := make([]genstream.ChatMessage, len(env.Messages))
	for i, dto := range env.Messages {
		m := genstream.ChatMessage{Role: genstream.Role(dto.Role), Text: dto.Text}
		if err := genstream.ValidateMessage(m); err != nil {
			return genstream.Transcript{}, fmt.Errorf("message %d: %w", i, err)
		}
		msgs[i] = m
	}
	var tools []genstream.Tool
	for _, dto := range env.Tools {
		tools = append(tools, genstream.Tool{Name: dto.Name, Description: dto.Description, Parameters: dto.Parameters})
	}
	events := make([]genstream.Event, len(env.Events))
	for i, dto := range env.Events {
		e, err := unmarshalEvent(dto)
		if err != nil {
			return genstream.Transcript{}, fmt.Errorf("event %d: %w", i, err)
		}
		events[i] = e
	}
	return genstream.Transcript{
		ID:           env.ID,
		Provider:     env.Provider,
		Model:        env.Model,
		SystemPrompt: env.SystemPrompt,
		CreatedAt:    env.CreatedAt,
		UpdatedAt:    env.UpdatedAt,
		Messages:     msgs,
		Tools:        tools,
		Events:       events,
	}, nil
}

// Save writes a Transcript to a JSON file, creating parent directories as
// needed.
func Save(path string, t genstream.Transcript) error {
	data, err := MarshalTranscript(t)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a Transcript from a JSON file.
func Load(path string) (genstream.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return genstream.Transcript{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalTranscript(data)
}
