package genstream

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// RunOption configures a single Run invocation.
type RunOption func(*runConfig)

type runConfig struct {
	onEvent     func(Event)
	maxTokens   int
	temperature *float64
	options     ChatOptions
}

// WithEventHandler sets a callback that receives each streaming event during
// the run. If nil or not set, events are only recorded.
func WithEventHandler(h func(Event)) RunOption {
	return func(c *runConfig) {
		c.onEvent = h
	}
}

// WithMaxTokens limits the length of the reply. Zero means provider default.
func WithMaxTokens(n int) RunOption {
	return func(c *runConfig) {
		c.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature for the run.
func WithTemperature(v float64) RunOption {
	return func(c *runConfig) {
		c.temperature = &v
	}
}

// WithChatOptions sets request-level capture options. They take precedence
// over the provider client's defaults.
func WithChatOptions(o ChatOptions) RunOption {
	return func(c *runConfig) {
		c.options = o
	}
}

// Run sends the transcript's conversation to the provider and drains the
// resulting stream. Every event is appended to t.Events and forwarded to the
// event handler. When the stream ends successfully and produced content, the
// reply is appended to t.Messages as an assistant message.
//
// On failure the events received so far stay recorded and no reply is
// appended.
func Run(ctx context.Context, p Provider, t *Transcript, opts ...RunOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	req := Request{
		Model:        t.Model,
		SystemPrompt: t.SystemPrompt,
		Messages:     t.Messages,
		Tools:        t.Tools,
		MaxTokens:    cfg.maxTokens,
		Temperature:  cfg.temperature,
		Options:      cfg.options,
	}

	stream, err := p.Stream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	var reply strings.Builder
	for {
		evt, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.UpdatedAt = time.Now()
			return err
		}
		t.Events = append(t.Events, evt)
		if c, ok := evt.(EventContentChunk); ok {
			reply.WriteString(c.Text)
		}
		if cfg.onEvent != nil {
			cfg.onEvent(evt)
		}
	}

	if reply.Len() > 0 {
		t.Messages = append(t.Messages, ChatMessage{Role: RoleAssistant, Text: reply.String()})
	}
	t.UpdatedAt = time.Now()
	return nil
}
