package genstream

import "time"

// Transcript records a conversation together with the events streamed for it.
type Transcript struct {
	ID           string
	Provider     string
	Model        string
	SystemPrompt string
	Messages     []ChatMessage
	Tools        []Tool
	Events       []Event
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LastEnd returns the most recent EventEnd recorded in the transcript.
func (t *Transcript) LastEnd() (EventEnd, bool) {
	for i := len(t.Events) - 1; i >= 0; i-- {
		if end, ok := t.Events[i].(EventEnd); ok {
			return end, true
		}
	}
	return EventEnd{}, false
}
