package genstream

// ChatMessage is one turn of the conversation sent upstream.
type ChatMessage struct {
	Role Role
	Text string
}

// Request carries model selection and generation parameters.
// The provider uses its own defaults when fields are zero/nil.
type Request struct {
	Model        string // model ID, provider-specific; empty = provider default
	SystemPrompt string
	Messages     []ChatMessage
	Tools        []Tool
	MaxTokens    int      // 0 = provider default
	Temperature  *float64 // nil = provider default
	Options      ChatOptions
}
