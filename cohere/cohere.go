// Package cohere implements [genstream.Provider] and [genstream.Decoder] for
// the Cohere chat API.
//
// Cohere streams newline-delimited JSON events, framed here with
// [frame.Delimiter]. The stream opens with a stream-start event and closes
// with a stream-end event carrying token usage.
package cohere

const (
	providerName   = "cohere"
	defaultBaseURL = "https://api.cohere.ai"
	defaultModel   = "command-r-plus"
	chatPath       = "/v1/chat"
)

// Event types of the chat stream.
const (
	eventStreamStart  = "stream-start"
	eventTextGen      = "text-generation"
	eventToolCallsGen = "tool-calls-generation"
	eventStreamEnd    = "stream-end"
	finishReasonError = "ERROR"
)
