// Package openai implements [genstream.Provider] and [genstream.Decoder] for
// OpenAI-compatible chat completion endpoints.
//
// Streamed completions arrive as server-sent events carrying
// chat.completion.chunk objects and a final "[DONE]" sentinel. Tool call
// arguments are streamed as string fragments keyed by index, so the decoder
// keeps per-stream state and must not be shared between streams.
package openai

const (
	providerName      = "openai"
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "gpt-4o-mini"
	completionsPath   = "/chat/completions"
	doneSentinel      = "[DONE]"
	emptyToolArgument = "{}"
	emptySchema       = `{"type":"object","properties":{}}`
)
