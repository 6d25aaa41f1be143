// Package gemini implements [genstream.Provider] and [genstream.Decoder] for
// the Google Gemini API.
//
// streamGenerateContent answers with one pretty-printed JSON array whose
// elements arrive split at arbitrary offsets, so the client frames the body
// with [frame.BalancedArray] by default. With [WithSSE] it asks for
// alt=sse and reads the body through the [sse] source instead. Wire types
// come from google.golang.org/genai.
package gemini

const (
	providerName     = "gemini"
	defaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 65536
)
