// Package ollama implements [genstream.Provider] and [genstream.Decoder] for
// a local Ollama server.
//
// /api/chat streams newline-delimited JSON objects, framed here with
// [frame.Delimiter]. The final object has done set and carries token counts.
package ollama

const (
	providerName   = "ollama"
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.2"
	chatPath       = "/api/chat"
	emptySchema    = `{"type":"object","properties":{}}`
)
