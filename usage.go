package genstream

// Usage tracks token consumption for one exchange.
//
// Snapshots are cumulative to date: a later snapshot from the same stream
// supersedes an earlier one rather than adding to it. Providers normalize
// their fields so that CompletionTokens includes ReasoningTokens and
// PromptTokens includes CachedTokens.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CachedTokens     int
	ReasoningTokens  int
}
