package json

import "github.com/fwojciec/genstream"

type usageDTO struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	CachedTokens     int `json:"cached_tokens,omitempty"`
	ReasoningTokens  int `json:"reasoning_tokens,omitempty"`
}

func marshalUsage(u *genstream.Usage) *usageDTO {
	if u == nil {
		return nil
	}
	return &usageDTO{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		CachedTokens:     u.CachedTokens,
		ReasoningTokens:  u.ReasoningTokens,
	}
}

func unmarshalUsage(dto *usageDTO) *genstream.Usage {
	if dto == nil {
		return nil
	}
	return &genstream.Usage{
		PromptTokens:     dto.PromptTokens,
		CompletionTokens: dto.CompletionTokens,
		TotalTokens:      dto.TotalTokens,
		CachedTokens:     dto.CachedTokens,
		ReasoningTokens:  dto.ReasoningTokens,
	}
}
