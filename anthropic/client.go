package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fwojciec/genstream"
	"github.com/fwojciec/genstream/internal/httpx"
	"github.com/fwojciec/genstream/sse"
	"github.com/fwojciec/genstream/streamer"
	"github.com/rs/zerolog"
)

// Interface compliance check.
var _ genstream.Provider = (*Client)(nil)

// Client implements [genstream.Provider] for the Anthropic Messages API.
type Client struct {
	apiKey         string
	baseURL        string
	model          string
	thinkingBudget int
	httpClient     *http.Client
	defaults       genstream.ChatOptions
	logger         zerolog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the default model ID.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithThinking enables extended thinking with the given token budget. The
// budget counts against max_tokens.
func WithThinking(budget int) Option {
	return func(c *Client) { c.thinkingBudget = budget }
}

// WithDefaults sets client-level capture options. Request options win.
func WithDefaults(o genstream.ChatOptions) Option {
	return func(c *Client) { c.defaults = o }
}

// WithLogger sets the logger handed to every stream.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream sends a streaming Messages request and returns the normalized event
// stream.
func (c *Client) Stream(ctx context.Context, req genstream.Request) (genstream.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	body, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}
	header := http.Header{
		"X-Api-Key":         []string{c.apiKey},
		"Anthropic-Version": []string{apiVersion},
	}
	resp, err := httpx.PostJSON(ctx, c.httpClient, providerName, c.baseURL+messagesPath, header, body)
	if err != nil {
		return nil, err
	}
	src := sse.New(resp, sse.WithProvider(providerName))
	return streamer.New(src, NewDecoder(), req.Options.Resolve(c.defaults),
		streamer.WithLogger(c.logger),
		streamer.WithProvider(providerName),
	), nil
}

func (c *Client) buildRequest(req genstream.Request) (apiRequest, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	out := apiRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Stream:      true,
		System:      convertSystem(req.SystemPrompt),
		Messages:    convertMessages(req.Messages),
		Tools:       convertTools(req.Tools),
		Temperature: req.Temperature,
	}
	if c.thinkingBudget > 0 {
		if c.thinkingBudget >= maxTokens {
			return apiRequest{}, fmt.Errorf("anthropic: thinking budget %d must be below max_tokens %d: %w",
				c.thinkingBudget, maxTokens, genstream.ErrValidation)
		}
		out.Thinking = &apiThinking{Type: "enabled", BudgetTokens: c.thinkingBudget}
	}
	injectCacheMarkers(&out)
	return out, nil
}

// convertSystem converts a system prompt to content blocks. Returns nil
// when the prompt is empty.
func convertSystem(prompt string) []apiContentBlock {
	if prompt == "" {
		return nil
	}
	return []apiContentBlock{{Type: "text", Text: prompt}}
}

// injectCacheMarkers sets cache_control breakpoints on the request:
//  1. Top-level: automatic caching for the conversation message window.
//  2. System prompt last block: stable content breakpoint.
//  3. Last tool: stable tool definitions breakpoint.
func injectCacheMarkers(req *apiRequest) {
	// cc is shared across all breakpoints; it is read-only after assignment.
	cc := &apiCacheControl{Type: "ephemeral"}
	req.CacheControl = cc
	if len(req.System) > 0 {
		req.System[len(req.System)-1].CacheControl = cc
	}
	if len(req.Tools) > 0 {
		req.Tools[len(req.Tools)-1].CacheControl = cc
	}
}

// convertMessages maps chat turns to Messages API turns, merging
// consecutive turns of the same role since the API requires alternation.
func convertMessages(msgs []genstream.ChatMessage) []apiMessage {
	result := make([]apiMessage, 0, len(msgs))
	for _, m := range msgs {
		block := apiContentBlock{Type: "text", Text: m.Text}
		if n := len(result); n > 0 && result[n-1].Role == string(m.Role) {
			result[n-1].Content = append(result[n-1].Content, block)
			continue
		}
		result = append(result, apiMessage{Role: string(m.Role), Content: []apiContentBlock{block}})
	}
	return result
}

func convertTools(tools []genstream.Tool) []apiTool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]apiTool, len(tools))
	for i, t := range tools {
		schema := t.Parameters
		if len(schema) == 0 || string(schema) == "null" {
			schema = json.RawMessage(emptySchema)
		}
		result[i] = apiTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		}
	}
	return result
}
