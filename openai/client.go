package openai

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

// Client implements [genstream.Provider] for the OpenAI chat completions
// API and compatible servers.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	defaults   genstream.ChatOptions
	logger     zerolog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL, for example to target a compatible
// server or an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the default model ID. Default is gpt-4o-mini.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithDefaults sets client-level capture options. Request options win.
func WithDefaults(o genstream.ChatOptions) Option {
	return func(c *Client) { c.defaults = o }
}

// WithLogger sets the logger handed to every stream.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates an OpenAI [Client] with the given API key and options.
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

type apiRequest struct {
	Model         string            `json:"model"`
	Messages      []apiMessage      `json:"messages"`
	Tools         []apiTool         `json:"tools,omitempty"`
	Stream        bool              `json:"stream"`
	StreamOptions *apiStreamOptions `json:"stream_options,omitempty"`
	MaxTokens     int               `json:"max_completion_tokens,omitempty"`
	Temperature   *float64          `json:"temperature,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// Stream sends a streaming chat completion request and returns the
// normalized event stream.
func (c *Client) Stream(ctx context.Context, req genstream.Request) (genstream.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	header := http.Header{"Authorization": []string{"Bearer " + c.apiKey}}
	resp, err := httpx.PostJSON(ctx, c.httpClient, providerName, c.baseURL+completionsPath, header, c.buildRequest(req))
	if err != nil {
		return nil, err
	}
	src := sse.New(resp, sse.WithProvider(providerName))
	return streamer.New(src, NewDecoder(), req.Options.Resolve(c.defaults),
		streamer.WithLogger(c.logger),
		streamer.WithProvider(providerName),
	), nil
}

func (c *Client) buildRequest(req genstream.Request) apiRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}
	msgs := make([]apiMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, apiMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, apiMessage{Role: string(m.Role), Content: m.Text})
	}
	return apiRequest{
		Model:         model,
		Messages:      msgs,
		Tools:         convertTools(req.Tools),
		Stream:        true,
		StreamOptions: &apiStreamOptions{IncludeUsage: true},
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
	}
}

type apiTool struct {
	Type     string          `json:"type"`
	Function apiFunctionDecl `json:"function"`
}

type apiFunctionDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

func convertTools(tools []genstream.Tool) []apiTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]apiTool, len(tools))
	for i, t := range tools {
		params := t.Parameters
		if len(params) == 0 || string(params) == "null" {
			params = json.RawMessage(emptySchema)
		}
		out[i] = apiTool{
			Type:     "function",
			Function: apiFunctionDecl{Name: t.Name, Description: t.Description, Parameters: params},
		}
	}
	return out
}
