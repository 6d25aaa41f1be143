package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fwojciec/genstream"
	"github.com/fwojciec/genstream/frame"
	"github.com/fwojciec/genstream/internal/httpx"
	"github.com/fwojciec/genstream/streamer"
	"github.com/rs/zerolog"
)

// Interface compliance check.
var _ genstream.Provider = (*Client)(nil)

// Client implements [genstream.Provider] for an Ollama server.
type Client struct {
	baseURL    string
	model      string
	think      bool
	httpClient *http.Client
	defaults   genstream.ChatOptions
	logger     zerolog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the server URL. Default is http://localhost:11434.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the default model. Default is llama3.2.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithThinking asks thinking models to stream their reasoning separately.
func WithThinking() Option {
	return func(c *Client) { c.think = true }
}

// WithDefaults sets client-level capture options. Request options win.
func WithDefaults(o genstream.ChatOptions) Option {
	return func(c *Client) { c.defaults = o }
}

// WithLogger sets the logger handed to every stream.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates an Ollama [Client].
func New(opts ...Option) *Client {
	c := &Client{
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
	Model    string       `json:"model"`
	Messages []apiMessage `json:"messages"`
	Tools    []apiTool    `json:"tools,omitempty"`
	Stream   bool         `json:"stream"`
	Think    bool         `json:"think,omitempty"`
	Options  *apiOptions  `json:"options,omitempty"`
}

type apiOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Stream sends a streaming chat request and returns the normalized event
// stream.
func (c *Client) Stream(ctx context.Context, req genstream.Request) (genstream.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	resp, err := httpx.PostJSON(ctx, c.httpClient, providerName, c.baseURL+chatPath, nil, c.buildRequest(req))
	if err != nil {
		return nil, err
	}
	src := frame.New(resp.Body, frame.Delimiter("\n"),
		frame.WithLogger(c.logger),
		frame.WithProvider(providerName),
	)
	return streamer.New(src, Decoder{}, req.Options.Resolve(c.defaults),
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
	out := apiRequest{
		Model:    model,
		Messages: msgs,
		Tools:    convertTools(req.Tools),
		Stream:   true,
		Think:    c.think,
	}
	if req.MaxTokens > 0 || req.Temperature != nil {
		out.Options = &apiOptions{NumPredict: req.MaxTokens, Temperature: req.Temperature}
	}
	return out
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
