package cohere

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

// Client implements [genstream.Provider] for the Cohere chat API.
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

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the default model ID. Default is command-r-plus.
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

// New creates a Cohere [Client] with the given API key and options.
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
	Model       string       `json:"model"`
	Message     string       `json:"message"`
	ChatHistory []apiHistory `json:"chat_history,omitempty"`
	Preamble    string       `json:"preamble,omitempty"`
	Tools       []apiTool    `json:"tools,omitempty"`
	Stream      bool         `json:"stream"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
}

type apiHistory struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Stream sends a streaming chat request and returns the normalized event
// stream.
func (c *Client) Stream(ctx context.Context, req genstream.Request) (genstream.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("cohere: %w", err)
	}
	body, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}
	header := http.Header{"Authorization": []string{"Bearer " + c.apiKey}}
	resp, err := httpx.PostJSON(ctx, c.httpClient, providerName, c.baseURL+chatPath, header, body)
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

// buildRequest splits the conversation into history and the final user
// message, which Cohere takes separately.
func (c *Client) buildRequest(req genstream.Request) (apiRequest, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != genstream.RoleUser {
		return apiRequest{}, fmt.Errorf("cohere: last message must be from the user: %w", genstream.ErrValidation)
	}
	history := make([]apiHistory, 0, len(req.Messages)-1)
	for _, m := range req.Messages[:len(req.Messages)-1] {
		role := "USER"
		if m.Role == genstream.RoleAssistant {
			role = "CHATBOT"
		}
		history = append(history, apiHistory{Role: role, Message: m.Text})
	}
	return apiRequest{
		Model:       model,
		Message:     last.Text,
		ChatHistory: history,
		Preamble:    req.SystemPrompt,
		Tools:       convertTools(req.Tools),
		Stream:      true,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}, nil
}

type apiTool struct {
	Name                 string                  `json:"name"`
	Description          string                  `json:"description"`
	ParameterDefinitions map[string]apiParameter `json:"parameter_definitions,omitempty"`
}

type apiParameter struct {
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
}

type jsonSchema struct {
	Properties map[string]struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"properties"`
	Required []string `json:"required"`
}

// schemaTypes maps JSON Schema types to the type names Cohere expects.
var schemaTypes = map[string]string{
	"string":  "str",
	"integer": "int",
	"number":  "float",
	"boolean": "bool",
	"array":   "List",
	"object":  "Dict",
}

// convertTools flattens each tool's JSON Schema properties into Cohere
// parameter definitions. Nested schemas collapse to their top-level type.
// Returns nil when there are no tools.
func convertTools(tools []genstream.Tool) []apiTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]apiTool, len(tools))
	for i, t := range tools {
		out[i] = apiTool{Name: t.Name, Description: t.Description}
		var schema jsonSchema
		if len(t.Parameters) == 0 || json.Unmarshal(t.Parameters, &schema) != nil || len(schema.Properties) == 0 {
			continue
		}
		required := make(map[string]bool, len(schema.Required))
		for _, name := range schema.Required {
			required[name] = true
		}
		defs := make(map[string]apiParameter, len(schema.Properties))
		for name, prop := range schema.Properties {
			typ, ok := schemaTypes[prop.Type]
			if !ok {
				typ = "str"
			}
			defs[name] = apiParameter{Description: prop.Description, Type: typ, Required: required[name]}
		}
		out[i].ParameterDefinitions = defs
	}
	return out
}
