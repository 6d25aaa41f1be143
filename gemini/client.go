package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fwojciec/genstream"
	"github.com/fwojciec/genstream/frame"
	"github.com/fwojciec/genstream/internal/httpx"
	"github.com/fwojciec/genstream/sse"
	"github.com/fwojciec/genstream/streamer"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ genstream.Provider = (*Client)(nil)

// Client implements [genstream.Provider] for the Gemini API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	useSSE     bool
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

// WithModel sets the default model ID. Default is gemini-2.5-flash.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithSSE requests server-sent events (alt=sse) instead of the streamed
// JSON array.
func WithSSE() Option {
	return func(c *Client) { c.useSSE = true }
}

// WithDefaults sets client-level capture options. Request options win.
func WithDefaults(o genstream.ChatOptions) Option {
	return func(c *Client) { c.defaults = o }
}

// WithLogger sets the logger handed to every stream.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Gemini [Client] with the given API key and options.
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
	Contents          []*genai.Content  `json:"contents"`
	SystemInstruction *genai.Content    `json:"systemInstruction,omitempty"`
	Tools             []*genai.Tool     `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int32                 `json:"maxOutputTokens,omitempty"`
	Temperature     *float32              `json:"temperature,omitempty"`
	ThinkingConfig  *genai.ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// Stream sends a streamGenerateContent request and returns the normalized
// event stream.
func (c *Client) Stream(ctx context.Context, req genstream.Request) (genstream.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	endpoint := c.baseURL + "/models/" + url.PathEscape(model) + ":streamGenerateContent"
	if c.useSSE {
		endpoint += "?alt=sse"
	}
	header := http.Header{"X-Goog-Api-Key": []string{c.apiKey}}
	resp, err := httpx.PostJSON(ctx, c.httpClient, providerName, endpoint, header, buildRequest(req))
	if err != nil {
		return nil, err
	}

	var src genstream.Source
	if c.useSSE {
		src = sse.New(resp, sse.WithProvider(providerName))
	} else {
		src = frame.New(resp.Body, frame.BalancedArray(),
			frame.WithLogger(c.logger),
			frame.WithProvider(providerName),
		)
	}
	return streamer.New(src, Decoder{}, req.Options.Resolve(c.defaults),
		streamer.WithLogger(c.logger),
		streamer.WithProvider(providerName),
	), nil
}

func buildRequest(req genstream.Request) apiRequest {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	cfg := &generationConfig{
		MaxOutputTokens: int32(maxTokens),
		ThinkingConfig:  &genai.ThinkingConfig{IncludeThoughts: true},
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		cfg.Temperature = &temp
	}

	out := apiRequest{
		Contents:         ConvertMessages(req.Messages),
		Tools:            ConvertTools(req.Tools),
		GenerationConfig: cfg,
	}
	if req.SystemPrompt != "" {
		out.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}
	return out
}

// ConvertMessages converts chat messages to genai contents. Gemini calls the
// assistant role "model".
func ConvertMessages(msgs []genstream.ChatMessage) []*genai.Content {
	result := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Role == genstream.RoleAssistant {
			role = "model"
		}
		result = append(result, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Text}},
		})
	}
	return result
}

// ConvertTools converts tools to a single genai tool carrying one function
// declaration per tool. Returns nil when there are no tools.
func ConvertTools(tools []genstream.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		// Parameters was checked by Request.Validate.
		var schema map[string]any
		_ = json.Unmarshal(t.Parameters, &schema)
		decls[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		if schema != nil {
			decls[i].ParametersJsonSchema = schema
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
