package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fwojciec/genstream"
	gsjson "github.com/fwojciec/genstream/json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newChatCmd(v *viper.Viper, getenv func(string) string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a prompt and stream the reply",
		Long: `Send a prompt and stream the reply.

The prompt is taken from the arguments, or from stdin when none are given.
With --resume the prompt continues a saved transcript.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, v, getenv, args)
		},
	}
	f := cmd.Flags()
	f.String("provider", "", "Provider: openai, anthropic, gemini, cohere, ollama (auto-detected from API key env vars if omitted)")
	f.String("model", "", "Model ID (provider default if omitted)")
	f.String("api-key", "", "API key (overrides the provider's env var)")
	f.String("base-url", "", "API base URL")
	f.String("system-prompt", "", "System prompt")
	f.Int("max-tokens", 0, "Maximum reply tokens (0 = provider default)")
	f.Float64("temperature", 0, "Sampling temperature in [0, 2]")
	f.String("format", formatText, "Output format: text or json")
	f.Bool("sse", false, "Gemini: stream server-sent events instead of a JSON array")
	f.Bool("think", false, "Ollama: ask thinking models for separate reasoning")
	f.Int("thinking-budget", 0, "Anthropic: extended thinking token budget (0 = off)")
	f.Bool("show-reasoning", false, "Print reasoning in text output")
	f.Bool("markdown", false, "Render the reply as markdown in text output")
	f.Int("width", defaultWidth, "Wrap width for markdown output")
	f.StringSlice("aggregates", nil, "Aggregates to capture for this request: usage, content, reasoning, tool-calls")
	f.String("tools", "", "Path to a JSON file with tool definitions")
	f.String("save", "", "Write the transcript to this path")
	f.String("resume", "", "Continue the transcript saved at this path")
	return cmd
}

func runChat(cmd *cobra.Command, v *viper.Viper, getenv func(string) string, args []string) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel, cmd.ErrOrStderr())

	prompt, err := readPrompt(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	provider, name, err := resolveProvider(cfg, getenv, logger)
	if err != nil {
		return err
	}

	tr, err := loadOrCreateTranscript(v.GetString("resume"), name, cfg)
	if err != nil {
		return err
	}
	if path := v.GetString("tools"); path != "" {
		tools, err := loadTools(path)
		if err != nil {
			return err
		}
		tr.Tools = tools
	}
	tr.Messages = append(tr.Messages, genstream.ChatMessage{Role: genstream.RoleUser, Text: prompt})

	opts := []genstream.RunOption{genstream.WithChatOptions(cfg.Capture)}
	if cfg.MaxTokens > 0 {
		opts = append(opts, genstream.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Temperature != nil {
		opts = append(opts, genstream.WithTemperature(*cfg.Temperature))
	}

	p := newPrinter(cmd.OutOrStdout(), cfg.Format, printOptions{
		ShowReasoning: cfg.ShowReasoning,
		Markdown:      cfg.Markdown,
		Width:         cfg.Width,
	})
	opts = append(opts, genstream.WithEventHandler(p.Print))

	logger.Debug().Str("transcript", tr.ID).Int("messages", len(tr.Messages)).Msg("chat started")
	runErr := genstream.Run(cmd.Context(), provider, &tr, opts...)
	if runErr == nil {
		runErr = p.Err()
	}

	if path := v.GetString("save"); path != "" {
		if err := gsjson.Save(path, tr); err != nil {
			return errors.Join(runErr, fmt.Errorf("save transcript: %w", err))
		}
		logger.Info().Str("path", path).Msg("transcript saved")
	}
	return runErr
}

// readPrompt joins the arguments or, when there are none, reads stdin.
func readPrompt(in io.Reader, args []string) (string, error) {
	prompt := strings.Join(args, " ")
	if prompt == "" && in != nil {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		prompt = string(data)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("empty prompt: pass it as an argument or on stdin")
	}
	return prompt, nil
}

func loadOrCreateTranscript(resumePath, provider string, cfg config) (genstream.Transcript, error) {
	if resumePath != "" {
		tr, err := gsjson.Load(resumePath)
		if err != nil {
			return genstream.Transcript{}, fmt.Errorf("load transcript: %w", err)
		}
		if tr.Provider != provider {
			return genstream.Transcript{}, fmt.Errorf("transcript was recorded with %s, not %s", tr.Provider, provider)
		}
		if cfg.Model != "" {
			tr.Model = cfg.Model
		}
		if cfg.SystemPrompt != "" {
			tr.SystemPrompt = cfg.SystemPrompt
		}
		return tr, nil
	}
	return genstream.Transcript{
		ID:           uuid.NewString(),
		Provider:     provider,
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		CreatedAt:    time.Now(),
	}, nil
}

// toolFile is the on-disk tool definition format.
type toolFile struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

func loadTools(path string) ([]genstream.Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tools: %w", err)
	}
	var defs []toolFile
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse tools %s: %w", path, err)
	}
	tools := make([]genstream.Tool, len(defs))
	for i, d := range defs {
		tools[i] = genstream.Tool{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
		if err := genstream.ValidateTool(tools[i]); err != nil {
			return nil, fmt.Errorf("tools %s: %w", path, err)
		}
	}
	return tools, nil
}
