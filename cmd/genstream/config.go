package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/genstream"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "GENSTREAM"

// config is the resolved CLI configuration.
type config struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	SystemPrompt   string
	MaxTokens      int
	Temperature    *float64
	Format         string
	LogLevel       string
	SSE            bool
	Think          bool
	ThinkingBudget int
	ShowReasoning  bool
	Markdown       bool
	Width          int
	// Defaults are the client-level capture options.
	Defaults genstream.ChatOptions
	// Capture holds request-level capture options from --aggregates.
	Capture genstream.ChatOptions
}

// initConfig binds flags and environment variables and reads the config
// file named by --config, if any.
func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	path := v.GetString("config")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// loadConfig resolves the effective configuration from v.
func loadConfig(v *viper.Viper) (config, error) {
	cfg := config{
		Provider:       strings.ToLower(v.GetString("provider")),
		Model:          v.GetString("model"),
		APIKey:         v.GetString("api-key"),
		BaseURL:        v.GetString("base-url"),
		SystemPrompt:   v.GetString("system-prompt"),
		MaxTokens:      v.GetInt("max-tokens"),
		Format:         v.GetString("format"),
		LogLevel:       v.GetString("log-level"),
		SSE:            v.GetBool("sse"),
		Think:          v.GetBool("think"),
		ThinkingBudget: v.GetInt("thinking-budget"),
		ShowReasoning:  v.GetBool("show-reasoning"),
		Markdown:       v.GetBool("markdown"),
		Width:          v.GetInt("width"),
		Defaults: genstream.ChatOptions{
			CaptureUsage:     optBool(v, "capture.usage"),
			CaptureContent:   optBool(v, "capture.content"),
			CaptureReasoning: optBool(v, "capture.reasoning"),
			CaptureToolCalls: optBool(v, "capture.tool-calls"),
		},
	}
	if cfg.Format == "" {
		cfg.Format = formatText
	}
	if cfg.Format != formatText && cfg.Format != formatJSON {
		return config{}, fmt.Errorf("unknown format %q: must be %q or %q", cfg.Format, formatText, formatJSON)
	}
	if v.IsSet("temperature") {
		t := v.GetFloat64("temperature")
		cfg.Temperature = &t
	}
	// The usage footer needs usage; capture it unless configured otherwise.
	if cfg.Defaults.CaptureUsage == nil {
		on := true
		cfg.Defaults.CaptureUsage = &on
	}
	if v.IsSet("aggregates") {
		c, err := parseCapture(v.GetStringSlice("aggregates"))
		if err != nil {
			return config{}, err
		}
		cfg.Capture = c
	}
	return cfg, nil
}

// parseCapture turns a list such as "usage,content" into request-level
// options. Listed aggregates are captured and the others are not.
func parseCapture(names []string) (genstream.ChatOptions, error) {
	off := func() *bool { b := false; return &b }
	o := genstream.ChatOptions{
		CaptureUsage:     off(),
		CaptureContent:   off(),
		CaptureReasoning: off(),
		CaptureToolCalls: off(),
	}
	for _, name := range strings.Split(strings.Join(names, ","), ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "usage":
			*o.CaptureUsage = true
		case "content":
			*o.CaptureContent = true
		case "reasoning":
			*o.CaptureReasoning = true
		case "tool-calls", "tool_calls", "tools":
			*o.CaptureToolCalls = true
		case "none", "":
		default:
			return genstream.ChatOptions{}, fmt.Errorf("unknown capture %q: must be usage, content, reasoning or tool-calls", name)
		}
	}
	return o, nil
}

func optBool(v *viper.Viper, key string) *bool {
	if !v.IsSet(key) {
		return nil
	}
	b := v.GetBool(key)
	return &b
}
