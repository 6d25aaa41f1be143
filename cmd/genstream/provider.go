package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/genstream"
	"github.com/fwojciec/genstream/anthropic"
	"github.com/fwojciec/genstream/cohere"
	"github.com/fwojciec/genstream/gemini"
	"github.com/fwojciec/genstream/ollama"
	"github.com/fwojciec/genstream/openai"
	"github.com/rs/zerolog"
)

// apiKeyEnv maps each hosted provider to the environment variable holding
// its API key. Ollama needs no key.
var apiKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
	"cohere":    "COHERE_API_KEY",
}

// detectOrder is the order in which providers are checked when none is
// selected.
var detectOrder = []string{"openai", "anthropic", "gemini", "cohere"}

// resolveProvider selects and constructs the provider. Environment values
// are read only through getenv.
func resolveProvider(cfg config, getenv func(string) string, logger zerolog.Logger) (genstream.Provider, string, error) {
	name := cfg.Provider
	if name == "" {
		var found []string
		for _, p := range detectOrder {
			if getenv(apiKeyEnv[p]) != "" {
				found = append(found, p)
			}
		}
		switch len(found) {
		case 0:
			return nil, "", fmt.Errorf("no API key found: set OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY or COHERE_API_KEY (or use --provider)")
		case 1:
			name = found[0]
		default:
			return nil, "", fmt.Errorf("multiple API keys found (%s): use --provider to select", strings.Join(found, ", "))
		}
	}

	key := cfg.APIKey
	if env, ok := apiKeyEnv[name]; ok && key == "" {
		key = getenv(env)
		if key == "" {
			return nil, "", fmt.Errorf("%s not set (use --api-key or the environment variable)", env)
		}
	}
	logger = logger.With().Str("provider", name).Logger()

	switch name {
	case "openai":
		opts := []openai.Option{openai.WithDefaults(cfg.Defaults), openai.WithLogger(logger)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(key, opts...), name, nil
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithDefaults(cfg.Defaults), anthropic.WithLogger(logger)}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		if cfg.ThinkingBudget > 0 {
			opts = append(opts, anthropic.WithThinking(cfg.ThinkingBudget))
		}
		return anthropic.New(key, opts...), name, nil
	case "gemini":
		opts := []gemini.Option{gemini.WithDefaults(cfg.Defaults), gemini.WithLogger(logger)}
		if cfg.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
		}
		if cfg.SSE {
			opts = append(opts, gemini.WithSSE())
		}
		return gemini.New(key, opts...), name, nil
	case "cohere":
		opts := []cohere.Option{cohere.WithDefaults(cfg.Defaults), cohere.WithLogger(logger)}
		if cfg.Model != "" {
			opts = append(opts, cohere.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, cohere.WithBaseURL(cfg.BaseURL))
		}
		return cohere.New(key, opts...), name, nil
	case "ollama":
		opts := []ollama.Option{ollama.WithDefaults(cfg.Defaults), ollama.WithLogger(logger)}
		if cfg.Model != "" {
			opts = append(opts, ollama.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Think {
			opts = append(opts, ollama.WithThinking())
		}
		return ollama.New(opts...), name, nil
	default:
		return nil, "", fmt.Errorf("unknown provider %q: must be openai, anthropic, gemini, cohere or ollama", name)
	}
}
