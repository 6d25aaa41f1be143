// Command genstream streams a chat completion from an LLM backend and prints
// the normalized events.
//
// Usage:
//
//	OPENAI_API_KEY=sk-... genstream chat "Why is the sky blue?"
//	genstream chat --provider ollama --model qwen3 --think --show-reasoning "Hi"
//	genstream chat --format json --save out.json "Hello"
//	curl -sN ... | genstream frame --mode array
//
// Settings are read from flags, GENSTREAM_* environment variables and an
// optional YAML file given with --config, in that order of precedence.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(os.Getenv)
	cmd.SetIn(os.Stdin)
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		st := newStyles(os.Stderr, defaultTheme())
		fmt.Fprintln(os.Stderr, st.Error.Render("genstream: "+err.Error()))
		stop()
		os.Exit(1)
	}
}
