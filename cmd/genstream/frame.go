package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fwojciec/genstream"
	"github.com/fwojciec/genstream/frame"
	"github.com/fwojciec/genstream/sse"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	modeLines = "lines"
	modeArray = "array"
	modeSSE   = "sse"
)

func newFrameCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame [file]",
		Short: "Split a raw response stream into messages",
		Long: `Split a raw response stream into messages and print one JSON object per
message. Reads the file argument, or stdin when none is given.

Modes:
  lines  messages separated by --separator (default newline)
  array  elements of a streamed top-level JSON array
  sse    server-sent events`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFrame(cmd, v, args)
		},
	}
	f := cmd.Flags()
	f.String("mode", modeLines, "Framing mode: lines, array or sse")
	f.String("separator", "\n", "Message separator for lines mode")
	f.Int("read-size", 0, "Maximum bytes per read (0 = default)")
	return cmd
}

type frameOutput struct {
	Event string `json:"event,omitempty"`
	Data  string `json:"data"`
}

func runFrame(cmd *cobra.Command, v *viper.Viper, args []string) error {
	logger := newLogger(v.GetString("log-level"), cmd.ErrOrStderr())

	var body io.ReadCloser = io.NopCloser(cmd.InOrStdin())
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		body = f
	}

	opts := []frame.Option{frame.WithLogger(logger)}
	if n := v.GetInt("read-size"); n > 0 {
		opts = append(opts, frame.WithReadSize(n))
	}

	var src genstream.Source
	switch mode := v.GetString("mode"); mode {
	case modeLines:
		sep := v.GetString("separator")
		if sep == "" {
			body.Close()
			return errors.New("separator must not be empty")
		}
		src = frame.New(body, frame.Delimiter(sep), opts...)
	case modeArray:
		src = frame.New(body, frame.BalancedArray(), opts...)
	case modeSSE:
		src = sse.NewFromReader(body)
	default:
		body.Close()
		return fmt.Errorf("unknown mode %q: must be lines, array or sse", mode)
	}
	defer src.Close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	n := 0
	for {
		msg, err := src.Next()
		if errors.Is(err, io.EOF) {
			logger.Debug().Int("messages", n).Msg("input ended")
			return nil
		}
		if err != nil {
			return err
		}
		if msg.IsOpen() {
			continue
		}
		if err := enc.Encode(frameOutput{Event: msg.Event, Data: msg.Data}); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		n++
	}
}
