package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRootCmd builds the command tree. Provider API keys are looked up
// through getenv so that tests never depend on the real environment.
func newRootCmd(getenv func(string) string) *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:           "genstream",
		Short:         "Stream and normalize LLM chat completions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a YAML config file")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error, disabled")

	root.AddCommand(newChatCmd(v, getenv))
	root.AddCommand(newFrameCmd(v))
	return root
}
