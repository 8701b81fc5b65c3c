// Package cmd contains the lawbot command-line interface.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lawbot",
	Short: "Lawbot - a legal knowledge assistant for your terminal",
	Long: `Lawbot answers legal questions from an indexed knowledge base and
hands out common legal document templates on request.

Running lawbot with no arguments starts the interactive chat.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	// A .env in the working directory is optional, matching local
	// development setups. Missing file is not an error.
	_ = godotenv.Load()
	return rootCmd.Execute()
}
