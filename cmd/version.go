package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runVersion(cmd)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Lawbot %s\n", AppVersion)
	fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		fmt.Fprintln(out, "GEMINI_API_KEY: configured")
	} else {
		fmt.Fprintln(out, "GEMINI_API_KEY: not set")
		fmt.Fprintln(out, "Hint: export GEMINI_API_KEY=your-api-key")
	}
	return nil
}
