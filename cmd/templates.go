package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lawbot0/lawbot/internal/config"
	"github.com/lawbot0/lawbot/internal/template"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available legal document templates",
	RunE:  runTemplates,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}

func runTemplates(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	lib := template.New(cfg.TemplateDir, template.DefaultBindings(), nil)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEYWORD\tFILE\tSTATUS")
	for _, b := range lib.List() {
		status := "available"
		if _, err := os.Stat(filepath.Join(cfg.TemplateDir, b.Filename)); err != nil {
			status = "missing"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Keyword, b.Filename, status)
	}
	return w.Flush()
}
