package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lawbot0/lawbot/internal/app"
	"github.com/lawbot0/lawbot/internal/config"
)

var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index knowledge base documents into the vector store",
	Long: `Ingest reads .txt and .md files from the data directory, chunks them,
and writes their embeddings to the configured vector backend. A populated
index is left untouched unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-ingest even if the index is already populated")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("application close error", "error", closeErr)
		}
	}()

	dataDir := cfg.DataDir
	if len(args) == 1 {
		dataDir = args[0]
	}

	n, err := a.Ingester.Run(ctx, dataDir, ingestForce)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %s\n", n, dataDir)
	return nil
}
