package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lawbot0/lawbot/internal/app"
	"github.com/lawbot0/lawbot/internal/config"
	"github.com/lawbot0/lawbot/internal/knowledge"
	"github.com/lawbot0/lawbot/internal/session"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	if err := a.CheckReady(ctx); err != nil {
		if errors.Is(err, knowledge.ErrEmptyIndex) {
			return fmt.Errorf("knowledge base is empty, run `lawbot ingest` first: %w", err)
		}
		return fmt.Errorf("knowledge base not ready: %w", err)
	}

	question := strings.Join(args, " ")
	answer, err := a.Pipeline.Ask(ctx, session.New(), question)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
	return nil
}
