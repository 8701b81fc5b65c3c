package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/lawbot0/lawbot/internal/app"
	"github.com/lawbot0/lawbot/internal/config"
	"github.com/lawbot0/lawbot/internal/knowledge"
	"github.com/lawbot0/lawbot/internal/session"
	"github.com/lawbot0/lawbot/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	model, err := tui.New(ctx, a.Pipeline, session.New())
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	program := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err = program.Run(); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}
	return nil
}
