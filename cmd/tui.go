package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"github.com/devonwallerson/amlibrary-plays/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for library stats.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	r.output = io.Discard

	engine, lib, provider, err := r.newEngine()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.Options{
		Sessions:    provider,
		Loader:      engine,
		Selector:    r.newSelector(lib, true),
		Logger:      fileLogger,
		SearchLimit: r.config.Library.SearchLimit,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
