package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/desertthunder/watchx/internal/shared"
	"github.com/desertthunder/watchx/internal/ui"
)

// TUI launches the interactive watchlist browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("%w: the TUI needs an interactive terminal; try `watchx watchlist list`", shared.ErrInvalidArgument)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, closer := shared.NewFileLogger(cmd.String("log-file"))
	defer closer.Close()
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if user := r.restoreSession(); user != nil {
		r.logger.Info("tui started", "user", user.ID, "items", r.store.Len())
	}

	model := ui.NewModel(ctx, r.store, r.updates)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
