package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/gosync/internal/tui/shared"
)

// Run shows the status screen until the user quits or ctx ends. Quitting
// from the keyboard returns nil; the caller decides what that stops.
func Run(ctx context.Context, requester PassRequester, bridge *shared.EventBridge, opts Options) error {
	model := NewModel(ctx, requester, bridge, opts)
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("status screen: %w", err)
	}

	return nil
}
