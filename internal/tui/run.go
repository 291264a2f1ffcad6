package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/BrainStation-23/serman/internal/scheduler"
	"github.com/BrainStation-23/serman/internal/service"
)

// Run starts the interactive table and blocks until the operator quits or
// ctx is cancelled.
func Run(ctx context.Context, p service.Provider, s *scheduler.Scheduler) error {
	prog := tea.NewProgram(New(ctx, p, s), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("interactive session failed: %w", err)
	}
	return nil
}
