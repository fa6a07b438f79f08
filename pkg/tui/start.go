package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Start runs the connection view until the user quits. Detection starts
// once the program is running so the detecting state is visible.
func Start(ctx context.Context, s Session, expectedWallet, version string) error {
	Version = version
	p := tea.NewProgram(
		initialModel(ctx, s, expectedWallet),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	return nil
}
