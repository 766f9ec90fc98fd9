// Package tui is the terminal front-end. Each tab is a workspace slot with
// its own draft and result; responses are applied through the workspace so a
// late reply to an earlier send never replaces a newer one.
//
// File organization:
//   - app.go: entry point
//   - model.go: model and message types
//   - editors.go: moving editor contents in and out of drafts
//   - update.go: event handling
//   - keys.go: keyboard handling
//   - view.go: rendering
//   - styles.go: colors and styles
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abdul-hamid-achik/hitpad/packages/core/workspace"
)

// Run starts the terminal UI and blocks until the user quits. Cancelling ctx
// aborts requests in flight.
func Run(ctx context.Context, ws *workspace.Workspace) error {
	prog := tea.NewProgram(New(ctx, ws), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	return err
}
