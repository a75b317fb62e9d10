package browser

import (
	"context"

	tea "charm.land/bubbletea/v2"
)

// Run drives m until the user quits or ctx is done. Every value received on
// changes triggers a reload; changes may be nil.
func Run(ctx context.Context, m *Model, changes <-chan struct{}, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append(opts, tea.WithContext(ctx))
	prog := tea.NewProgram(m, opts...)

	if changes != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-changes:
					if !ok {
						return
					}
					prog.Send(ReloadMsg{})
				}
			}
		}()
	}

	_, err := prog.Run()
	return err
}
