package browser

import "github.com/pacta-app/tableview/internal/tableview"

// ReloadMsg asks the browser to reload its source, for example after the
// file changed on disk.
type ReloadMsg struct{}

// searchMsg fires when the search debounce expires. Only the latest seq is
// applied.
type searchMsg struct {
	seq  int
	term string
}

// renderedMsg hides the loading indicator for render seq.
type renderedMsg struct {
	seq int
}

// reloadedMsg carries freshly loaded records back to the update loop.
type reloadedMsg struct {
	records []*tableview.Record
	err     error
}
