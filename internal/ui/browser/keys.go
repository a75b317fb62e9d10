package browser

// Action is what a key does in normal mode.
type Action string

const (
	ActionNone          Action = ""
	ActionPrevColumn    Action = "prev_column"
	ActionNextColumn    Action = "next_column"
	ActionSort          Action = "sort"
	ActionSearch        Action = "search"
	ActionFilter        Action = "filter"
	ActionClearFilters  Action = "clear_filters"
	ActionNextPage      Action = "next_page"
	ActionPrevPage      Action = "prev_page"
	ActionFirstPage     Action = "first_page"
	ActionLastPage      Action = "last_page"
	ActionGrowPage      Action = "grow_page"
	ActionShrinkPage    Action = "shrink_page"
	ActionExport        Action = "export"
	ActionRefresh       Action = "refresh"
	ActionToggleFilters Action = "toggle_filters"
	ActionHelp          Action = "help"
	ActionQuit          Action = "quit"
)

// DefaultKeyBindings maps key strings (as reported by tea.KeyPressMsg) to
// actions. Keys not listed go to the table cursor.
var DefaultKeyBindings = map[string]Action{
	"[":      ActionPrevColumn,
	"]":      ActionNextColumn,
	"s":      ActionSort,
	"/":      ActionSearch,
	"f":      ActionFilter,
	"c":      ActionClearFilters,
	"n":      ActionNextPage,
	"pgdown": ActionNextPage,
	"p":      ActionPrevPage,
	"pgup":   ActionPrevPage,
	"home":   ActionFirstPage,
	"end":    ActionLastPage,
	"+":      ActionGrowPage,
	"=":      ActionGrowPage,
	"-":      ActionShrinkPage,
	"e":      ActionExport,
	"r":      ActionRefresh,
	"t":      ActionToggleFilters,
	"?":      ActionHelp,
	"q":      ActionQuit,
	"ctrl+c": ActionQuit,
}

// helpLine is the footer shown under the table.
const helpLine = "[ ] column  s sort  / search  f filter  c clear  n/p page  +/- size  e export  r refresh  t filters  q quit"
