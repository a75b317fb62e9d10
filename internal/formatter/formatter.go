// Package formatter renders table pages as terminal text, JSON and YAML.
package formatter

import (
	"image/color"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

var (
	defaultHeaderFG  = lipgloss.Color("12")
	defaultHeaderBG  = lipgloss.Color("236")
	defaultRowNumber = lipgloss.Color("14")
	defaultCell      = lipgloss.Color("248")
	defaultSeparator = lipgloss.Color("240")
	defaultActive    = lipgloss.Color("11")

	headerStyle    lipgloss.Style
	rowNumberStyle lipgloss.Style
	cellStyle      lipgloss.Style
	separatorStyle lipgloss.Style
	activeStyle    lipgloss.Style
)

// TableColors controls the rendered colors. Nil fields use the defaults.
type TableColors struct {
	HeaderFG       color.Color
	HeaderBG       color.Color
	RowNumberColor color.Color
	CellColor      color.Color
	SeparatorColor color.Color
	ActiveColor    color.Color
}

func pick(c, def color.Color) color.Color {
	if c == nil {
		return def
	}
	return c
}

func applyTableTheme(tc TableColors) {
	headerStyle = lipgloss.NewStyle().Bold(true).
		Foreground(pick(tc.HeaderFG, defaultHeaderFG)).
		Background(pick(tc.HeaderBG, defaultHeaderBG))
	rowNumberStyle = lipgloss.NewStyle().Foreground(pick(tc.RowNumberColor, defaultRowNumber))
	cellStyle = lipgloss.NewStyle().Foreground(pick(tc.CellColor, defaultCell))
	separatorStyle = lipgloss.NewStyle().Foreground(pick(tc.SeparatorColor, defaultSeparator))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(pick(tc.ActiveColor, defaultActive))
}

// SetTableTheme overrides the package styles.
func SetTableTheme(tc TableColors) {
	applyTableTheme(tc)
}

//nolint:gochecknoinits // initialize default table theme for package consumers
func init() {
	applyTableTheme(TableColors{})
}

// CellText flattens line breaks so a cell stays on one line.
func CellText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "\\n")
}

// truncate cuts s to maxLen display cells, ending in "..." when there is room.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || runewidth.StringWidth(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return runewidth.Truncate(s, maxLen, "")
	}
	return runewidth.Truncate(s, maxLen, "...")
}

func padRight(s string, width int) string {
	s = truncate(s, width)
	return runewidth.FillRight(s, width)
}

func padLeft(s string, width int) string {
	s = truncate(s, width)
	return runewidth.FillLeft(s, width)
}

// TerminalWidth returns the stdout terminal width, or 120 when it is not a
// terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 120
	}
	return width
}
