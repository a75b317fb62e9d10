// Package table wraps the bubbles table for controller pages.
package table

import (
	"fmt"
	"image/color"

	bubtable "charm.land/bubbles/v2/table"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/pacta-app/tableview/internal/formatter"
	"github.com/pacta-app/tableview/internal/tableview"
)

const cellGap = 2

// Column and Row are re-exported so callers need not import bubbles.
type Column = bubtable.Column
type Row = bubtable.Row

// Model shows the rows of one tableview.Page. It never filters or sorts on
// its own; the controller decides what is visible.
type Model struct {
	table   bubtable.Model
	styles  bubtable.Styles
	records []*tableview.Record
	columns []tableview.Column
	page    tableview.Page

	// selected is the highlighted header index, or -1.
	selected int

	width   int
	height  int
	focused bool
	noColor bool

	headerFG   color.Color
	headerBG   color.Color
	selectedFG color.Color
	selectedBG color.Color
}

// New creates an empty model.
func New() *Model {
	t := bubtable.New(
		bubtable.WithFocused(true),
		bubtable.WithHeight(5),
		bubtable.WithWidth(80),
	)
	s := bubtable.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Bold(true).
		PaddingLeft(0).
		PaddingRight(0)
	s.Selected = s.Selected.PaddingLeft(0).PaddingRight(0)
	s.Cell = lipgloss.NewStyle().PaddingLeft(0).PaddingRight(0)
	t.SetStyles(s)

	return &Model{
		table:    t,
		styles:   s,
		selected: -1,
		width:    80,
		height:   10,
		focused:  true,
	}
}

// SetPage replaces the visible rows. The cursor stays on the same index when
// possible.
func (m *Model) SetPage(p tableview.Page, cols []tableview.Column) {
	m.page = p
	m.columns = append(m.columns[:0], cols...)
	m.records = p.Rows
	m.rebuild()
}

// SetSelectedColumn highlights header i; -1 clears it.
func (m *Model) SetSelectedColumn(i int) {
	if i < -1 || i >= len(m.columns) {
		i = -1
	}
	m.selected = i
	m.rebuild()
}

// SelectedColumn returns the highlighted header index, or -1.
func (m *Model) SelectedColumn() int { return m.selected }

func (m *Model) rebuild() {
	headers := make([]string, len(m.columns))
	for i, col := range m.columns {
		headers[i] = formatter.HeaderText(col, m.page.SortColumn, m.page.SortDirection)
		if i == m.selected {
			headers[i] = "[" + headers[i] + "]"
		}
	}
	cells := formatter.Rows(m.records, m.columns)
	for _, row := range cells {
		for i := range row {
			row[i] = formatter.CellText(row[i])
		}
	}
	widths := formatter.FitWidths(headers, cells, m.width, nil)

	cols := make([]Column, len(headers))
	for i, h := range headers {
		w := widths[i]
		if i < len(headers)-1 {
			w += cellGap
		}
		cols[i] = Column{Title: h, Width: w}
	}
	rows := make([]Row, len(cells))
	for i, c := range cells {
		rows[i] = Row(c)
	}

	// Rows must shrink before columns so the old rows never outnumber the new
	// columns.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
	m.applyColorScheme()
}

// Cursor returns the cursor row index.
func (m *Model) Cursor() int {
	return m.table.Cursor()
}

// SetCursor moves the cursor.
func (m *Model) SetCursor(pos int) {
	m.table.SetCursor(pos)
}

// SelectedRecord returns the record under the cursor, or nil.
func (m *Model) SelectedRecord() *tableview.Record {
	c := m.Cursor()
	if c < 0 || c >= len(m.records) {
		return nil
	}
	return m.records[c]
}

// Len is the number of visible rows.
func (m *Model) Len() int { return len(m.records) }

// SetSize sets the table dimensions and refits the columns.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetWidth(width)
	m.table.SetHeight(height)
	m.rebuild()
}

// Focus gives the table keyboard focus.
func (m *Model) Focus() {
	m.focused = true
	m.table.Focus()
}

// Blur removes keyboard focus.
func (m *Model) Blur() {
	m.focused = false
	m.table.Blur()
}

// Focused reports whether the table has focus.
func (m *Model) Focused() bool {
	return m.focused
}

// SetNoColor enables or disables color output.
func (m *Model) SetNoColor(noColor bool) {
	m.noColor = noColor
	m.applyColorScheme()
}

// SetColors sets theme colors; nil keeps the default.
func (m *Model) SetColors(headerFG, headerBG, selectedFG, selectedBG color.Color) {
	m.headerFG = headerFG
	m.headerBG = headerBG
	m.selectedFG = selectedFG
	m.selectedBG = selectedBG
	m.applyColorScheme()
}

func (m *Model) applyColorScheme() {
	s := m.styles
	if m.noColor {
		s.Header = s.Header.UnsetForeground().UnsetBackground()
		s.Selected = s.Selected.UnsetForeground().UnsetBackground().Reverse(true)
		s.Cell = s.Cell.UnsetForeground().UnsetBackground()
	} else {
		if m.headerFG != nil {
			s.Header = s.Header.Foreground(m.headerFG)
		}
		if m.headerBG != nil {
			s.Header = s.Header.Background(m.headerBG)
		}
		if m.selectedFG != nil {
			s.Selected = s.Selected.Foreground(m.selectedFG)
		}
		if m.selectedBG != nil {
			s.Selected = s.Selected.Background(m.selectedBG)
		}
	}
	m.table.SetStyles(s)
	m.styles = s
}

// Update forwards cursor keys to the bubbles table.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the table.
func (m *Model) View() string {
	return m.table.View()
}

// Height returns the rendered height including the header.
func (m *Model) Height() int {
	return lipgloss.Height(m.View())
}

// String returns a debug description.
func (m *Model) String() string {
	return fmt.Sprintf("Table[rows=%d, columns=%d, cursor=%d, page=%d/%d]",
		len(m.records), len(m.columns), m.Cursor(), m.page.Number, m.page.TotalPages)
}
