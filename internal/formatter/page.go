package formatter

import (
	"strconv"
	"strings"

	"github.com/pacta-app/tableview/internal/tableview"
)

const (
	sortAscMark  = " ▲"
	sortDescMark = " ▼"
)

// PageOptions configures RenderPage.
type PageOptions struct {
	NoColor bool
	Width   int
	// RowNumbers numbers rows by their position in the whole result.
	RowNumbers bool
	// EmptyText replaces the body when no row matches.
	EmptyText string
}

// DefaultEmptyText is shown when a page has no rows.
const DefaultEmptyText = "No matching rows"

// RenderPage draws one controller page: header with the sort marker, the
// visible rows, the summary line and the pager.
func RenderPage(p tableview.Page, cols []tableview.Column, opts PageOptions) string {
	headers := make([]string, len(cols))
	hints := make([]ColumnHint, len(cols))
	active := make(map[int]bool)
	for i, col := range cols {
		headers[i] = HeaderText(col, p.SortColumn, p.SortDirection)
		if col.Key == p.SortColumn && p.SortColumn != "" {
			active[i] = true
		}
		switch col.Type {
		case tableview.TypeNumber, tableview.TypeCurrency:
			hints[i].Align = "right"
			hints[i].Priority = 1
		case tableview.TypeDate:
			hints[i].Priority = 1
		}
	}

	var b strings.Builder
	b.WriteString(RenderColumnarTable(headers, Rows(p.Rows, cols), ColumnarOptions{
		NoColor:    opts.NoColor,
		TotalWidth: opts.Width,
		RowNumbers: opts.RowNumbers,
		FirstRow:   p.Start,
		Hints:      hints,
		Active:     active,
	}))
	if p.Empty {
		empty := opts.EmptyText
		if empty == "" {
			empty = DefaultEmptyText
		}
		b.WriteString(style(cellStyle, empty, opts.NoColor))
		b.WriteByte('\n')
	}
	if p.Summary != "" {
		b.WriteString(p.Summary)
		b.WriteByte('\n')
	}
	b.WriteString(Pager(p, opts.NoColor))
	b.WriteByte('\n')
	return b.String()
}

// HeaderText is the column header with an arrow on the sorted column.
func HeaderText(col tableview.Column, sortColumn string, dir tableview.Direction) string {
	h := col.Header
	if h == "" {
		h = col.Key
	}
	if sortColumn == "" || col.Key != sortColumn {
		return h
	}
	if dir == tableview.Desc {
		return h + sortDescMark
	}
	return h + sortAscMark
}

// Pager draws "‹ 1 [2] 3 ›"; the arrows are dimmed when disabled.
func Pager(p tableview.Page, noColor bool) string {
	parts := make([]string, 0, len(p.Buttons)+2)
	parts = append(parts, arrow("‹", p.PrevDisabled, noColor))
	for _, btn := range p.Buttons {
		n := strconv.Itoa(btn.Number)
		if btn.Active {
			parts = append(parts, style(activeStyle, "["+n+"]", noColor))
			continue
		}
		parts = append(parts, n)
	}
	parts = append(parts, arrow("›", p.NextDisabled, noColor))
	return strings.Join(parts, " ")
}

func arrow(s string, disabled, noColor bool) string {
	if disabled {
		if noColor {
			return " "
		}
		return style(separatorStyle, s, noColor)
	}
	return s
}

// Rows returns the cell text of records in column order.
func Rows(records []*tableview.Record, cols []tableview.Column) [][]string {
	out := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(cols))
		for j, col := range cols {
			row[j] = r.Value(col.Key)
		}
		out[i] = row
	}
	return out
}
