package formatter

import (
	"sort"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"
)

const (
	sepWidth    = 2
	minColWidth = 3
	maxColWidth = 40
)

// ColumnHint tunes one column of a columnar table.
type ColumnHint struct {
	// MaxWidth caps the column width in cells. 0 means no cap.
	MaxWidth int
	// Priority controls shrinking: lower values shrink first.
	Priority int
	// Align is "right" or "left" (default).
	Align string
}

// ColumnarOptions configures RenderColumnarTable.
type ColumnarOptions struct {
	NoColor bool
	// TotalWidth is the available width. 0 uses the terminal width.
	TotalWidth int
	// RowNumbers adds a "#" column numbered from FirstRow.
	RowNumbers bool
	FirstRow   int
	// Hints are indexed like the headers.
	Hints []ColumnHint
	// Active marks header indices drawn with the active style.
	Active map[int]bool
}

// RenderColumnarTable renders headers and rows as aligned columns with a
// rule under the header. It returns "" when there are no headers.
func RenderColumnarTable(headers []string, rows [][]string, opts ColumnarOptions) string {
	if len(headers) == 0 {
		return ""
	}
	totalWidth := opts.TotalWidth
	if totalWidth <= 0 {
		totalWidth = TerminalWidth()
	}

	first := opts.FirstRow
	if first <= 0 {
		first = 1
	}
	numWidth := 0
	if opts.RowNumbers {
		numWidth = len(strconv.Itoa(first+len(rows)-1)) + 1
		if numWidth < 2 {
			numWidth = 2
		}
	}

	available := totalWidth
	if opts.RowNumbers {
		available -= numWidth + sepWidth
	}
	widths := columnWidths(headers, rows, available, opts.Hints)

	sep := strings.Repeat(" ", sepWidth)
	var b strings.Builder

	parts := make([]string, 0, len(headers)+1)
	if opts.RowNumbers {
		parts = append(parts, style(headerStyle, padRight("#", numWidth), opts.NoColor))
	}
	for i, h := range headers {
		cell := padRight(h, widths[i])
		if opts.Active[i] {
			parts = append(parts, style(activeStyle, cell, opts.NoColor))
			continue
		}
		parts = append(parts, style(headerStyle, cell, opts.NoColor))
	}
	b.WriteString(strings.Join(parts, sep))
	b.WriteByte('\n')

	ruleWidth := 0
	if opts.RowNumbers {
		ruleWidth = numWidth + sepWidth
	}
	for i, w := range widths {
		ruleWidth += w
		if i < len(widths)-1 {
			ruleWidth += sepWidth
		}
	}
	b.WriteString(style(separatorStyle, strings.Repeat("─", ruleWidth), opts.NoColor))
	b.WriteByte('\n')

	for r, row := range rows {
		parts = parts[:0]
		if opts.RowNumbers {
			parts = append(parts, style(rowNumberStyle, padRight(strconv.Itoa(first+r), numWidth), opts.NoColor))
		}
		for i := range headers {
			val := ""
			if i < len(row) {
				val = CellText(row[i])
			}
			var cell string
			if i < len(opts.Hints) && opts.Hints[i].Align == "right" {
				cell = padLeft(val, widths[i])
			} else {
				cell = padRight(val, widths[i])
			}
			parts = append(parts, style(cellStyle, cell, opts.NoColor))
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, sep), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func style(s lipgloss.Style, text string, noColor bool) string {
	if noColor {
		return text
	}
	return s.Render(text)
}

// NaturalWidth is the width the table needs without truncation.
func NaturalWidth(headers []string, rows [][]string, hints []ColumnHint) int {
	if len(headers) == 0 {
		return 0
	}
	total := 0
	for i, w := range naturalWidths(headers, rows, hints) {
		total += w
		if i > 0 {
			total += sepWidth
		}
	}
	return total
}

func naturalWidths(headers []string, rows [][]string, hints []ColumnHint) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := range headers {
			if i < len(row) {
				if w := runewidth.StringWidth(CellText(row[i])); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}
	for i := range widths {
		if i < len(hints) && hints[i].MaxWidth > 0 && widths[i] > hints[i].MaxWidth {
			widths[i] = hints[i].MaxWidth
		}
	}
	return widths
}

// columnWidths fits the natural widths into available. With priorities the
// lowest-priority columns give up space first; otherwise wide columns are
// capped and the rest shrinks proportionally.
func columnWidths(headers []string, rows [][]string, available int, hints []ColumnHint) []int {
	widths := naturalWidths(headers, rows, hints)
	usable := available - (len(widths)-1)*sepWidth
	if usable <= 0 || sum(widths) <= usable {
		return widths
	}
	if hasPriorities(hints) {
		return shrinkByPriority(widths, usable, hints)
	}

	for i := range widths {
		if widths[i] > maxColWidth {
			widths[i] = maxColWidth
		}
	}
	total := sum(widths)
	if total <= usable {
		return widths
	}
	for i := range widths {
		w := int(float64(widths[i]) / float64(total) * float64(usable))
		if w < minColWidth {
			w = minColWidth
		}
		widths[i] = w
	}
	for sum(widths) > usable {
		widest := 0
		for i := 1; i < len(widths); i++ {
			if widths[i] > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minColWidth {
			break
		}
		widths[widest]--
	}
	return widths
}

func hasPriorities(hints []ColumnHint) bool {
	for _, h := range hints {
		if h.Priority != 0 {
			return true
		}
	}
	return false
}

func shrinkByPriority(widths []int, usable int, hints []ColumnHint) []int {
	excess := sum(widths) - usable
	order := make([]int, len(widths))
	for i := range order {
		order[i] = i
	}
	priority := func(i int) int {
		if i < len(hints) {
			return hints[i].Priority
		}
		return 0
	}
	sort.SliceStable(order, func(a, b int) bool { return priority(order[a]) < priority(order[b]) })

	for _, idx := range order {
		if excess <= 0 {
			break
		}
		shrink := min(widths[idx]-minColWidth, excess)
		if shrink <= 0 {
			continue
		}
		widths[idx] -= shrink
		excess -= shrink
	}
	return widths
}

func sum(ws []int) int {
	total := 0
	for _, w := range ws {
		total += w
	}
	return total
}

// FitWidths returns per-column widths for headers and rows within available
// cells, separators included.
func FitWidths(headers []string, rows [][]string, available int, hints []ColumnHint) []int {
	if len(headers) == 0 {
		return nil
	}
	return columnWidths(headers, rows, available, hints)
}
