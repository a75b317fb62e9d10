package tableview

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// ExportColumns returns the columns written by ExportCSV: every header
// column except actions columns. Without header columns, the union of the
// record keys in first-seen order is used.
func (c *Controller) ExportColumns() []Column {
	if len(c.columns) > 0 {
		out := make([]Column, 0, len(c.columns))
		for _, col := range c.columns {
			if c.isActionsColumn(col) {
				continue
			}
			out = append(out, col)
		}
		return out
	}
	seen := make(map[string]bool)
	var out []Column
	for _, r := range c.original {
		for _, k := range r.Keys {
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, Column{Key: k, Header: k})
		}
	}
	return out
}

func (c *Controller) isActionsColumn(col Column) bool {
	header := strings.ToLower(col.Header)
	for _, marker := range c.opts.ActionsMarkers {
		if marker != "" && strings.Contains(header, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// ExportCSV writes every row of Current, in order, as CSV with a header row.
func (c *Controller) ExportCSV(w io.Writer) error {
	return WriteCSV(w, c.ExportColumns(), c.current)
}

// WriteCSV writes records as CSV: a header row of column headers, then one
// line per record with the cells of cols.
func WriteCSV(w io.Writer, cols []Column, records []*Record) error {
	bw := bufio.NewWriter(w)

	fields := make([]string, len(cols))
	for i, col := range cols {
		fields[i] = escapeCSVField(col.Header)
	}
	if _, err := bw.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range records {
		for i, col := range cols {
			fields[i] = escapeCSVField(r.Data[col.Key])
		}
		if _, err := bw.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
			return fmt.Errorf("writing csv row %q: %w", r.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// ExportFilename is the download name for an export taken at now.
func (c *Controller) ExportFilename(now time.Time) string {
	return ExportFilename(c.id, now)
}

// ExportFilename returns <tableID>_export_<YYYY-MM-DD>.csv.
func ExportFilename(tableID string, now time.Time) string {
	return fmt.Sprintf("%s_export_%s.csv", tableID, now.Format(time.DateOnly))
}

// escapeCSVField doubles embedded quotes and wraps the field in quotes only
// when it contains a comma.
func escapeCSVField(s string) string {
	s = strings.ReplaceAll(s, `"`, `""`)
	if strings.Contains(s, ",") {
		return `"` + s + `"`
	}
	return s
}
