package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/pacta-app/tableview/internal/formatter"
	"github.com/pacta-app/tableview/internal/limiter"
	"github.com/pacta-app/tableview/internal/tableview"
)

type outputOptions struct {
	Format     string
	NoColor    bool
	Width      int
	RowNumbers bool
	// Limit trims the rows of csv, json and yaml output.
	Limit limiter.Config
}

// writeOutput prints the session. table and html show the current page;
// csv, json and yaml carry every matching row within o.Limit.
func writeOutput(w io.Writer, s *session, o outputOptions) error {
	switch o.Format {
	case outputTable, "":
		width := o.Width
		if width <= 0 {
			width = formatter.TerminalWidth()
		}
		_, err := io.WriteString(w, formatter.RenderPage(s.table.Page(), s.table.Columns(), formatter.PageOptions{
			NoColor:    o.NoColor,
			Width:      width,
			RowNumbers: o.RowNumbers,
		}))
		return err
	case outputHTML:
		return s.doc.Render(w)
	case outputCSV:
		return tableview.WriteCSV(w, s.table.ExportColumns(), limiter.Apply(o.Limit, s.table.State().Current))
	case outputJSON:
		return formatter.WriteJSON(w, limiter.Apply(o.Limit, s.table.State().Current), s.table.ExportColumns())
	case outputYAML:
		return formatter.WriteYAML(w, limiter.Apply(o.Limit, s.table.State().Current), s.table.ExportColumns())
	default:
		return validateOutput(o.Format)
	}
}

// exportFile writes the matching rows as <table>_export_<date>.csv and
// reports the path on w.
func exportFile(w io.Writer, s *session, dir string) error {
	name, data, err := s.table.Export()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "exported %d bytes to %s\n", len(data), filepath.Join(dir, name))
	return err
}
