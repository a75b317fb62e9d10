package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/pacta-app/tableview/internal/tableview"
)

// filterFlag collects repeated --filter column=value pairs. A later value for
// the same column replaces the earlier one.
type filterFlag struct {
	keys   []string
	values map[string]string
}

var _ pflag.Value = (*filterFlag)(nil)

func (f *filterFlag) String() string {
	parts := make([]string, 0, len(f.keys))
	for _, k := range f.keys {
		parts = append(parts, k+"="+f.values[k])
	}
	return strings.Join(parts, ",")
}

func (f *filterFlag) Set(s string) error {
	col, val, ok := strings.Cut(s, "=")
	col = strings.TrimSpace(col)
	if !ok || col == "" {
		return fmt.Errorf("expected column=value, got %q", s)
	}
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, seen := f.values[col]; !seen {
		f.keys = append(f.keys, col)
	}
	f.values[col] = strings.TrimSpace(val)
	return nil
}

func (f *filterFlag) Type() string { return "column=value" }

// Pairs returns the filters in the order they were first given.
func (f *filterFlag) Pairs() []tableview.Filter {
	out := make([]tableview.Filter, 0, len(f.keys))
	for _, k := range f.keys {
		out = append(out, tableview.Filter{Column: k, Value: f.values[k]})
	}
	return out
}

// Map returns a copy of the filters.
func (f *filterFlag) Map() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// parseSort splits --sort column[:asc|desc].
func parseSort(s string) (string, tableview.Direction, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", tableview.Asc, nil
	}
	col, dir, _ := strings.Cut(s, ":")
	col = strings.TrimSpace(col)
	if col == "" {
		return "", "", fmt.Errorf("invalid --sort %q: missing column", s)
	}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc", "ascending":
		return col, tableview.Asc, nil
	case "desc", "descending":
		return col, tableview.Desc, nil
	default:
		return "", "", fmt.Errorf("invalid --sort direction %q (use asc or desc)", dir)
	}
}

// Output formats of the root command.
const (
	outputTable = "table"
	outputHTML  = "html"
	outputCSV   = "csv"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var outputFormats = []string{outputTable, outputHTML, outputCSV, outputJSON, outputYAML}

func validateOutput(o string) error {
	if slices.Contains(outputFormats, o) {
		return nil
	}
	return fmt.Errorf("invalid output %q (use %s)", o, strings.Join(outputFormats, "|"))
}
