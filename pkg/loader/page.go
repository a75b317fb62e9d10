package loader

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"slices"
	"strconv"

	"github.com/pacta-app/tableview/internal/tableview"
)

//go:embed page.html.tmpl
var pageTemplateText string

var pageTemplate = template.Must(template.New("page").Parse(pageTemplateText))

// DefaultTableID is used when PageOptions.TableID is empty.
const DefaultTableID = "data"

// DefaultFilterLimit is the largest number of distinct values a column may
// have and still get a filter select.
const DefaultFilterLimit = 12

// PageOptions control RenderPage.
type PageOptions struct {
	TableID      string
	Title        string
	PageSizes    []int
	ItemsPerPage int
	// FilterLimit caps distinct values for generated filter selects.
	FilterLimit int
	// Actions appends a per-row actions column, as the application screens do.
	Actions bool

	// Form wraps the controls in a GET form posting to Action, for pages
	// served without scripts.
	Form   bool
	Action string
	// Search, Filters, Page, Sort and Dir pre-fill the form controls.
	Search  string
	Filters map[string]string
	Page    int
	Sort    string
	Dir     string
}

type cellData struct {
	Key   string
	Value string
}

type rowData struct {
	ID    string
	Cells []cellData
}

type optionData struct {
	Value    string
	Selected bool
}

type filterData struct {
	Key      string
	Header   string
	Date     bool
	Selected string
	Options  []optionData
}

type pageData struct {
	ID        string
	Title     string
	Columns   []Column
	Rows      []rowData
	Filters   []filterData
	PageSizes []optionData
	Actions   bool
	Colspan   int

	Form   bool
	Action string
	Search string
	Page   int
	Sort   string
	Dir    string
}

// RenderPage writes t as a page that follows the table DOM contract. All
// text goes through html/template escaping.
func RenderPage(w io.Writer, t *Table, opts PageOptions) error {
	data := buildPageData(t, opts)
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	return nil
}

func buildPageData(t *Table, opts PageOptions) pageData {
	id := opts.TableID
	if id == "" {
		id = DefaultTableID
	}
	title := opts.Title
	if title == "" {
		title = id
	}
	d := pageData{
		ID:      id,
		Title:   title,
		Columns: t.Columns,
		Actions: opts.Actions,
		Colspan: max(1, len(t.Columns)),
		Form:    opts.Form,
		Action:  opts.Action,
		Search:  opts.Search,
		Page:    max(1, opts.Page),
		Sort:    opts.Sort,
		Dir:     opts.Dir,
	}
	if opts.Actions {
		d.Colspan++
	}

	for i, cells := range t.Rows {
		row := rowData{ID: strconv.Itoa(i + 1)}
		for j, col := range t.Columns {
			v := ""
			if j < len(cells) {
				v = cells[j]
			}
			if col.Key == "id" && v != "" {
				row.ID = v
			}
			row.Cells = append(row.Cells, cellData{Key: col.Key, Value: v})
		}
		d.Rows = append(d.Rows, row)
	}

	limit := opts.FilterLimit
	if limit <= 0 {
		limit = DefaultFilterLimit
	}
	for i, col := range t.Columns {
		selected := opts.Filters[col.Key]
		if col.Type == tableview.TypeDate {
			d.Filters = append(d.Filters, filterData{Key: col.Key, Header: col.Header, Date: true, Selected: selected})
			continue
		}
		if col.Type != tableview.TypeText && col.Type != "" {
			continue
		}
		values := distinct(t, i)
		if len(values) < 2 || len(values) > limit || len(values) >= len(t.Rows) {
			continue
		}
		f := filterData{Key: col.Key, Header: col.Header, Selected: selected}
		for _, v := range values {
			f.Options = append(f.Options, optionData{Value: v, Selected: v == selected})
		}
		if selected != "" && !slices.Contains(values, selected) {
			f.Options = append(f.Options, optionData{Value: selected, Selected: true})
		}
		d.Filters = append(d.Filters, f)
	}

	sizes := opts.PageSizes
	if len(sizes) == 0 {
		sizes = []int{10, 25, 50, 100}
	}
	per := opts.ItemsPerPage
	if per <= 0 {
		per = sizes[0]
	}
	if !slices.Contains(sizes, per) {
		sizes = append(slices.Clone(sizes), per)
		slices.Sort(sizes)
	}
	for _, n := range sizes {
		d.PageSizes = append(d.PageSizes, optionData{Value: strconv.Itoa(n), Selected: n == per})
	}
	return d
}

func distinct(t *Table, col int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range t.Rows {
		if col >= len(row) || row[col] == "" || seen[row[col]] {
			continue
		}
		seen[row[col]] = true
		out = append(out, row[col])
	}
	slices.Sort(out)
	return out
}
