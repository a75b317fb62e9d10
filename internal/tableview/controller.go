// Package tableview implements the client-side table controller: sorting,
// free-text search, column filters, pagination, CSV export and refresh over
// rows that were already rendered by a page.
//
// The controller owns an explicit state object and never touches a DOM.
// Front-ends attach a View and receive a Page every time the controller
// renders.
package tableview

import (
	"slices"
	"strings"
	"text/template"

	"github.com/go-logr/logr"
)

// View receives rendered pages.
type View interface {
	// ShowLoading is called right before Render. It is cosmetic.
	ShowLoading()
	Render(Page)
}

// Predicate is an extra row filter ANDed with search and column filters.
type Predicate interface {
	Match(*Record) (bool, error)
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(*Record) (bool, error)

// Match implements Predicate.
func (f PredicateFunc) Match(r *Record) (bool, error) { return f(r) }

// Filter is one column filter control.
type Filter struct {
	Column string
	Value  string
}

// State is a snapshot of a controller.
type State struct {
	TableID    string
	Config     Config
	Original   []*Record
	Filtered   []*Record
	Current    []*Record
	SearchTerm string
	Filters    []Filter
}

// PageDirection is a relative page move.
type PageDirection string

const (
	PagePrev PageDirection = "prev"
	PageNext PageDirection = "next"
)

// Controller is one table instance.
type Controller struct {
	id      string
	opts    Options
	cfg     Config
	columns []Column

	original []*Record
	filtered []*Record
	current  []*Record

	searchTerm string
	filters    []Filter
	predicate  Predicate

	summary *template.Template
	views   []View
	log     logr.Logger
}

// New creates a controller over records. The initial sort in opts is applied
// immediately; nothing is rendered until Render is called.
func New(tableID string, columns []Column, records []*Record, opts Options) *Controller {
	opts = opts.normalized()
	c := &Controller{
		id:      tableID,
		opts:    opts,
		cfg:     opts.Config,
		columns: append([]Column(nil), columns...),
		log:     opts.Logger.WithValues("table", tableID),
	}
	tmpl, err := template.New("summary").Parse(opts.SummaryFormat)
	if err != nil {
		c.log.Error(err, "invalid summary format, using default", "format", opts.SummaryFormat)
		tmpl = template.Must(template.New("summary").Parse(DefaultSummaryFormat))
	}
	c.summary = tmpl
	c.setRecords(records)

	if c.cfg.SortColumn != "" {
		if c.cfg.SortType == "" {
			c.cfg.SortType = c.columnType(c.cfg.SortColumn)
		}
		c.sortFiltered()
		c.deriveCurrent()
	}
	return c
}

// ID returns the table id.
func (c *Controller) ID() string { return c.id }

// Options returns the normalized options the controller was built with.
func (c *Controller) Options() Options { return c.opts }

// Columns returns the header columns.
func (c *Controller) Columns() []Column { return append([]Column(nil), c.columns...) }

// Attach adds a view. It does not render.
func (c *Controller) Attach(v View) {
	if v != nil {
		c.views = append(c.views, v)
	}
}

// RegisterFilter declares a filter control bound to column. Registering the
// same column twice is a no-op.
func (c *Controller) RegisterFilter(column string) {
	for _, f := range c.filters {
		if f.Column == column {
			return
		}
	}
	c.filters = append(c.filters, Filter{Column: column})
}

// SetFilter stores the value of the control bound to column, registering it
// when needed. It does not apply.
func (c *Controller) SetFilter(column, value string) {
	if !c.cfg.Filterable {
		c.log.V(1).Info("filtering disabled, ignoring filter", "column", column)
		return
	}
	for i := range c.filters {
		if c.filters[i].Column == column {
			c.filters[i].Value = value
			return
		}
	}
	c.filters = append(c.filters, Filter{Column: column, Value: value})
}

// SetPredicate installs (or, with nil, removes) the extra row predicate.
func (c *Controller) SetPredicate(p Predicate) {
	c.predicate = p
}

// Sort orders the rows by column. Sorting the active column flips the
// direction; any other column becomes active ascending.
func (c *Controller) Sort(column string, typ ValueType) {
	if !c.cfg.Sortable {
		c.log.V(1).Info("sorting disabled", "column", column)
		return
	}
	if column == "" {
		return
	}
	if c.cfg.SortColumn == column {
		c.cfg.SortDirection = c.cfg.SortDirection.flip()
	} else {
		c.cfg.SortColumn = column
		c.cfg.SortDirection = Asc
	}
	if typ == "" {
		typ = c.columnType(column)
	}
	c.cfg.SortType = typ

	c.sortFiltered()
	c.deriveCurrent()
	c.cfg.CurrentPage = 1
	c.Render()
}

// SetSort makes column the active sort with an explicit direction.
func (c *Controller) SetSort(column string, typ ValueType, dir Direction) {
	if column == "" {
		return
	}
	if !c.cfg.Sortable {
		c.log.V(1).Info("sorting disabled", "column", column)
		return
	}
	if typ == "" {
		typ = c.columnType(column)
	}
	c.cfg.SortColumn = column
	c.cfg.SortType = typ
	c.cfg.SortDirection = dir
	c.sortFiltered()
	c.deriveCurrent()
	c.cfg.CurrentPage = 1
	c.Render()
}

// Search keeps the rows whose search text contains term, case-insensitively.
// An empty term restores every original row. Column filters and the active
// sort are re-applied afterwards.
func (c *Controller) Search(term string) {
	if !c.cfg.Searchable {
		c.log.V(1).Info("search disabled")
		return
	}
	c.searchTerm = term
	c.runSearch()
	c.sortFiltered()
	c.deriveCurrent()
	c.cfg.CurrentPage = 1
	c.Render()
}

// ApplyFilters recomputes the current rows from the search result and every
// non-empty filter.
func (c *Controller) ApplyFilters() {
	c.deriveCurrent()
	c.cfg.CurrentPage = 1
	c.Render()
}

// ClearFilters empties every filter value and re-applies.
func (c *Controller) ClearFilters() {
	for i := range c.filters {
		c.filters[i].Value = ""
	}
	c.ApplyFilters()
}

// ChangePage moves one page back or forward. Moves past either end are
// ignored.
func (c *Controller) ChangePage(dir PageDirection) {
	total := c.totalPages()
	switch dir {
	case PagePrev:
		if c.cfg.CurrentPage > 1 {
			c.cfg.CurrentPage--
		}
	case PageNext:
		if c.cfg.CurrentPage < total {
			c.cfg.CurrentPage++
		}
	default:
		c.log.Info("unknown page direction", "direction", string(dir))
		return
	}
	c.Render()
}

// GoToPage jumps to a 1-based page, clamped to the valid range.
func (c *Controller) GoToPage(n int) {
	c.cfg.CurrentPage = clampPage(n, c.totalPages())
	c.Render()
}

// ChangeItemsPerPage sets the page size and returns to page 1.
func (c *Controller) ChangeItemsPerPage(n int) {
	if n <= 0 {
		c.log.Info("ignoring invalid page size", "itemsPerPage", n)
		return
	}
	c.cfg.ItemsPerPage = n
	c.cfg.CurrentPage = 1
	c.Render()
}

// Refresh replaces the captured rows and discards search, filter, sort and
// page state.
func (c *Controller) Refresh(records []*Record) {
	c.setRecords(records)
	c.searchTerm = ""
	for i := range c.filters {
		c.filters[i].Value = ""
	}
	c.cfg.SortColumn = ""
	c.cfg.SortType = ""
	c.cfg.SortDirection = Asc
	c.cfg.CurrentPage = 1
	c.Render()
}

// Render clamps the current page and hands the visible page to every view.
func (c *Controller) Render() {
	c.cfg.CurrentPage = clampPage(c.cfg.CurrentPage, c.totalPages())
	page := c.Page()
	for _, v := range c.views {
		v.ShowLoading()
		v.Render(page)
	}
}

// State returns a snapshot; the slices are copies, the records are shared.
func (c *Controller) State() State {
	return State{
		TableID:    c.id,
		Config:     c.cfg,
		Original:   slices.Clone(c.original),
		Filtered:   slices.Clone(c.filtered),
		Current:    slices.Clone(c.current),
		SearchTerm: c.searchTerm,
		Filters:    slices.Clone(c.filters),
	}
}

// Current returns the rows pagination slices, in order.
func (c *Controller) Current() []*Record { return slices.Clone(c.current) }

func (c *Controller) setRecords(records []*Record) {
	c.original = slices.Clone(records)
	c.filtered = slices.Clone(records)
	c.current = slices.Clone(records)
}

func (c *Controller) runSearch() {
	term := strings.ToLower(strings.TrimSpace(c.searchTerm))
	if term == "" {
		c.filtered = slices.Clone(c.original)
		return
	}
	c.filtered = c.filtered[:0:0]
	for _, r := range c.original {
		if strings.Contains(r.SearchText, term) {
			c.filtered = append(c.filtered, r)
		}
	}
}

// deriveCurrent applies the column filters and the predicate on top of the
// search result.
func (c *Controller) deriveCurrent() {
	out := slices.Clone(c.filtered)
	for _, f := range c.filters {
		val := strings.ToLower(strings.TrimSpace(f.Value))
		if val == "" {
			continue
		}
		kept := out[:0]
		for _, r := range out {
			if strings.Contains(strings.ToLower(r.Data[f.Column]), val) {
				kept = append(kept, r)
			}
		}
		out = kept
	}
	if c.predicate != nil {
		out = c.matchPredicate(out)
	}
	c.current = out
}

func (c *Controller) matchPredicate(rows []*Record) []*Record {
	kept := rows[:0]
	var firstErr error
	failures := 0
	for _, r := range rows {
		ok, err := c.predicate.Match(r)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failures++
			continue
		}
		if ok {
			kept = append(kept, r)
		}
	}
	if firstErr != nil {
		c.log.Error(firstErr, "row predicate failed, rows excluded", "rows", failures)
	}
	return kept
}

func (c *Controller) sortFiltered() {
	if c.cfg.SortColumn == "" || len(c.filtered) < 2 {
		return
	}
	type keyed struct {
		rec *Record
		key sortKey
	}
	col, typ, layouts := c.cfg.SortColumn, c.cfg.SortType, c.opts.DateLayouts
	items := make([]keyed, len(c.filtered))
	for i, r := range c.filtered {
		items[i] = keyed{rec: r, key: coerce(r.Data[col], typ, layouts)}
	}
	desc := c.cfg.SortDirection == Desc
	slices.SortStableFunc(items, func(a, b keyed) int {
		cmp := compareKeys(a.key, b.key, typ)
		if desc {
			return -cmp
		}
		return cmp
	})
	for i := range items {
		c.filtered[i] = items[i].rec
	}
}

func (c *Controller) columnType(key string) ValueType {
	for _, col := range c.columns {
		if col.Key == key && col.Type != "" {
			return col.Type
		}
	}
	return TypeText
}

func (c *Controller) totalPages() int {
	return totalPages(len(c.current), c.cfg.ItemsPerPage)
}
