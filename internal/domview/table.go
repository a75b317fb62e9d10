package domview

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/net/html"

	"github.com/pacta-app/tableview/internal/dom"
	"github.com/pacta-app/tableview/internal/tableview"
)

// Table is one bound table. Its methods are safe for concurrent use.
type Table struct {
	page     *Page
	id       string
	table    *html.Node
	body     *html.Node
	ctrl     *tableview.Controller
	debounce *tableview.Debouncer
	bound    []*html.Node
	rendered []*html.Node
	log      logr.Logger
}

// ID returns the table id.
func (t *Table) ID() string { return t.id }

func (t *Table) el(prefix string) *html.Node {
	return t.page.doc.ByID(prefix + t.id)
}

func (t *Table) listen(n *html.Node, typ string, fn func(dom.Event)) {
	if n == nil {
		return
	}
	t.page.doc.AddEventListener(n, typ, fn)
	t.bound = append(t.bound, n)
}

func (t *Table) unbind() {
	t.debounce.Cancel()
	for _, n := range t.bound {
		t.page.doc.RemoveEventListeners(n)
	}
	t.bound = nil
	if pn := t.el(PageNumbersPrefix); pn != nil {
		for _, btn := range dom.Children(pn, nil) {
			t.page.doc.RemoveEventListeners(btn)
		}
	}
}

// bind wires the contract elements. Handlers run under the page lock.
func (t *Table) bind() {
	opts := t.ctrl.Options()

	if opts.Sortable {
		for _, th := range dom.FindAll(t.table, dom.All(dom.Tag("th"), dom.Class(ClassSortable))) {
			col := dom.Data(th, "column")
			if col == "" {
				continue
			}
			typ := tableview.ParseValueType(dom.Data(th, "type"))
			t.listen(th, "click", func(dom.Event) { t.ctrl.Sort(col, typ) })
		}
	}

	if search := t.el(SearchPrefix); search != nil && opts.Searchable {
		t.listen(search, "input", func(e dom.Event) {
			term := dom.Value(e.Target)
			t.debounce.Debounce(func() {
				t.page.mu.Lock()
				defer t.page.mu.Unlock()
				t.ctrl.Search(term)
			})
		})
	}

	if panel := t.el(FiltersPrefix); panel != nil {
		for _, ctrl := range t.filterControls() {
			col := dom.Data(ctrl, "column")
			if col == "" {
				continue
			}
			t.ctrl.RegisterFilter(col)
			if opts.Filterable {
				t.listen(ctrl, "change", func(dom.Event) { t.applyFilters() })
			}
		}
	}

	t.listen(t.el(ItemsPerPagePrefix), "change", func(e dom.Event) {
		n, err := strconv.Atoi(strings.TrimSpace(dom.Value(e.Target)))
		if err != nil {
			t.log.Error(err, "invalid page size", "value", dom.Value(e.Target))
			return
		}
		t.ctrl.ChangeItemsPerPage(n)
	})
	t.listen(t.el(PrevPrefix), "click", func(dom.Event) { t.ctrl.ChangePage(tableview.PagePrev) })
	t.listen(t.el(NextPrefix), "click", func(dom.Event) { t.ctrl.ChangePage(tableview.PageNext) })
	t.listen(t.el(ToggleFiltersPrefix), "click", func(dom.Event) { t.toggleFilters() })
	t.listen(t.el(ClearFiltersPrefix), "click", func(dom.Event) { t.clearFilters() })
	t.listen(t.el(RefreshPrefix), "click", func(dom.Event) { t.refresh() })
	t.listen(t.el(ExportPrefix), "click", func(dom.Event) {
		if err := t.download(); err != nil {
			t.log.Error(err, "export failed")
		}
	})
}

func (t *Table) filterControls() []*html.Node {
	panel := t.el(FiltersPrefix)
	if panel == nil {
		return nil
	}
	return dom.FindAll(panel, dom.Any(dom.Class(ClassFilter), dom.Class(ClassFilterDate)))
}

// applyFilters reads every filter control into the controller, then applies.
func (t *Table) applyFilters() {
	if t.el(FiltersPrefix) == nil {
		t.log.Info("filters panel not found", "id", FiltersPrefix+t.id)
		return
	}
	for _, ctrl := range t.filterControls() {
		if col := dom.Data(ctrl, "column"); col != "" {
			t.ctrl.SetFilter(col, dom.Value(ctrl))
		}
	}
	t.ctrl.ApplyFilters()
}

func (t *Table) clearFilters() {
	for _, ctrl := range t.filterControls() {
		dom.SetValue(ctrl, "")
	}
	t.ctrl.ClearFilters()
}

func (t *Table) toggleFilters() {
	panel := t.el(FiltersPrefix)
	if panel == nil {
		t.log.Info("filters panel not found", "id", FiltersPrefix+t.id)
		return
	}
	if dom.Style(panel, "display") != "none" {
		dom.SetStyle(panel, "display", "none")
	} else {
		dom.SetStyle(panel, "display", "block")
	}
}

// refresh keeps the captured records while the body still holds exactly the
// rows the view attached, and re-captures from the document otherwise.
func (t *Table) refresh() {
	var records []*tableview.Record
	if t.bodyUnchanged() {
		records = t.ctrl.State().Original
		t.log.V(1).Info("body unchanged, refreshing from captured rows", "rows", len(records))
	} else {
		snap, err := Capture(t.page.doc, t.id)
		if err != nil {
			t.log.Error(err, "cannot refresh table")
			return
		}
		t.table, t.body = snap.Table, snap.Body
		records = snap.Records
	}
	t.debounce.Cancel()
	if search := t.el(SearchPrefix); search != nil {
		dom.SetValue(search, "")
	}
	for _, ctrl := range t.filterControls() {
		dom.SetValue(ctrl, "")
	}
	t.ctrl.Refresh(records)
}

func (t *Table) bodyUnchanged() bool {
	if t.body == nil || t.rendered == nil || t.table != t.page.doc.ByID(t.id) {
		return false
	}
	if dom.Find(t.table, dom.Tag("tbody")) != t.body {
		return false
	}
	rows := dom.Children(t.body, nil)
	if len(rows) != len(t.rendered) {
		return false
	}
	for i, n := range rows {
		if n != t.rendered[i] {
			return false
		}
	}
	return true
}

func (t *Table) exportCSV() (string, []byte, error) {
	var buf bytes.Buffer
	if err := t.ctrl.ExportCSV(&buf); err != nil {
		return "", nil, err
	}
	return t.ctrl.ExportFilename(t.page.now()), buf.Bytes(), nil
}

func (t *Table) download() error {
	name, data, err := t.exportCSV()
	if err != nil {
		return err
	}
	if t.page.download == nil {
		t.log.Info("no downloader configured, export dropped", "file", name)
		return nil
	}
	return t.page.download(name, data)
}

func (t *Table) locked(fn func()) {
	t.page.mu.Lock()
	defer t.page.mu.Unlock()
	fn()
}

// Sort sorts by column, as a click on its header would.
func (t *Table) Sort(column string, typ tableview.ValueType) {
	t.locked(func() { t.ctrl.Sort(column, typ) })
}

// SetSort sorts by column in an explicit direction.
func (t *Table) SetSort(column string, typ tableview.ValueType, dir tableview.Direction) {
	t.locked(func() { t.ctrl.SetSort(column, typ, dir) })
}

// Search runs a search immediately, cancelling any debounced one, and
// mirrors term into the search input.
func (t *Table) Search(term string) {
	t.locked(func() {
		t.debounce.Cancel()
		if search := t.el(SearchPrefix); search != nil {
			dom.SetValue(search, term)
		}
		t.ctrl.Search(term)
	})
}

// Filter sets the control bound to column and applies every filter. A select
// without a matching option gains one, so partial values still filter.
// Columns without a control are filtered all the same.
func (t *Table) Filter(column, value string) {
	t.locked(func() {
		found := false
		for _, ctrl := range t.filterControls() {
			if dom.Data(ctrl, "column") == column {
				if dom.SelectOption(ctrl, value) {
					t.log.V(1).Info("filter option added", "column", column, "value", value)
				}
				found = true
			}
		}
		if !found {
			t.ctrl.SetFilter(column, value)
			t.ctrl.ApplyFilters()
			return
		}
		t.applyFilters()
	})
}

// ApplyFilters re-reads the filter controls.
func (t *Table) ApplyFilters() { t.locked(t.applyFilters) }

// ClearFilters empties every filter control and re-applies.
func (t *Table) ClearFilters() { t.locked(t.clearFilters) }

// ToggleFilters shows or hides the filters panel.
func (t *Table) ToggleFilters() { t.locked(t.toggleFilters) }

// ChangePage moves one page back or forward.
func (t *Table) ChangePage(dir tableview.PageDirection) {
	t.locked(func() { t.ctrl.ChangePage(dir) })
}

// GoToPage jumps to page n.
func (t *Table) GoToPage(n int) {
	t.locked(func() { t.ctrl.GoToPage(n) })
}

// ChangeItemsPerPage sets the page size.
func (t *Table) ChangeItemsPerPage(n int) {
	t.locked(func() { t.ctrl.ChangeItemsPerPage(n) })
}

// SetPredicate installs an extra row predicate and applies it.
func (t *Table) SetPredicate(p tableview.Predicate) {
	t.locked(func() {
		t.ctrl.SetPredicate(p)
		t.ctrl.ApplyFilters()
	})
}

// Refresh reloads the rows, re-capturing the table body when it changed since
// the last render, and resets search, filters, sort and page.
func (t *Table) Refresh() { t.locked(t.refresh) }

// ExportCSV writes the current rows to w.
func (t *Table) ExportCSV(w io.Writer) error {
	t.page.mu.Lock()
	defer t.page.mu.Unlock()
	return t.ctrl.ExportCSV(w)
}

// Export returns the download name and CSV bytes, and hands them to the
// page's downloader when one is set.
func (t *Table) Export() (string, []byte, error) {
	t.page.mu.Lock()
	defer t.page.mu.Unlock()
	name, data, err := t.exportCSV()
	if err != nil {
		return "", nil, err
	}
	if t.page.download != nil {
		if err := t.page.download(name, data); err != nil {
			return name, data, err
		}
	}
	return name, data, nil
}

// State returns a snapshot of the controller state.
func (t *Table) State() tableview.State {
	t.page.mu.Lock()
	defer t.page.mu.Unlock()
	return t.ctrl.State()
}

// Page returns the page currently displayed.
func (t *Table) Page() tableview.Page {
	t.page.mu.Lock()
	defer t.page.mu.Unlock()
	return t.ctrl.Page()
}

// ExportColumns returns the columns ExportCSV writes.
func (t *Table) ExportColumns() []tableview.Column {
	t.page.mu.Lock()
	defer t.page.mu.Unlock()
	return t.ctrl.ExportColumns()
}

// Columns returns the captured header columns.
func (t *Table) Columns() []tableview.Column { return t.ctrl.Columns() }

// FlushSearch runs a pending debounced search now.
func (t *Table) FlushSearch() bool { return t.debounce.Flush() }
