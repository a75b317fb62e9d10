// Package browser is the interactive terminal front-end: a bubbletea model
// that drives a tableview.Controller from the keyboard and renders every page
// the controller produces.
package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/go-logr/logr"

	"github.com/pacta-app/tableview/internal/formatter"
	"github.com/pacta-app/tableview/internal/tableview"
	"github.com/pacta-app/tableview/internal/ui/table"
)

type mode int

const (
	normalMode mode = iota
	searchMode
	filterMode
)

// chromeLines is the number of lines drawn around the table.
const chromeLines = 7

// Options configure a Model.
type Options struct {
	Title string
	// PageSizes are the sizes +/- step through.
	PageSizes []int
	// ExportDir receives CSV exports.
	ExportDir string
	NoColor   bool
	// Reload re-reads the source. Without it, refresh re-captures the rows
	// already loaded.
	Reload func() ([]*tableview.Record, error)
	// Now is the export clock.
	Now    func() time.Time
	Logger logr.Logger
}

// Model is the browser. It is the controller's View: every controller
// operation ends up in Render on the same goroutine as Update.
type Model struct {
	ctrl *tableview.Controller
	opts Options
	log  logr.Logger

	grid   *table.Model
	search textinput.Model
	filter textinput.Model

	mode        mode
	column      int
	page        tableview.Page
	loading     bool
	renderSeq   int
	searchSeq   int
	showFilters bool
	showHelp    bool
	status      string

	width    int
	height   int
	quitting bool

	titleStyle  lipgloss.Style
	dimStyle    lipgloss.Style
	statusStyle lipgloss.Style
}

// New attaches a browser to ctrl and renders the first page.
func New(ctrl *tableview.Controller, opts Options) *Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if len(opts.PageSizes) == 0 {
		opts.PageSizes = []int{10, 25, 50, 100}
	}
	opts.PageSizes = slices.Clone(opts.PageSizes)
	slices.Sort(opts.PageSizes)

	si := textinput.New()
	si.Prompt = "/ "
	si.Placeholder = "search"
	si.CharLimit = 200
	fi := textinput.New()
	fi.Prompt = "= "
	fi.CharLimit = 200

	m := &Model{
		ctrl:   ctrl,
		opts:   opts,
		log:    opts.Logger.WithName("browser"),
		grid:   table.New(),
		search: si,
		filter: fi,
		width:  80,
		height: 24,
	}
	m.grid.SetNoColor(opts.NoColor)
	m.applyStyles()
	ctrl.Attach(m)
	ctrl.Render()
	m.loading = false
	return m
}

func (m *Model) applyStyles() {
	if m.opts.NoColor {
		m.titleStyle = lipgloss.NewStyle().Bold(true)
		m.dimStyle = lipgloss.NewStyle()
		m.statusStyle = lipgloss.NewStyle()
		return
	}
	m.titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	m.dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	m.statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
}

// ShowLoading implements tableview.View.
func (m *Model) ShowLoading() {
	m.loading = true
	m.renderSeq++
}

// Render implements tableview.View.
func (m *Model) Render(p tableview.Page) {
	m.page = p
	m.grid.SetPage(p, m.ctrl.Columns())
}

// Page returns the last rendered page.
func (m *Model) Page() tableview.Page { return m.page }

// Status returns the last status message.
func (m *Model) Status() string { return m.status }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case searchMsg:
		if msg.seq != m.searchSeq {
			return m, nil
		}
		m.ctrl.Search(msg.term)
		return m, m.loaded()

	case renderedMsg:
		if msg.seq == m.renderSeq {
			m.loading = false
		}
		return m, nil

	case ReloadMsg:
		return m, m.reload()

	case reloadedMsg:
		if msg.err != nil {
			m.log.Error(msg.err, "reload failed")
			m.status = "reload failed: " + msg.err.Error()
			return m, nil
		}
		m.ctrl.Refresh(msg.records)
		m.clearInputs()
		m.status = fmt.Sprintf("reloaded %d rows", len(msg.records))
		return m, m.loaded()

	case tea.KeyPressMsg:
		switch m.mode {
		case searchMode:
			return m.updateSearch(msg)
		case filterMode:
			return m.updateFilter(msg)
		default:
			return m.updateNormal(msg)
		}
	}
	return m, nil
}

func (m *Model) updateNormal(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	action := DefaultKeyBindings[msg.String()]
	if m.showHelp && action != ActionQuit {
		m.showHelp = false
		return m, nil
	}
	m.status = ""
	cols := m.ctrl.Columns()

	switch action {
	case ActionQuit:
		m.quitting = true
		return m, tea.Quit

	case ActionHelp:
		m.showHelp = true
		return m, nil

	case ActionPrevColumn:
		if len(cols) > 0 {
			m.column = (m.column - 1 + len(cols)) % len(cols)
			m.grid.SetSelectedColumn(m.column)
		}
		return m, nil

	case ActionNextColumn:
		if len(cols) > 0 {
			m.column = (m.column + 1) % len(cols)
			m.grid.SetSelectedColumn(m.column)
		}
		return m, nil

	case ActionSort:
		if !m.ctrl.State().Config.Sortable {
			m.status = "sorting is disabled"
			return m, nil
		}
		if col, ok := m.selectedColumn(); ok {
			m.ctrl.Sort(col.Key, col.Type)
			return m, m.loaded()
		}
		return m, nil

	case ActionSearch:
		if !m.ctrl.State().Config.Searchable {
			m.status = "search is disabled"
			return m, nil
		}
		m.mode = searchMode
		m.grid.Blur()
		return m, m.search.Focus()

	case ActionFilter:
		if !m.ctrl.State().Config.Filterable {
			m.status = "filters are disabled"
			return m, nil
		}
		col, ok := m.selectedColumn()
		if !ok {
			return m, nil
		}
		m.filter.Prompt = col.Header + " = "
		m.filter.SetValue(m.filterValue(col.Key))
		m.filter.CursorEnd()
		m.mode = filterMode
		m.grid.Blur()
		return m, m.filter.Focus()

	case ActionClearFilters:
		m.ctrl.ClearFilters()
		m.status = "filters cleared"
		return m, m.loaded()

	case ActionNextPage:
		m.ctrl.ChangePage(tableview.PageNext)
		return m, m.loaded()

	case ActionPrevPage:
		m.ctrl.ChangePage(tableview.PagePrev)
		return m, m.loaded()

	case ActionFirstPage:
		m.ctrl.GoToPage(1)
		return m, m.loaded()

	case ActionLastPage:
		m.ctrl.GoToPage(m.page.TotalPages)
		return m, m.loaded()

	case ActionGrowPage, ActionShrinkPage:
		if n, ok := m.stepPageSize(action == ActionGrowPage); ok {
			m.ctrl.ChangeItemsPerPage(n)
			m.status = fmt.Sprintf("%d rows per page", n)
			return m, m.loaded()
		}
		return m, nil

	case ActionExport:
		m.export()
		return m, nil

	case ActionRefresh:
		return m, m.reload()

	case ActionToggleFilters:
		m.showFilters = !m.showFilters
		m.resize()
		return m, nil
	}

	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	return m, cmd
}

// updateSearch feeds the search input. Every edit restarts the debounce;
// enter applies at once and esc leaves the input with the pending search
// still scheduled.
func (m *Model) updateSearch(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchSeq++
		m.leaveInput(&m.search)
		m.ctrl.Search(m.search.Value())
		return m, m.loaded()
	case "esc":
		m.leaveInput(&m.search)
		return m, nil
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	prev := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == prev {
		return m, cmd
	}
	m.searchSeq++
	seq, term := m.searchSeq, m.search.Value()
	delay := m.ctrl.Options().DebounceDelay
	return m, tea.Batch(cmd, tea.Tick(delay, func(time.Time) tea.Msg {
		return searchMsg{seq: seq, term: term}
	}))
}

func (m *Model) updateFilter(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.leaveInput(&m.filter)
		if col, ok := m.selectedColumn(); ok {
			m.ctrl.SetFilter(col.Key, m.filter.Value())
			m.ctrl.ApplyFilters()
		}
		return m, m.loaded()
	case "esc":
		m.leaveInput(&m.filter)
		return m, nil
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m *Model) leaveInput(in *textinput.Model) {
	in.Blur()
	m.mode = normalMode
	m.grid.Focus()
}

func (m *Model) clearInputs() {
	m.searchSeq++
	m.search.SetValue("")
	m.filter.SetValue("")
}

// loaded schedules hiding the loading indicator after the render delay.
func (m *Model) loaded() tea.Cmd {
	if !m.loading {
		return nil
	}
	delay := m.ctrl.Options().RenderDelay
	if delay <= 0 {
		m.loading = false
		return nil
	}
	seq := m.renderSeq
	return tea.Tick(delay, func(time.Time) tea.Msg { return renderedMsg{seq: seq} })
}

func (m *Model) reload() tea.Cmd {
	reload := m.opts.Reload
	if reload == nil {
		records := m.ctrl.State().Original
		return func() tea.Msg { return reloadedMsg{records: records} }
	}
	return func() tea.Msg {
		records, err := reload()
		return reloadedMsg{records: records, err: err}
	}
}

func (m *Model) export() {
	name := m.ctrl.ExportFilename(m.opts.Now())
	path := filepath.Join(m.opts.ExportDir, name)
	f, err := os.Create(path)
	if err != nil {
		m.log.Error(err, "export failed", "path", path)
		m.status = "export failed: " + err.Error()
		return
	}
	err = m.ctrl.ExportCSV(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		m.log.Error(err, "export failed", "path", path)
		m.status = "export failed: " + err.Error()
		return
	}
	m.log.V(1).Info("exported", "path", path, "rows", len(m.ctrl.Current()))
	m.status = fmt.Sprintf("exported %d rows to %s", len(m.ctrl.Current()), path)
}

func (m *Model) selectedColumn() (tableview.Column, bool) {
	cols := m.ctrl.Columns()
	if m.column < 0 || m.column >= len(cols) {
		return tableview.Column{}, false
	}
	return cols[m.column], true
}

func (m *Model) filterValue(key string) string {
	for _, f := range m.ctrl.State().Filters {
		if f.Column == key {
			return f.Value
		}
	}
	return ""
}

// stepPageSize returns the next configured size above (or below) the current
// one.
func (m *Model) stepPageSize(up bool) (int, bool) {
	cur := m.page.ItemsPerPage
	if up {
		for _, n := range m.opts.PageSizes {
			if n > cur {
				return n, true
			}
		}
		return 0, false
	}
	for i := len(m.opts.PageSizes) - 1; i >= 0; i-- {
		if n := m.opts.PageSizes[i]; n < cur {
			return n, true
		}
	}
	return 0, false
}

func (m *Model) resize() {
	h := m.height - chromeLines
	if m.showFilters {
		h--
	}
	m.grid.SetSize(m.width, max(h, 3))
	m.search.SetWidth(max(m.width-4, 10))
	m.filter.SetWidth(max(m.width-4, 10))
}

// View implements tea.Model.
func (m *Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m *Model) render() string {
	var b strings.Builder

	title := m.opts.Title
	if title == "" {
		title = m.ctrl.ID()
	}
	b.WriteString(m.titleStyle.Render(title))
	if m.loading {
		b.WriteString(m.dimStyle.Render("  loading…"))
	}
	b.WriteByte('\n')

	switch m.mode {
	case searchMode:
		b.WriteString(m.search.View())
	case filterMode:
		b.WriteString(m.filter.View())
	default:
		if term := m.ctrl.State().SearchTerm; term != "" {
			b.WriteString("search: " + term)
		} else {
			b.WriteString(m.dimStyle.Render("/ to search"))
		}
	}
	b.WriteByte('\n')

	if m.showFilters {
		b.WriteString(m.filtersLine())
		b.WriteByte('\n')
	}

	if m.showHelp {
		b.WriteString(strings.ReplaceAll(helpLine, "  ", "\n"))
		b.WriteByte('\n')
		return b.String()
	}

	b.WriteString(m.grid.View())
	b.WriteByte('\n')
	if m.page.Empty {
		b.WriteString(m.dimStyle.Render(formatter.DefaultEmptyText))
		b.WriteByte('\n')
	}
	b.WriteString(m.page.Summary + "   " + formatter.Pager(m.page, m.opts.NoColor))
	b.WriteByte('\n')
	if m.status != "" {
		b.WriteString(m.statusStyle.Render(m.status))
	}
	b.WriteByte('\n')
	b.WriteString(m.dimStyle.Render(helpLine))
	return b.String()
}

func (m *Model) filtersLine() string {
	var parts []string
	for _, f := range m.ctrl.State().Filters {
		if f.Value != "" {
			parts = append(parts, f.Column+"="+f.Value)
		}
	}
	if len(parts) == 0 {
		return "filters: none"
	}
	return "filters: " + strings.Join(parts, ", ")
}
