package domview

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/pacta-app/tableview/internal/dom"
	"github.com/pacta-app/tableview/internal/tableview"
	"github.com/pacta-app/tableview/pkg/logger"
)

// Downloader receives exported files, e.g. to write them to disk.
type Downloader func(filename string, data []byte) error

// Option configures a Page.
type Option func(*Page)

// WithDownloader sets where #export-T clicks deliver the CSV.
func WithDownloader(d Downloader) Option {
	return func(p *Page) { p.download = d }
}

// WithClock overrides the time used for export file names.
func WithClock(now func() time.Time) Option {
	return func(p *Page) { p.now = now }
}

// Page owns the tables bound on one document. Every event handler and every
// Table method runs under the page lock, one at a time.
type Page struct {
	mu       sync.Mutex
	doc      *dom.Document
	tables   map[string]*Table
	download Downloader
	now      func() time.Time
}

// NewPage wraps doc.
func NewPage(doc *dom.Document, opts ...Option) *Page {
	p := &Page{
		doc:    doc,
		tables: make(map[string]*Table),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize binds a controller to #tableID: rows are captured, listeners
// are wired and the first page is rendered. Initializing an id again
// replaces the previous binding.
func (p *Page) Initialize(ctx context.Context, tableID string, opts tableview.Options) (*Table, error) {
	log := logger.FromContext(ctx).WithValues("table", tableID)

	p.mu.Lock()
	defer p.mu.Unlock()

	snap, err := Capture(p.doc, tableID)
	if err != nil {
		log.Error(err, "cannot initialize table")
		return nil, err
	}
	if old, ok := p.tables[tableID]; ok {
		old.unbind()
	}

	opts.Logger = log
	t := &Table{
		page:  p,
		id:    tableID,
		table: snap.Table,
		body:  snap.Body,
		log:   log,
	}
	t.ctrl = tableview.New(tableID, snap.Columns, snap.Records, opts)
	t.debounce = tableview.NewDebouncer(t.ctrl.Options().DebounceDelay)
	t.bind()
	t.ctrl.Attach(&view{t: t})
	t.ctrl.Render()

	p.tables[tableID] = t
	log.V(1).Info("table initialized", "rows", len(snap.Records), "columns", len(snap.Columns))
	return t, nil
}

// Table returns the binding for id.
func (p *Page) Table(id string) (*Table, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tables[id]
	return t, ok
}

// Tables returns the bound ids, sorted.
func (p *Page) Tables() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.tables))
	for id := range p.tables {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Dispatch delivers a DOM event to n, as a browser would on user input.
func (p *Page) Dispatch(n *html.Node, typ string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Dispatch(n, typ)
}

// Input sets the value of the control with the given id and dispatches
// typ on it ("input" for text fields, "change" for selects).
func (p *Page) Input(id, value, typ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.doc.ByID(id)
	if n == nil {
		return fmt.Errorf("control %q: %w", id, ErrElementNotFound)
	}
	dom.SetValue(n, value)
	p.doc.Dispatch(n, typ)
	return nil
}

// Click dispatches a click on the element with the given id.
func (p *Page) Click(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.doc.ByID(id)
	if n == nil {
		return fmt.Errorf("control %q: %w", id, ErrElementNotFound)
	}
	p.doc.Dispatch(n, "click")
	return nil
}

// Close cancels pending debounced searches of every table.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.tables {
		t.debounce.Cancel()
	}
}
