// Package server serves a source as a table page without scripts: every
// control submits a GET form, and the request replays that state through a
// fresh DOM-bound controller before rendering.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/pacta-app/tableview/internal/dom"
	"github.com/pacta-app/tableview/internal/domview"
	"github.com/pacta-app/tableview/internal/tableview"
	"github.com/pacta-app/tableview/pkg/loader"
	"github.com/pacta-app/tableview/pkg/logger"
)

// ExportPath is the CSV download endpoint.
const ExportPath = "/export.csv"

const shutdownTimeout = 2 * time.Second

// Options configure a Server.
type Options struct {
	Source loader.Source
	// Page controls how non-HTML sources are rendered. Form mode is forced.
	Page  loader.PageOptions
	Table tableview.Options
	// Predicate is ANDed with search and filters on every request.
	Predicate tableview.Predicate
	Now       func() time.Time
	Logger    logr.Logger
}

// Server renders the table page per request. It holds no table state.
type Server struct {
	opts Options
	log  logr.Logger
}

// New creates a server.
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Page.TableID == "" {
		opts.Page.TableID = loader.DefaultTableID
	}
	return &Server{opts: opts, log: opts.Logger.WithName("server")}
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET "+ExportPath, s.handleExport)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down. ready,
// when set, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	if ready != nil {
		ready(ln.Addr())
	}
	s.log.Info("serving", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	st := parseState(r.URL.Query())
	doc, t, cleanup, err := s.build(r.Context(), st)
	if err != nil {
		s.fail(w, err)
		return
	}
	defer cleanup()

	s.decorate(doc, t, st)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := doc.Render(w); err != nil {
		s.log.Error(err, "writing page")
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	st := parseState(r.URL.Query())
	_, t, cleanup, err := s.build(r.Context(), st)
	if err != nil {
		s.fail(w, err)
		return
	}
	defer cleanup()

	name, data, err := t.Export()
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		s.log.Error(err, "writing export")
	}
}

// build loads the source and replays st on a new binding.
func (s *Server) build(ctx context.Context, st viewState) (*dom.Document, *domview.Table, func(), error) {
	log := s.log.WithValues("table", s.opts.Page.TableID)
	ctx = logger.WithLogger(ctx, &log)

	popts := s.opts.Page
	popts.Form = true
	popts.Action = "/"
	popts.Search = st.Search
	popts.Filters = st.Filters
	popts.Page = st.Page
	popts.Sort = st.Sort
	popts.Dir = st.Dir
	if st.PerPage > 0 {
		popts.ItemsPerPage = st.PerPage
	}
	doc, err := loader.LoadDocument(ctx, s.opts.Source, popts)
	if err != nil {
		return nil, nil, nil, err
	}

	topts := s.opts.Table
	topts.DebounceDelay = 0
	if st.PerPage > 0 {
		topts.ItemsPerPage = st.PerPage
	}
	page := domview.NewPage(doc, domview.WithClock(s.opts.Now))
	t, err := page.Initialize(ctx, popts.TableID, topts)
	if err != nil {
		return nil, nil, nil, err
	}

	if s.opts.Predicate != nil {
		t.SetPredicate(s.opts.Predicate)
	}
	if st.Search != "" {
		t.Search(st.Search)
	}
	for col, val := range st.Filters {
		t.Filter(col, val)
	}
	if st.Sort != "" {
		t.SetSort(st.Sort, "", tableview.ParseDirection(st.Dir))
	}
	if st.Page > 1 {
		t.GoToPage(st.Page)
	}
	switch st.Nav {
	case navPrev:
		t.ChangePage(tableview.PagePrev)
	case navNext:
		t.ChangePage(tableview.PageNext)
	}
	log.V(1).Info("page built", "page", t.Page().Number, "rows", t.Page().Total)
	return doc, t, page.Close, nil
}

// decorate turns the script-driven controls into form submissions and
// links that carry the current state.
func (s *Server) decorate(doc *dom.Document, t *domview.Table, st viewState) {
	id := t.ID()
	p := t.Page()
	cur := st
	cur.Page = p.Number
	cur.Sort = p.SortColumn
	cur.Dir = string(p.SortDirection)
	cur.Nav = ""

	if table := doc.ByID(id); table != nil {
		for _, th := range dom.FindAll(table, dom.All(dom.Tag("th"), dom.Class(domview.ClassSortable))) {
			key := dom.Data(th, "column")
			if key == "" {
				continue
			}
			next := cur
			next.Sort = key
			next.Dir = string(tableview.Asc)
			if p.SortColumn == key && p.SortDirection == tableview.Asc {
				next.Dir = string(tableview.Desc)
			}
			next.Page = 1
			label := strings.TrimSpace(dom.Text(th))
			dom.RemoveChildren(th)
			a := dom.CreateElement("a", "href", "?"+next.values().Encode())
			dom.SetText(a, label)
			dom.AppendChild(th, a)
		}
	}

	if nums := doc.ByID(domview.PageNumbersPrefix + id); nums != nil {
		for _, btn := range dom.FindAll(nums, dom.Class(domview.ClassPageNumber)) {
			dom.SetAttr(btn, "type", "submit")
			dom.SetAttr(btn, "name", paramPage)
			dom.SetAttr(btn, "value", dom.Data(btn, "page"))
		}
	}

	form := doc.ByID("form-" + id)
	if form != nil {
		for _, in := range dom.FindAll(form, dom.Tag("input")) {
			switch dom.Attr(in, "name") {
			case paramPage:
				dom.SetValue(in, strconv.Itoa(cur.Page))
			case paramSort:
				dom.SetValue(in, cur.Sort)
			case paramDir:
				dom.SetValue(in, cur.Dir)
			}
		}
		show := "0"
		if st.ShowFilters {
			show = "1"
		}
		dom.AppendChild(form, dom.CreateElement("input", "type", "hidden", "name", paramShowFilters, "value", show))
	}

	if btn := doc.ByID(domview.ExportPrefix + id); btn != nil && form != nil {
		dom.SetAttr(btn, "type", "submit")
		dom.SetAttr(btn, "formaction", ExportPath)
	}
	if btn := doc.ByID(domview.RefreshPrefix + id); btn != nil && form != nil {
		dom.SetAttr(btn, "type", "submit")
		dom.SetAttr(btn, "name", paramNav)
		dom.SetAttr(btn, "value", navRefresh)
	}
	if btn := doc.ByID(domview.ToggleFiltersPrefix + id); btn != nil && form != nil {
		toggled := "1"
		if st.ShowFilters {
			toggled = "0"
		}
		dom.SetAttr(btn, "type", "submit")
		dom.SetAttr(btn, "name", paramShowFilters)
		dom.SetAttr(btn, "value", toggled)
	}
	if panel := doc.ByID(domview.FiltersPrefix + id); panel != nil {
		display := "none"
		if st.ShowFilters || len(st.Filters) > 0 {
			display = "block"
		}
		dom.SetStyle(panel, "display", display)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domview.ErrElementNotFound), errors.Is(err, loader.ErrNoTable):
		status = http.StatusNotFound
	case errors.Is(err, loader.ErrUnsupportedSource):
		status = http.StatusUnprocessableEntity
	}
	s.log.Error(err, "request failed", "status", status)
	http.Error(w, http.StatusText(status), status)
}
