package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pacta-app/tableview/internal/cel"
	"github.com/pacta-app/tableview/internal/dom"
	"github.com/pacta-app/tableview/internal/domview"
	"github.com/pacta-app/tableview/internal/tableview"
	"github.com/pacta-app/tableview/pkg/loader"
	"github.com/pacta-app/tableview/pkg/logger"
)

// viewRequest is the table state asked for on the command line.
type viewRequest struct {
	Source  loader.Source
	Page    loader.PageOptions
	Table   tableview.Options
	Where   string
	Search  string
	Filters []tableview.Filter
	Sort    string
	Dir     tableview.Direction
	PageNum int
	PerPage int
	Now     func() time.Time
	// ExportDir receives the file written by Export.
	ExportDir string
}

// session is a loaded page with its table bound.
type session struct {
	doc   *dom.Document
	page  *domview.Page
	table *domview.Table
}

func (s *session) Close() { s.page.Close() }

// compileWhere turns a --where expression into a row predicate. An empty
// expression yields nil.
func compileWhere(expr string) (tableview.Predicate, error) {
	if expr == "" {
		return nil, nil
	}
	ev, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}
	p, err := ev.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid --where: %w", err)
	}
	return p, nil
}

// openSession loads the source, binds the table and replays req on it.
func openSession(ctx context.Context, req viewRequest) (*session, error) {
	log := logger.FromContext(ctx).WithValues("table", req.Page.TableID)

	pred, err := compileWhere(req.Where)
	if err != nil {
		return nil, err
	}

	popts := req.Page
	if req.PerPage > 0 {
		popts.ItemsPerPage = req.PerPage
	}
	doc, err := loader.LoadDocument(ctx, req.Source, popts)
	if err != nil {
		return nil, err
	}

	topts := req.Table
	topts.DebounceDelay = 0
	if req.PerPage > 0 {
		topts.ItemsPerPage = req.PerPage
	}
	var pageOpts []domview.Option
	if req.Now != nil {
		pageOpts = append(pageOpts, domview.WithClock(req.Now))
	}
	if req.ExportDir != "" {
		pageOpts = append(pageOpts, domview.WithDownloader(saveTo(req.ExportDir)))
	}
	page := domview.NewPage(doc, pageOpts...)
	t, err := page.Initialize(ctx, popts.TableID, topts)
	if err != nil {
		return nil, err
	}

	if pred != nil {
		t.SetPredicate(pred)
	}
	if req.Search != "" {
		t.Search(req.Search)
	}
	for _, f := range req.Filters {
		t.Filter(f.Column, f.Value)
	}
	if req.Sort != "" {
		t.SetSort(req.Sort, "", req.Dir)
	}
	if req.PageNum > 1 {
		t.GoToPage(req.PageNum)
	}
	p := t.Page()
	log.V(1).Info("table ready", "page", p.Number, "pages", p.TotalPages, "rows", p.Total)
	return &session{doc: doc, page: page, table: t}, nil
}

// capture loads the source and returns its columns and rows without binding
// a page, for the terminal browser.
func capture(ctx context.Context, src loader.Source, popts loader.PageOptions) ([]tableview.Column, []*tableview.Record, error) {
	doc, err := loader.LoadDocument(ctx, src, popts)
	if err != nil {
		return nil, nil, err
	}
	snap, err := domview.Capture(doc, popts.TableID)
	if err != nil {
		return nil, nil, err
	}
	return snap.Columns, snap.Records, nil
}

// saveTo writes downloads into dir.
func saveTo(dir string) domview.Downloader {
	return func(name string, data []byte) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating export dir: %w", err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		return nil
	}
}
