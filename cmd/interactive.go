package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/pacta-app/tableview/internal/tableview"
	"github.com/pacta-app/tableview/internal/ui/browser"
	"github.com/pacta-app/tableview/internal/watch"
	"github.com/pacta-app/tableview/pkg/logger"
)

type browserOptions struct {
	Title     string
	PageSizes []int
	ExportDir string
	NoColor   bool
	// Watch reloads the table whenever the source file changes.
	Watch bool
	Now   func() time.Time
}

// newController captures the source and replays req on a bare controller.
func newController(ctx context.Context, req viewRequest) (*tableview.Controller, error) {
	pred, err := compileWhere(req.Where)
	if err != nil {
		return nil, err
	}
	cols, records, err := capture(ctx, req.Source, req.Page)
	if err != nil {
		return nil, err
	}

	topts := req.Table
	topts.Logger = logger.FromContext(ctx).WithValues("table", req.Page.TableID)
	if req.PerPage > 0 {
		topts.ItemsPerPage = req.PerPage
	}
	ctrl := tableview.New(req.Page.TableID, cols, records, topts)
	if pred != nil {
		ctrl.SetPredicate(pred)
	}
	if req.Search != "" {
		ctrl.Search(req.Search)
	}
	for _, f := range req.Filters {
		ctrl.SetFilter(f.Column, f.Value)
	}
	if len(req.Filters) > 0 || pred != nil {
		ctrl.ApplyFilters()
	}
	if req.Sort != "" {
		ctrl.SetSort(req.Sort, "", req.Dir)
	}
	if req.PageNum > 1 {
		ctrl.GoToPage(req.PageNum)
	}
	return ctrl, nil
}

func runInteractive(ctx context.Context, req viewRequest, o browserOptions) error {
	log := logger.FromContext(ctx)

	ctrl, err := newController(ctx, req)
	if err != nil {
		return err
	}

	fromFile := req.Source.Path != "" && req.Source.Path != "-"
	var reload func() ([]*tableview.Record, error)
	if fromFile {
		reload = func() ([]*tableview.Record, error) {
			_, records, err := capture(ctx, req.Source, req.Page)
			return records, err
		}
	}

	m := browser.New(ctrl, browser.Options{
		Title:     o.Title,
		PageSizes: o.PageSizes,
		ExportDir: o.ExportDir,
		NoColor:   o.NoColor,
		Reload:    reload,
		Now:       o.Now,
		Logger:    *log,
	})

	var changes <-chan struct{}
	if o.Watch {
		if !fromFile {
			return errors.New("--watch needs a file argument")
		}
		w, err := watch.New(req.Source.Path, watch.DefaultDebounce)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			w.Stop()
			return err
		}
		defer w.Stop()
		changes = w.Changes()
	}

	opts, cleanup := getProgramOptions()
	defer cleanup()
	return browser.Run(ctx, m, changes, opts...)
}
