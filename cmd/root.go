// Package cmd is the tableview command line: it loads a table from a file or
// stdin and sorts, searches, filters, pages and exports it, prints it, opens
// it in a terminal browser or serves it as a page.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pacta-app/tableview/internal/config"
	"github.com/pacta-app/tableview/internal/limiter"
	"github.com/pacta-app/tableview/pkg/loader"
	"github.com/pacta-app/tableview/pkg/logger"
	"github.com/pacta-app/tableview/pkg/settings"
)

// errShowHelp is returned by resolveSource when there is no input at all.
var errShowHelp = errors.New("no input provided")

var sourceFormats = []string{
	string(loader.FormatHTML), string(loader.FormatCSV), string(loader.FormatJSON),
	string(loader.FormatYAML), string(loader.FormatTOML), string(loader.FormatMarkdown),
	string(loader.FormatSQLite),
}

// rootOptions holds the flags of one invocation and the config they resolve
// against.
type rootOptions struct {
	configFile string
	debug      bool
	noColor    bool

	tableID     string
	title       string
	format      string
	sqliteQuery string
	where       string

	search      string
	filters     filterFlag
	sort        string
	page        int
	perPage     int
	output      string
	width       int
	rowNumbers  bool
	limit       limiter.Config
	export      bool
	exportDir   string
	interactive bool
	watch       bool

	cfg config.Config
	now func() time.Time
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	run := settings.NewCliParams()
	run.ConfigFile = config.ResolvePath(o.configFile)
	if o.debug {
		run.MinLogLevel = -1
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	lgr := logger.Get(run.MinLogLevel).WithValues(logger.CommandKey, cmd.Name())
	ctx = logger.WithLogger(ctx, &lgr)

	cfg, err := config.Load(run.ConfigFile)
	if err != nil {
		return err
	}
	o.cfg = cfg
	run.NoColor = o.noColor || cfg.UI.NoColor
	run.Width = o.width
	run.Interactive = o.interactive
	o.noColor = run.NoColor
	if o.exportDir == "" {
		o.exportDir = cfg.Export.Dir
	}
	if o.now == nil {
		o.now = time.Now
	}

	lgr.V(1).Info("configuration loaded", "path", run.ConfigFile)
	cmd.SetContext(settings.IntoContext(ctx, run))
	return nil
}

// resolveSource reads the file argument, or stdin when it is "-" or piped.
func (o *rootOptions) resolveSource(cmd *cobra.Command, args []string) (loader.Source, error) {
	if o.format != "" && !slices.Contains(sourceFormats, o.format) {
		return loader.Source{}, fmt.Errorf("invalid --format %q (use %s)", o.format, strings.Join(sourceFormats, "|"))
	}
	src := loader.Source{Format: loader.Format(o.format), Query: o.sqliteQuery}
	if len(args) == 1 && args[0] != "-" {
		src.Path = args[0]
		return src, nil
	}
	if len(args) == 0 && !stdinIsPiped() {
		return src, errShowHelp
	}
	if src.Format == loader.FormatSQLite {
		return src, errors.New("sqlite sources must be read from a file")
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return src, fmt.Errorf("reading stdin: %w", err)
	}
	src.Path = "-"
	src.Data = data
	return src, nil
}

func (o *rootOptions) pageOptions() loader.PageOptions {
	t := o.cfg.Table
	id := o.tableID
	if id == "" {
		id = loader.DefaultTableID
	}
	return loader.PageOptions{
		TableID:      id,
		Title:        o.title,
		PageSizes:    slices.Clone(t.PageSizes),
		ItemsPerPage: t.ItemsPerPage,
		FilterLimit:  t.FilterLimit,
		Filters:      o.filters.Map(),
	}
}

func (o *rootOptions) request(src loader.Source) (viewRequest, error) {
	col, dir, err := parseSort(o.sort)
	if err != nil {
		return viewRequest{}, err
	}
	if o.perPage < 0 {
		return viewRequest{}, fmt.Errorf("invalid --per-page %d", o.perPage)
	}
	req := viewRequest{
		Source:  src,
		Page:    o.pageOptions(),
		Table:   o.cfg.TableOptions(),
		Where:   o.where,
		Search:  strings.TrimSpace(o.search),
		Filters: o.filters.Pairs(),
		Sort:    col,
		Dir:     dir,
		PageNum: o.page,
		PerPage: o.perPage,
		Now:     o.now,
	}
	if o.export {
		req.ExportDir = o.exportDir
	}
	return req, nil
}

func (o *rootOptions) run(cmd *cobra.Command, args []string) error {
	if err := validateOutput(o.output); err != nil {
		return err
	}
	if err := o.limit.Validate(); err != nil {
		return err
	}
	src, err := o.resolveSource(cmd, args)
	if errors.Is(err, errShowHelp) {
		return cmd.Help()
	}
	if err != nil {
		return err
	}
	req, err := o.request(src)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if o.interactive {
		return runInteractive(ctx, req, browserOptions{
			Title:     o.title,
			PageSizes: o.cfg.Table.PageSizes,
			ExportDir: o.exportDir,
			NoColor:   o.noColor,
			Watch:     o.watch,
			Now:       o.now,
		})
	}
	if o.watch {
		return errors.New("--watch needs --interactive")
	}

	s, err := openSession(ctx, req)
	if err != nil {
		return err
	}
	defer s.Close()

	if o.export {
		if err := exportFile(cmd.ErrOrStderr(), s, o.exportDir); err != nil {
			return err
		}
	}
	return writeOutput(cmd.OutOrStdout(), s, outputOptions{
		Format:     o.output,
		NoColor:    o.noColor,
		Width:      detectWidth(o.width),
		RowNumbers: o.rowNumbers,
		Limit:      o.limit,
	})
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   settings.CliBinaryName + " [file]",
		Short: "Sort, search, filter, page and export tables",
		Long: `tableview loads a table from an HTML page, CSV, JSON, YAML, TOML, Markdown
or SQLite source and runs the table controls over it: column sort, free-text
search, column filters, pagination and CSV export.

Results are printed once (-o), browsed in the terminal (-i) or served as a
page that works without scripts (serve).`,
		Example: `  tableview clientes.csv
  tableview contratos.html --table-id contratos --search "pérez" --sort monto:desc
  tableview clientes.csv --filter estado=Activo --where 'amount(row.saldo) > 100.0' -o json
  tableview clientes.db --sqlite-query 'SELECT * FROM clientes' --export
  cat clientes.csv | tableview -i`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           versionString(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return o.setup(cmd) },
		RunE:              o.run,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.configFile, "config-file", "", "path to a YAML config file (default $XDG_CONFIG_HOME/tableview/config.yaml)")
	pf.BoolVar(&o.debug, "debug", false, "enable debug logging on stderr")
	pf.BoolVar(&o.noColor, "no-color", false, "disable color output")
	pf.StringVar(&o.tableID, "table-id", loader.DefaultTableID, "id of the table element to bind")
	pf.StringVar(&o.title, "title", "", "page and browser title")
	pf.StringVar(&o.format, "format", "", "source format: "+strings.Join(sourceFormats, "|")+" (default from extension or content)")
	pf.StringVar(&o.sqliteQuery, "sqlite-query", "", "query selecting the rows of a SQLite source (default: first table)")
	pf.StringVar(&o.where, "where", "", "CEL row predicate over row.<column> and id, e.g. 'num(row.edad) >= 18.0'")

	f := cmd.Flags()
	f.StringVar(&o.search, "search", "", "case-insensitive free-text search")
	f.Var(&o.filters, "filter", "column filter column=value (repeatable)")
	f.StringVar(&o.sort, "sort", "", "sort column, optionally :asc or :desc")
	f.IntVar(&o.page, "page", 1, "page to show (clamped to the last page)")
	f.IntVar(&o.perPage, "per-page", 0, "rows per page (default from config)")
	f.StringVarP(&o.output, "output", "o", outputTable, "output format: "+strings.Join(outputFormats, "|"))
	f.IntVar(&o.width, "width", 0, "output width in columns (default terminal width)")
	f.BoolVar(&o.rowNumbers, "row-numbers", false, "number rows in table output")
	f.IntVar(&o.limit.Limit, "limit", 0, "keep at most N rows in csv, json and yaml output")
	f.IntVar(&o.limit.Offset, "offset", 0, "skip the first N rows in csv, json and yaml output")
	f.IntVar(&o.limit.Tail, "tail", 0, "keep the last N rows in csv, json and yaml output (excludes --limit)")
	f.BoolVar(&o.export, "export", false, "write the matching rows to <table>_export_<date>.csv")
	f.StringVar(&o.exportDir, "export-dir", "", "directory for exports (default from config)")
	f.BoolVarP(&o.interactive, "interactive", "i", false, "browse the table in the terminal")
	f.BoolVar(&o.watch, "watch", false, "reload when the source file changes (with -i)")

	_ = cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(outputFormats, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(sourceFormats, cobra.ShellCompDirectiveNoFileComp))

	cmd.AddCommand(newVersionCmd(), newConfigCmd(o), newServeCmd(o), newFunctionsCmd())
	return cmd
}

// Execute runs the command line until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}
