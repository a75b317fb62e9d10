package tableview

import (
	"time"

	"github.com/go-logr/logr"
)

// ValueType controls how cell text is coerced before comparison.
type ValueType string

const (
	TypeText     ValueType = "text"
	TypeNumber   ValueType = "number"
	TypeCurrency ValueType = "currency"
	TypeDate     ValueType = "date"
)

// ParseValueType maps a data-type attribute to a ValueType. Unknown values
// fall back to text.
func ParseValueType(s string) ValueType {
	switch ValueType(s) {
	case TypeNumber, TypeCurrency, TypeDate:
		return ValueType(s)
	default:
		return TypeText
	}
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts asc/ascending and desc/descending; anything else is
// ascending.
func ParseDirection(s string) Direction {
	switch s {
	case "desc", "descending":
		return Desc
	default:
		return Asc
	}
}

func (d Direction) flip() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// Config is the mutable per-table configuration.
type Config struct {
	ItemsPerPage  int
	Sortable      bool
	Searchable    bool
	Filterable    bool
	CurrentPage   int
	SortColumn    string
	SortDirection Direction
	SortType      ValueType
}

// Options configure a Controller. Config carries the initial page and sort
// state; the rest are tuning knobs.
type Options struct {
	Config

	// DebounceDelay coalesces search keystrokes.
	DebounceDelay time.Duration
	// RenderDelay is how long front-ends may keep the loading indicator up.
	RenderDelay time.Duration
	// PageWindow is the maximum number of page buttons.
	PageWindow int
	// ActionsMarkers identify controls columns (by header text) that are
	// never exported.
	ActionsMarkers []string
	// DateLayouts are tried in order when coercing date cells.
	DateLayouts []string
	// SummaryFormat is a text/template over Page.
	SummaryFormat string

	Logger logr.Logger
}

const (
	DefaultItemsPerPage  = 10
	DefaultPageWindow    = 5
	DefaultDebounceDelay = 300 * time.Millisecond
	DefaultRenderDelay   = 100 * time.Millisecond
	DefaultSummaryFormat = "Showing {{.Start}}-{{.End}} of {{.Total}}"
)

// DefaultDateLayouts covers ISO dates plus the day-first formats used by the
// contract screens.
var DefaultDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// DefaultOptions returns the options every table starts from.
func DefaultOptions() Options {
	return Options{
		Config: Config{
			ItemsPerPage:  DefaultItemsPerPage,
			Sortable:      true,
			Searchable:    true,
			Filterable:    true,
			CurrentPage:   1,
			SortDirection: Asc,
		},
		DebounceDelay:  DefaultDebounceDelay,
		RenderDelay:    DefaultRenderDelay,
		PageWindow:     DefaultPageWindow,
		ActionsMarkers: []string{"accion", "actions"},
		DateLayouts:    append([]string(nil), DefaultDateLayouts...),
		SummaryFormat:  DefaultSummaryFormat,
	}
}

func (o Options) normalized() Options {
	if o.ItemsPerPage <= 0 {
		o.ItemsPerPage = DefaultItemsPerPage
	}
	if o.CurrentPage < 1 {
		o.CurrentPage = 1
	}
	if o.SortDirection == "" {
		o.SortDirection = Asc
	}
	if o.PageWindow <= 0 {
		o.PageWindow = DefaultPageWindow
	}
	if o.DebounceDelay < 0 {
		o.DebounceDelay = 0
	}
	if len(o.DateLayouts) == 0 {
		o.DateLayouts = append([]string(nil), DefaultDateLayouts...)
	}
	if o.SummaryFormat == "" {
		o.SummaryFormat = DefaultSummaryFormat
	}
	return o
}
