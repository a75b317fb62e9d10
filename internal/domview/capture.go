// Package domview binds table controllers to a headless DOM page.
//
// Every element is located by naming convention from the table id T:
//
//	#T                    table (thead th.sortable[data-column][data-type], tbody tr)
//	#search-T             search input
//	#filters-T            panel holding .filter-select / .filter-date controls
//	#items-per-page-T     page size select
//	#prev-T, #next-T      page buttons
//	#page-numbers-T       container for numbered page buttons
//	#pagination-info-T    summary text
//	#loading-T, #empty-T, #table-container-T
//	#toggle-filters-T, #clear-filters-T, #export-T, #refresh-T
//
// Only the table element is required.
package domview

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/pacta-app/tableview/internal/dom"
	"github.com/pacta-app/tableview/internal/tableview"
)

// ErrElementNotFound is returned when the table element is missing.
var ErrElementNotFound = errors.New("element not found")

// Element id prefixes.
const (
	SearchPrefix         = "search-"
	FiltersPrefix        = "filters-"
	ItemsPerPagePrefix   = "items-per-page-"
	PrevPrefix           = "prev-"
	NextPrefix           = "next-"
	PageNumbersPrefix    = "page-numbers-"
	PaginationInfoPrefix = "pagination-info-"
	LoadingPrefix        = "loading-"
	EmptyPrefix          = "empty-"
	ContainerPrefix      = "table-container-"
	ToggleFiltersPrefix  = "toggle-filters-"
	ClearFiltersPrefix   = "clear-filters-"
	ExportPrefix         = "export-"
	RefreshPrefix        = "refresh-"
)

// Class names used by the contract.
const (
	ClassSortable    = "sortable"
	ClassEmptyRow    = "empty-row"
	ClassFilter      = "filter-select"
	ClassFilterDate  = "filter-date"
	ClassPageNumber  = "page-number"
	ClassActive      = "active"
	ClassSortedAsc   = "sorted-asc"
	ClassSortedDesc  = "sorted-desc"
	DefaultColPrefix = "col_"
)

// Snapshot is what Capture reads from a table element.
type Snapshot struct {
	Table   *html.Node
	Body    *html.Node
	Columns []tableview.Column
	Records []*tableview.Record
}

// Capture indexes the header and body rows of #tableID. Record.Ref holds the
// row's *html.Node.
func Capture(doc *dom.Document, tableID string) (*Snapshot, error) {
	table := doc.ByID(tableID)
	if table == nil {
		return nil, fmt.Errorf("table %q: %w", tableID, ErrElementNotFound)
	}
	s := &Snapshot{Table: table}

	if thead := dom.Find(table, dom.Tag("thead")); thead != nil {
		for i, th := range dom.FindAll(thead, dom.Tag("th")) {
			key := dom.Data(th, "column")
			if key == "" {
				key = fmt.Sprintf("%s%d", DefaultColPrefix, i)
			}
			s.Columns = append(s.Columns, tableview.Column{
				Key:      key,
				Header:   strings.TrimSpace(dom.Text(th)),
				Type:     tableview.ParseValueType(dom.Data(th, "type")),
				Sortable: dom.HasClass(th, ClassSortable) && dom.HasAttr(th, "data-column"),
			})
		}
	}

	s.Body = dom.Find(table, dom.Tag("tbody"))
	if s.Body == nil {
		return s, nil
	}
	for _, tr := range dom.FindAll(s.Body, dom.All(dom.Tag("tr"), dom.Not(dom.Class(ClassEmptyRow)))) {
		cells := dom.FindAll(tr, dom.Tag("td"))
		keys := make([]string, len(cells))
		values := make([]string, len(cells))
		for i, td := range cells {
			key := dom.Data(td, "column")
			if key == "" {
				key = fmt.Sprintf("%s%d", DefaultColPrefix, i)
			}
			keys[i] = key
			values[i] = dom.Text(td)
		}
		s.Records = append(s.Records, tableview.NewRecord(dom.Data(tr, "id"), keys, values, tr))
	}
	return s, nil
}
