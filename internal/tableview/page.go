package tableview

import (
	"strings"
)

// PageButton is one numbered pagination button.
type PageButton struct {
	Number int
	Active bool
}

// Page is everything a view needs to draw one render of a table.
type Page struct {
	TableID string
	// Rows is the visible slice of Current, in order.
	Rows []*Record

	Number       int
	TotalPages   int
	ItemsPerPage int

	// Start and End are 1-based and inclusive; both are 0 when Total is 0.
	Start int
	End   int
	Total int

	Summary string
	Buttons []PageButton

	PrevDisabled bool
	NextDisabled bool
	Empty        bool

	SortColumn    string
	SortDirection Direction
}

// Page computes the current page without notifying views.
func (c *Controller) Page() Page {
	total := len(c.current)
	pages := c.totalPages()
	num := clampPage(c.cfg.CurrentPage, pages)
	per := c.cfg.ItemsPerPage

	start := (num - 1) * per
	end := min(start+per, total)
	if start > total {
		start = total
	}

	p := Page{
		TableID:       c.id,
		Rows:          append([]*Record(nil), c.current[start:end]...),
		Number:        num,
		TotalPages:    pages,
		ItemsPerPage:  per,
		Total:         total,
		PrevDisabled:  num <= 1,
		NextDisabled:  num >= pages,
		Empty:         total == 0,
		SortColumn:    c.cfg.SortColumn,
		SortDirection: c.cfg.SortDirection,
	}
	if total > 0 {
		p.Start = start + 1
		p.End = end
	}
	for _, n := range pageWindow(num, pages, c.opts.PageWindow) {
		p.Buttons = append(p.Buttons, PageButton{Number: n, Active: n == num})
	}
	p.Summary = c.summaryText(p)
	return p
}

func (c *Controller) summaryText(p Page) string {
	var b strings.Builder
	if err := c.summary.Execute(&b, p); err != nil {
		c.log.Error(err, "summary template failed")
		return ""
	}
	return b.String()
}

// totalPages is ceil(n/per), and at least 1.
func totalPages(n, per int) int {
	if per <= 0 {
		per = DefaultItemsPerPage
	}
	if n <= 0 {
		return 1
	}
	return (n + per - 1) / per
}

func clampPage(n, pages int) int {
	if n < 1 {
		return 1
	}
	if pages < 1 {
		pages = 1
	}
	if n > pages {
		return pages
	}
	return n
}

// pageWindow returns at most size consecutive page numbers around current,
// shifted to stay within 1..total.
func pageWindow(current, total, size int) []int {
	if total < 1 || size < 1 {
		return nil
	}
	start := max(1, current-size/2)
	end := min(total, start+size-1)
	if end-start < size-1 {
		start = max(1, end-size+1)
	}
	out := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		out = append(out, n)
	}
	return out
}
