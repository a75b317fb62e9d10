package domview

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/pacta-app/tableview/internal/dom"
	"github.com/pacta-app/tableview/internal/tableview"
)

// view renders controller pages into the bound document.
type view struct {
	t *Table
}

func (v *view) ShowLoading() {
	t := v.t
	setDisplay(t.el(LoadingPrefix), "flex")
	setDisplay(t.el(ContainerPrefix), "none")
	setDisplay(t.el(EmptyPrefix), "none")
}

func (v *view) Render(p tableview.Page) {
	t := v.t
	setDisplay(t.el(LoadingPrefix), "none")
	if p.Empty {
		setDisplay(t.el(EmptyPrefix), "flex")
		setDisplay(t.el(ContainerPrefix), "none")
	} else {
		setDisplay(t.el(ContainerPrefix), "block")
	}

	if t.body != nil {
		dom.RemoveChildren(t.body)
		t.rendered = make([]*html.Node, 0, len(p.Rows))
		for _, r := range p.Rows {
			if n, ok := r.Ref.(*html.Node); ok {
				dom.AppendChild(t.body, n)
				t.rendered = append(t.rendered, n)
			}
		}
	} else {
		t.log.Info("table body not found, rows not rendered")
	}

	if info := t.el(PaginationInfoPrefix); info != nil {
		dom.SetText(info, p.Summary)
	}
	v.renderPageNumbers(p)
	if prev := t.el(PrevPrefix); prev != nil {
		dom.SetDisabled(prev, p.PrevDisabled)
	}
	if next := t.el(NextPrefix); next != nil {
		dom.SetDisabled(next, p.NextDisabled)
	}
	if sel := t.el(ItemsPerPagePrefix); sel != nil {
		dom.SetValue(sel, strconv.Itoa(p.ItemsPerPage))
	}
	v.renderSortIndicators(p)
}

func (v *view) renderPageNumbers(p tableview.Page) {
	t := v.t
	container := t.el(PageNumbersPrefix)
	if container == nil {
		return
	}
	for _, old := range dom.Children(container, nil) {
		t.page.doc.RemoveEventListeners(old)
	}
	dom.RemoveChildren(container)

	for _, b := range p.Buttons {
		class := ClassPageNumber
		if b.Active {
			class += " " + ClassActive
		}
		btn := dom.CreateElement("button", "type", "button", "class", class, "data-page", strconv.Itoa(b.Number))
		dom.SetText(btn, strconv.Itoa(b.Number))
		n := b.Number
		t.page.doc.AddEventListener(btn, "click", func(dom.Event) { t.ctrl.GoToPage(n) })
		dom.AppendChild(container, btn)
	}
}

func (v *view) renderSortIndicators(p tableview.Page) {
	for _, th := range dom.FindAll(v.t.table, dom.All(dom.Tag("th"), dom.Class(ClassSortable))) {
		dom.RemoveClass(th, ClassSortedAsc, ClassSortedDesc)
		if p.SortColumn == "" || dom.Data(th, "column") != p.SortColumn {
			continue
		}
		if p.SortDirection == tableview.Desc {
			dom.AddClass(th, ClassSortedDesc)
		} else {
			dom.AddClass(th, ClassSortedAsc)
		}
	}
}

func setDisplay(n *html.Node, display string) {
	if n != nil {
		dom.SetStyle(n, "display", display)
	}
}
