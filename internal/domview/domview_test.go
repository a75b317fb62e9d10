package domview

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/pacta-app/tableview/internal/dom"
	"github.com/pacta-app/tableview/internal/tableview"
)

var sampleClients = []struct{ nombre, email, estado, monto string }{
	{"Ana, B.", "ana@x.com", "Activo", "$1,200"},
	{"Luis", "luis@x.com", "Inactivo", "$300"},
	{"Beto", "beto@x.com", "Activo", "$45"},
	{"Marta", "marta@x.com", "Activo", "$9"},
	{"Carla", "carla@x.com", "Inactivo", "$10"},
	{"Dario", "dario@x.com", "Activo", "$20"},
	{"Elena", "elena@x.com", "Activo", "$30"},
	{"Fabio", "fabio@x.com", "Inactivo", "$40"},
	{"Gema", "gema@x.com", "Activo", "$50"},
	{"Hugo", "hugo@x.com", "Activo", "$60"},
	{"Ines", "ines@x.com", "Inactivo", "$70"},
	{"Juan", "juan@x.com", "Activo", "$80"},
}

func rowHTML(id int, nombre, email, estado, monto string) string {
	return fmt.Sprintf(`<tr data-id="%d"><td data-column="nombre">%s</td><td data-column="email">%s</td>`+
		`<td data-column="estado">%s</td><td data-column="monto">%s</td><td><button>Editar</button></td></tr>`,
		id, html.EscapeString(nombre), email, estado, monto)
}

func tableHTML(id string) string {
	var rows strings.Builder
	for i, c := range sampleClients {
		rows.WriteString(rowHTML(i+1, c.nombre, c.email, c.estado, c.monto))
	}
	return fmt.Sprintf(`
<input id="search-%[1]s" type="text">
<button id="toggle-filters-%[1]s">Filtros</button>
<div id="filters-%[1]s" style="display: none">
  <select class="filter-select" data-column="estado">
    <option value="">Todos</option><option value="Activo">Activo</option><option value="Inactivo">Inactivo</option>
  </select>
  <input class="filter-date" data-column="inicio" type="date">
  <button id="clear-filters-%[1]s">Limpiar</button>
</div>
<div id="loading-%[1]s" style="display: none">Cargando</div>
<div id="empty-%[1]s" style="display: none">Sin resultados</div>
<div id="table-container-%[1]s">
<table id="%[1]s">
  <thead><tr>
    <th class="sortable" data-column="nombre" data-type="text">Nombre</th>
    <th class="sortable" data-column="email" data-type="text">Email</th>
    <th class="sortable" data-column="estado" data-type="text">Estado</th>
    <th class="sortable" data-column="monto" data-type="currency">Monto</th>
    <th>Acciones</th>
  </tr></thead>
  <tbody>%[2]s<tr class="empty-row"><td colspan="5">Sin datos</td></tr></tbody>
</table>
</div>
<select id="items-per-page-%[1]s"><option value="10">10</option><option value="25">25</option><option value="x">x</option></select>
<button id="prev-%[1]s">Anterior</button>
<div id="page-numbers-%[1]s"></div>
<button id="next-%[1]s">Siguiente</button>
<span id="pagination-info-%[1]s"></span>
<button id="export-%[1]s">Exportar</button>
<button id="refresh-%[1]s">Refrescar</button>
`, id, rows.String())
}

type harness struct {
	page  *Page
	table *Table
	doc   *dom.Document
	files map[string][]byte
}

func newHarness(t *testing.T, opts tableview.Options, ids ...string) *harness {
	t.Helper()
	if len(ids) == 0 {
		ids = []string{"clientes"}
	}
	var body strings.Builder
	for _, id := range ids {
		body.WriteString(tableHTML(id))
	}
	doc, err := dom.ParseString("<!DOCTYPE html><html><body>" + body.String() + "</body></html>")
	require.NoError(t, err)

	h := &harness{doc: doc, files: map[string][]byte{}}
	h.page = NewPage(doc,
		WithDownloader(func(name string, data []byte) error {
			h.files[name] = data
			return nil
		}),
		WithClock(func() time.Time { return time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC) }),
	)
	t.Cleanup(h.page.Close)
	for _, id := range ids {
		tbl, err := h.page.Initialize(context.Background(), id, opts)
		require.NoError(t, err)
		if h.table == nil {
			h.table = tbl
		}
	}
	return h
}

func (h *harness) bodyIDs(tableID string) []string {
	tbody := dom.Find(h.doc.ByID(tableID), dom.Tag("tbody"))
	var out []string
	for _, tr := range dom.Children(tbody, dom.Tag("tr")) {
		out = append(out, dom.Data(tr, "id"))
	}
	return out
}

func (h *harness) text(id string) string {
	return strings.TrimSpace(dom.Text(h.doc.ByID(id)))
}

func (h *harness) header(tableID, column string) *html.Node {
	return dom.Find(h.doc.ByID(tableID), func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "th" && dom.Data(n, "column") == column
	})
}

func TestInitialize_MissingTable(t *testing.T) {
	doc, err := dom.ParseString(`<html><body><p>nada</p></body></html>`)
	require.NoError(t, err)
	p := NewPage(doc)

	tbl, err := p.Initialize(context.Background(), "clientes", tableview.DefaultOptions())
	require.ErrorIs(t, err, ErrElementNotFound)
	assert.Nil(t, tbl)
	assert.Empty(t, p.Tables())
}

func TestInitialize_RendersFirstPage(t *testing.T) {
	h := newHarness(t, tableview.DefaultOptions())

	st := h.table.State()
	assert.Len(t, st.Original, 12)
	assert.Len(t, st.Current, 12)

	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}, h.bodyIDs("clientes"))
	assert.Equal(t, "Showing 1-10 of 12", h.text("pagination-info-clientes"))
	assert.True(t, dom.Disabled(h.doc.ByID("prev-clientes")))
	assert.False(t, dom.Disabled(h.doc.ByID("next-clientes")))
	assert.Equal(t, "block", dom.Style(h.doc.ByID("table-container-clientes"), "display"))
	assert.Equal(t, "none", dom.Style(h.doc.ByID("loading-clientes"), "display"))

	buttons := dom.Children(h.doc.ByID("page-numbers-clientes"), nil)
	require.Len(t, buttons, 2)
	assert.True(t, dom.HasClass(buttons[0], ClassActive))
	assert.Equal(t, "2", dom.Data(buttons[1], "page"))

	cols := h.table.Columns()
	require.Len(t, cols, 5)
	assert.Equal(t, "col_4", cols[4].Key)
	assert.Equal(t, tableview.TypeCurrency, cols[3].Type)
	assert.False(t, cols[4].Sortable)
}

func TestHeaderClickSorts(t *testing.T) {
	h := newHarness(t, tableview.DefaultOptions())
	th := h.header("clientes", "monto")

	require.True(t, h.page.Dispatch(th, "click"))
	assert.Equal(t, []string{"4", "5", "6", "7", "8", "3", "9", "10", "11", "12"}, h.bodyIDs("clientes"))
	assert.True(t, dom.HasClass(th, ClassSortedAsc))

	h.page.Dispatch(th, "click")
	assert.Equal(t, "1", h.bodyIDs("clientes")[0])
	assert.True(t, dom.HasClass(th, ClassSortedDesc))
	assert.False(t, dom.HasClass(th, ClassSortedAsc))

	other := h.header("clientes", "nombre")
	h.page.Dispatch(other, "click")
	assert.False(t, dom.HasClass(th, ClassSortedDesc))
	assert.True(t, dom.HasClass(other, ClassSortedAsc))
	assert.Equal(t, tableview.Asc, h.table.State().Config.SortDirection)
}

func TestSearchInputIsDebounced(t *testing.T) {
	opts := tableview.DefaultOptions()
	opts.DebounceDelay = 20 * time.Millisecond
	h := newHarness(t, opts)

	for _, term := range []string{"m", "ma", "mar"} {
		require.NoError(t, h.page.Input("search-clientes", term, "input"))
	}
	assert.Len(t, h.table.State().Current, 12, "nothing runs before the delay")

	assert.Eventually(t, func() bool {
		return h.table.State().SearchTerm == "mar"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"4"}, h.bodyIDs("clientes"))
	assert.Equal(t, "Showing 1-1 of 1", h.text("pagination-info-clientes"))
}

func TestSearchFlush(t *testing.T) {
	opts := tableview.DefaultOptions()
	opts.DebounceDelay = time.Hour
	h := newHarness(t, opts)

	require.NoError(t, h.page.Input("search-clientes", "zzz", "input"))
	require.True(t, h.table.FlushSearch())

	assert.Empty(t, h.bodyIDs("clientes"))
	assert.Equal(t, "flex", dom.Style(h.doc.ByID("empty-clientes"), "display"))
	assert.Equal(t, "none", dom.Style(h.doc.ByID("table-container-clientes"), "display"))
	assert.Equal(t, "Showing 0-0 of 0", h.text("pagination-info-clientes"))
}

func TestFilterSelectAndSearchIntersect(t *testing.T) {
	h := newHarness(t, tableview.DefaultOptions())
	sel := dom.Find(h.doc.ByID("filters-clientes"), dom.Class(ClassFilter))

	dom.SetValue(sel, "Inactivo")
	h.page.Dispatch(sel, "change")
	assert.Equal(t, []string{"2", "5", "8", "11"}, h.bodyIDs("clientes"))

	h.table.Search("ana")
	assert.Empty(t, h.table.State().Current)
	assert.Equal(t, "ana", dom.Value(h.doc.ByID("search-clientes")))

	h.table.Search("")
	assert.Len(t, h.table.State().Current, 4)
}

func TestFilterMethodUpdatesControl(t *testing.T) {
	h := newHarness(t, tableview.DefaultOptions())
	sel := dom.Find(h.doc.ByID("filters-clientes"), dom.Class(ClassFilter))

	h.table.Filter("estado", "Inactivo")
	assert.Equal(t, "Inactivo", dom.Value(sel))
	assert.Len(t, h.table.State().Current, 4)

	h.table.Filter("email", "hugo")
	assert.Empty(t, h.table.State().Current)

	require.NoError(t, h.page.Click("clear-filters-clientes"))
	assert.Equal(t, "", dom.Value(sel))
	assert.Len(t, h.table.State().Current, 12)
}

func TestFilterMethodPartialValue(t *testing.T) {
	h := newHarness(t, tableview.DefaultOptions())
	sel := dom.Find(h.doc.ByID("filters-clientes"), dom.Class(ClassFilter))

	h.table.Filter("estado", "inact")
	assert.Equal(t, "inact", dom.Value(sel))
	assert.Equal(t, []string{"2", "5", "8", "11"}, h.bodyIDs("clientes"))
	assert.Len(t, dom.FindAll(sel, dom.Tag("option")), 4)

	h.table.Filter("estado", "inact")
	assert.Len(t, dom.FindAll(sel, dom.Tag("option")), 4)

	h.table.ClearFilters()
	assert.Equal(t, "", dom.Value(sel))
	assert.Len(t, h.table.State().Current, 12)
}

func TestPaginationControls(t *testing.T) {
	h := newHarness(t, tableview.DefaultOptions())

	require.NoError(t, h.page.Click("next-clientes"))
	assert.Equal(t, []string{"11", "12"}, h.bodyIDs("clientes"))
	assert.True(t, dom.Disabled(h.doc.ByID("next-clientes")))
	assert.False(t, dom.Disabled(h.doc.ByID("prev-clientes")))

	require.NoError(t, h.page.Click("next-clientes"))
	assert.Equal(t, 2, h.table.State().Config.CurrentPage)

	first := dom.Children(h.doc.ByID("page-numbers-clientes"), nil)[0]
	require.True(t, h.page.Dispatch(first, "click"))
	assert.Equal(t, 1, h.table.State().Config.CurrentPage)
	assert.Len(t, h.bodyIDs("clientes"), 10)

	require.NoError(t, h.page.Input("items-per-page-clientes", "25", "change"))
	assert.Len(t, h.bodyIDs("clientes"), 12)
	assert.Len(t, dom.Children(h.doc.ByID("page-numbers-clientes"), nil), 1)

	require.NoError(t, h.page.Input("items-per-page-clientes", "x", "change"))
	assert.Equal(t, 25, h.table.State().Config.ItemsPerPage)
}

func TestToggleFilters(t *testing.T) {
	h := newHarness(t, tableview.DefaultOptions())
	panel := h.doc.ByID("filters-clientes")

	require.NoError(t, h.page.Click("toggle-filters-clientes"))
	assert.Equal(t, "block", dom.Style(panel, "display"))
	h.table.ToggleFilters()
	assert.Equal(t, "none", dom.Style(panel, "display"))
}

func TestExportClick(t *testing.T) {
	h := newHarness(t, tableview.DefaultOptions())
	h.table.Filter("estado", "Inactivo")
	h.table.Sort("monto", "")

	require.NoError(t, h.page.Click("export-clientes"))
	data, ok := h.files["clientes_export_2024-05-17.csv"]
	require.True(t, ok)
	assert.Equal(t, "Nombre,Email,Estado,Monto\n"+
		"Carla,carla@x.com,Inactivo,$10\n"+
		"Fabio,fabio@x.com,Inactivo,$40\n"+
		"Ines,ines@x.com,Inactivo,$70\n"+
		"Luis,luis@x.com,Inactivo,$300\n", string(data))

	h.table.ClearFilters()
	name, data, err := h.table.Export()
	require.NoError(t, err)
	assert.Equal(t, "clientes_export_2024-05-17.csv", name)
	assert.Contains(t, string(data), "\"Ana, B.\",ana@x.com,Activo,\"$1,200\"\n")
}

func TestRefreshRecapturesBody(t *testing.T) {
	h := newHarness(t, tableview.DefaultOptions())
	h.table.Search("a")
	h.table.Filter("estado", "Activo")
	h.table.Sort("nombre", "")

	tbody := dom.Find(h.doc.ByID("clientes"), dom.Tag("tbody"))
	dom.RemoveChildren(tbody)
	fresh, err := html.ParseFragment(strings.NewReader(
		rowHTML(20, "Zoe", "zoe@x.com", "Activo", "$1")+rowHTML(21, "Yago", "yago@x.com", "Inactivo", "$2")),
		tbody)
	require.NoError(t, err)
	for _, n := range fresh {
		dom.AppendChild(tbody, n)
	}

	require.NoError(t, h.page.Click("refresh-clientes"))
	st := h.table.State()
	require.Len(t, st.Original, 2)
	assert.Equal(t, "20", st.Original[0].ID)
	assert.Equal(t, "Yago", st.Original[1].Value("nombre"))
	assert.Equal(t, []string{"20", "21"}, h.bodyIDs("clientes"))
	assert.Empty(t, st.SearchTerm)
	assert.Empty(t, st.Config.SortColumn)
	assert.Equal(t, "", dom.Value(h.doc.ByID("search-clientes")))
	assert.Equal(t, "", dom.Value(dom.Find(h.doc.ByID("filters-clientes"), dom.Class(ClassFilter))))
	assert.False(t, dom.HasClass(h.header("clientes", "nombre"), ClassSortedAsc))
}

func TestRefreshUnchangedBodyKeepsEveryRow(t *testing.T) {
	h := newHarness(t, tableview.DefaultOptions())
	require.Len(t, h.bodyIDs("clientes"), 10)
	h.table.Filter("estado", "Inactivo")
	h.table.Sort("nombre", "")

	require.NoError(t, h.page.Click("refresh-clientes"))
	st := h.table.State()
	assert.Len(t, st.Original, 12)
	assert.Len(t, st.Filtered, 12)
	assert.Empty(t, st.Config.SortColumn)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}, h.bodyIDs("clientes"))

	require.NoError(t, h.page.Click("next-clientes"))
	assert.Equal(t, []string{"11", "12"}, h.bodyIDs("clientes"))
}

func TestTablesAreIndependent(t *testing.T) {
	h := newHarness(t, tableview.DefaultOptions(), "clientes", "proveedores")
	assert.Equal(t, []string{"clientes", "proveedores"}, h.page.Tables())

	prov, ok := h.page.Table("proveedores")
	require.True(t, ok)
	prov.Search("luis")

	assert.Len(t, prov.State().Current, 1)
	assert.Len(t, h.table.State().Current, 12)
	assert.Len(t, h.bodyIDs("clientes"), 10)
	assert.Equal(t, []string{"2"}, h.bodyIDs("proveedores"))
}

func TestReinitializeReplacesListeners(t *testing.T) {
	h := newHarness(t, tableview.DefaultOptions())
	next := h.doc.ByID("next-clientes")
	require.Equal(t, 1, h.doc.Listeners(next, "click"))

	_, err := h.page.Initialize(context.Background(), "clientes", tableview.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, h.doc.Listeners(next, "click"))
}

func TestDisabledFeaturesAreNotWired(t *testing.T) {
	opts := tableview.DefaultOptions()
	opts.Sortable = false
	opts.Searchable = false
	h := newHarness(t, opts)

	assert.False(t, h.page.Dispatch(h.header("clientes", "nombre"), "click"))
	assert.False(t, h.page.Dispatch(h.doc.ByID("search-clientes"), "input"))
}

func TestRenderedMarkupIsEscaped(t *testing.T) {
	doc, err := dom.ParseString(`<table id="t"><thead><tr><th>Nombre</th></tr></thead><tbody>` +
		`<tr data-id="1"><td>&lt;img src=x onerror=alert(1)&gt;</td></tr></tbody></table>`)
	require.NoError(t, err)
	p := NewPage(doc)
	tbl, err := p.Initialize(context.Background(), "t", tableview.DefaultOptions())
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "<img src=x onerror=alert(1)>", tbl.State().Original[0].Value("col_0"))
	assert.NotContains(t, doc.String(), "<img")
}

func TestConcurrentCallsAreSerialized(t *testing.T) {
	h := newHarness(t, tableview.DefaultOptions())
	var done atomic.Int32
	finished := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			if i%2 == 0 {
				h.table.Search("a")
			} else {
				h.table.ChangePage(tableview.PageNext)
			}
			if done.Add(1) == 8 {
				close(finished)
			}
		}(i)
	}
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("calls did not finish")
	}
	assert.NotEmpty(t, h.table.State().Current)
}
