package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/pacta-app/tableview/internal/dom"
	"github.com/pacta-app/tableview/internal/tableview"
	"github.com/pacta-app/tableview/pkg/loader"
)

func clientsCSV() []byte {
	var b strings.Builder
	b.WriteString("id,nombre,estado,saldo\n")
	for i := 1; i <= 12; i++ {
		estado := "Activo"
		if i%4 == 0 {
			estado = "Inactivo"
		}
		fmt.Fprintf(&b, "%d,Cliente %02d,%s,$%d.00\n", i, i, estado, i*15)
	}
	return []byte(b.String())
}

func newServer(data []byte, format loader.Format) *Server {
	return New(Options{
		Source: loader.Source{Data: data, Format: format},
		Page:   loader.PageOptions{Title: "Clientes"},
		Table:  tableview.DefaultOptions(),
		Now:    func() time.Time { return time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC) },
	})
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func getPage(t *testing.T, s *Server, target string) *dom.Document {
	t.Helper()
	rr := get(t, s, target)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	doc, err := dom.ParseString(rr.Body.String())
	require.NoError(t, err)
	return doc
}

func names(doc *dom.Document) []string {
	var out []string
	body := dom.Find(doc.ByID("data"), dom.Tag("tbody"))
	for _, td := range dom.FindAll(body, dom.All(dom.Tag("td"), func(n *html.Node) bool { return dom.Data(n, "column") == "nombre" })) {
		out = append(out, strings.TrimSpace(dom.Text(td)))
	}
	return out
}

func summary(doc *dom.Document) string {
	return strings.TrimSpace(dom.Text(doc.ByID("pagination-info-data")))
}

func TestPageFirstRequest(t *testing.T) {
	doc := getPage(t, newServer(clientsCSV(), loader.FormatCSV), "/")

	got := names(doc)
	require.Len(t, got, 10)
	assert.Equal(t, "Cliente 01", got[0])
	assert.Equal(t, "Showing 1-10 of 12", summary(doc))

	buttons := dom.FindAll(doc.ByID("page-numbers-data"), dom.Tag("button"))
	require.Len(t, buttons, 2)
	assert.Equal(t, "submit", dom.Attr(buttons[1], "type"))
	assert.Equal(t, "page", dom.Attr(buttons[1], "name"))
	assert.Equal(t, "2", dom.Attr(buttons[1], "value"))

	th := dom.Find(doc.ByID("data"), dom.Tag("th"))
	link := dom.Find(th, dom.Tag("a"))
	require.NotNil(t, link)
	assert.Equal(t, "?dir=asc&sort=id", dom.Attr(link, "href"))

	assert.True(t, dom.Disabled(doc.ByID("prev-data")))
	assert.False(t, dom.Disabled(doc.ByID("next-data")))
	assert.Equal(t, ExportPath, dom.Attr(doc.ByID("export-data"), "formaction"))
	assert.Equal(t, "none", dom.Style(doc.ByID("filters-data"), "display"))
}

func TestPageSearch(t *testing.T) {
	doc := getPage(t, newServer(clientsCSV(), loader.FormatCSV), "/?q=cliente+1")
	assert.Equal(t, []string{"Cliente 10", "Cliente 11", "Cliente 12"}, names(doc))
	assert.Equal(t, "cliente 1", dom.Value(doc.ByID("search-data")))
	assert.Equal(t, "Showing 1-3 of 3", summary(doc))
}

func TestPageFilter(t *testing.T) {
	s := newServer(clientsCSV(), loader.FormatCSV)

	doc := getPage(t, s, "/?filter-estado=Inactivo")
	assert.Equal(t, []string{"Cliente 04", "Cliente 08", "Cliente 12"}, names(doc))
	assert.Equal(t, "block", dom.Style(doc.ByID("filters-data"), "display"))
	sel := dom.Find(doc.ByID("filters-data"), dom.Class("filter-select"))
	require.NotNil(t, sel)
	assert.Equal(t, "Inactivo", dom.Value(sel))

	doc = getPage(t, s, "/?filter-estado=inact")
	assert.Equal(t, []string{"Cliente 04", "Cliente 08", "Cliente 12"}, names(doc))
	sel = dom.Find(doc.ByID("filters-data"), dom.Class("filter-select"))
	require.NotNil(t, sel)
	assert.Equal(t, "inact", dom.Value(sel))

	doc = getPage(t, s, "/?filter-estado=Inactivo&q=cliente+0")
	assert.Equal(t, []string{"Cliente 04", "Cliente 08"}, names(doc), "search and filters intersect")

	doc = getPage(t, s, "/?filter-estado=Inactivo&nav=clear")
	assert.Len(t, names(doc), 10)
	assert.Equal(t, "Showing 1-10 of 12", summary(doc))
}

func TestPagePaging(t *testing.T) {
	s := newServer(clientsCSV(), loader.FormatCSV)

	tests := []struct {
		target string
		want   string
	}{
		{"/?page=2", "Showing 11-12 of 12"},
		{"/?page=1&nav=next", "Showing 11-12 of 12"},
		{"/?page=2&nav=prev", "Showing 1-10 of 12"},
		{"/?page=9", "Showing 11-12 of 12"},
		{"/?per_page=25", "Showing 1-12 of 12"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, summary(getPage(t, s, tt.target)))
		})
	}

	doc := getPage(t, s, "/?page=2")
	for _, in := range dom.FindAll(doc.ByID("form-data"), dom.Tag("input")) {
		if dom.Attr(in, "name") == "page" {
			assert.Equal(t, "2", dom.Value(in))
		}
	}
}

func TestPageSort(t *testing.T) {
	doc := getPage(t, newServer(clientsCSV(), loader.FormatCSV), "/?sort=saldo&dir=desc")
	got := names(doc)
	require.NotEmpty(t, got)
	assert.Equal(t, "Cliente 12", got[0], "currency column sorts numerically")

	var saldo, nombre *html.Node
	for _, th := range dom.FindAll(doc.ByID("data"), dom.Tag("th")) {
		switch dom.Data(th, "column") {
		case "saldo":
			saldo = th
		case "nombre":
			nombre = th
		}
	}
	require.NotNil(t, saldo)
	assert.True(t, dom.HasClass(saldo, "sorted-desc"))
	assert.Equal(t, "?dir=asc&sort=saldo", dom.Attr(dom.Find(saldo, dom.Tag("a")), "href"))
	assert.Equal(t, "?dir=asc&sort=nombre", dom.Attr(dom.Find(nombre, dom.Tag("a")), "href"))
}

func TestRefreshResetsState(t *testing.T) {
	doc := getPage(t, newServer(clientsCSV(), loader.FormatCSV), "/?q=cliente+1&sort=saldo&dir=desc&nav=refresh")
	assert.Len(t, names(doc), 10)
	assert.Equal(t, "", dom.Value(doc.ByID("search-data")))
}

func TestToggleFilters(t *testing.T) {
	s := newServer(clientsCSV(), loader.FormatCSV)
	doc := getPage(t, s, "/")
	toggle := doc.ByID("toggle-filters-data")
	assert.Equal(t, "show_filters", dom.Attr(toggle, "name"))
	assert.Equal(t, "1", dom.Attr(toggle, "value"))

	doc = getPage(t, s, "/?show_filters=1")
	assert.Equal(t, "block", dom.Style(doc.ByID("filters-data"), "display"))
	assert.Equal(t, "0", dom.Attr(doc.ByID("toggle-filters-data"), "value"))
}

func TestExport(t *testing.T) {
	rr := get(t, newServer(clientsCSV(), loader.FormatCSV), "/export.csv?q=cliente+1&sort=saldo&dir=desc")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="data_export_2024-05-17.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "id,nombre,estado,saldo\n"+
		"12,Cliente 12,Inactivo,$180.00\n"+
		"11,Cliente 11,Activo,$165.00\n"+
		"10,Cliente 10,Activo,$150.00\n", rr.Body.String())
}

func TestEscaping(t *testing.T) {
	data := []byte("nombre,nota\n<script>alert(1)</script>,a & b\n")
	rr := get(t, newServer(data, loader.FormatCSV), "/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "<script>alert(1)</script>")
	assert.Contains(t, rr.Body.String(), "&lt;script&gt;")
}

func TestErrors(t *testing.T) {
	rr := get(t, newServer([]byte("<html><body><p>nothing</p></body></html>"), loader.FormatHTML), "/")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = get(t, newServer(clientsCSV(), loader.FormatCSV), "/missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = get(t, newServer(clientsCSV(), loader.FormatCSV), "/healthz")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestPredicate(t *testing.T) {
	s := newServer(clientsCSV(), loader.FormatCSV)
	s.opts.Predicate = tableview.PredicateFunc(func(r *tableview.Record) (bool, error) {
		return r.Value("estado") == "Activo", nil
	})
	doc := getPage(t, s, "/?q=cliente+1")
	assert.Equal(t, []string{"Cliente 10", "Cliente 11"}, names(doc))
}

func TestListenAndServe(t *testing.T) {
	s := newServer(clientsCSV(), loader.FormatCSV)
	ctx, cancel := context.WithCancel(context.Background())

	addrCh := make(chan net.Addr, 1)
	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a }) }()

	addr := <-addrCh
	resp, err := http.Get("http://" + addr.String() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Cliente 01")

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestParseState(t *testing.T) {
	st := parseState(map[string][]string{
		"q":             {" ana "},
		"filter-estado": {"Activo"},
		"filter-ciudad": {""},
		"filter-":       {"x"},
		"page":          {"3", "1"},
		"per_page":      {"25"},
		"sort":          {"saldo"},
		"dir":           {"desc"},
		"show_filters":  {"1"},
	})
	assert.Equal(t, "ana", st.Search)
	assert.Equal(t, map[string]string{"estado": "Activo"}, st.Filters)
	assert.Equal(t, 3, st.Page, "first value wins")
	assert.Equal(t, 25, st.PerPage)
	assert.True(t, st.ShowFilters)
	assert.Equal(t, "dir=desc&filter-estado=Activo&page=3&per_page=25&q=ana&show_filters=1&sort=saldo", st.values().Encode())
}
