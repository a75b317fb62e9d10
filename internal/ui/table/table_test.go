package table

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/pacta-app/tableview/internal/tableview"
)

var cols = []tableview.Column{
	{Key: "nombre", Header: "Nombre"},
	{Key: "ciudad", Header: "Ciudad"},
}

func page(names ...string) tableview.Page {
	p := tableview.Page{Number: 1, TotalPages: 1}
	for i, n := range names {
		p.Rows = append(p.Rows, tableview.NewRecord(string(rune('a'+i)), []string{"nombre", "ciudad"}, []string{n, "Lima"}, nil))
	}
	return p
}

func TestTable_SetPage(t *testing.T) {
	m := New()
	m.SetPage(page("Ana", "Luis", "Marta"), cols)

	if m.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", m.Len())
	}
	view := m.View()
	for _, want := range []string{"Nombre", "Ciudad", "Ana", "Marta"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestTable_CursorSelection(t *testing.T) {
	m := New()
	m.SetPage(page("Ana", "Luis"), cols)

	if sel := m.SelectedRecord(); sel == nil || sel.Value("nombre") != "Ana" {
		t.Fatalf("expected first row selected, got %+v", sel)
	}
	m.SetCursor(1)
	if sel := m.SelectedRecord(); sel == nil || sel.Value("nombre") != "Luis" {
		t.Fatalf("expected second row selected, got %+v", sel)
	}

	// A shorter page pulls the cursor back inside.
	m.SetPage(page("Ana"), cols)
	if m.Cursor() != 0 {
		t.Fatalf("expected cursor clamped to 0, got %d", m.Cursor())
	}

	m.SetPage(page(), cols)
	if m.SelectedRecord() != nil {
		t.Fatalf("expected no selection on empty page")
	}
}

func TestTable_KeysMoveCursor(t *testing.T) {
	m := New()
	m.SetSize(60, 10)
	m.SetPage(page("Ana", "Luis", "Marta"), cols)

	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if m.Cursor() != 1 {
		t.Fatalf("expected cursor 1 after down, got %d", m.Cursor())
	}
}

func TestTable_SortMarkerAndSelectedColumn(t *testing.T) {
	m := New()
	p := page("Ana")
	p.SortColumn = "ciudad"
	p.SortDirection = tableview.Desc
	m.SetPage(p, cols)
	if !strings.Contains(m.View(), "Ciudad ▼") {
		t.Fatalf("expected sort marker in header:\n%s", m.View())
	}

	m.SetSelectedColumn(0)
	if m.SelectedColumn() != 0 || !strings.Contains(m.View(), "[Nombre]") {
		t.Fatalf("expected highlighted first column:\n%s", m.View())
	}
	m.SetSelectedColumn(7)
	if m.SelectedColumn() != -1 {
		t.Fatalf("out of range column should clear selection")
	}
}

func TestTable_ColorSchemeAndString(t *testing.T) {
	m := New()
	m.SetNoColor(true)
	m.SetColors(nil, nil, nil, nil)
	m.SetPage(page("Ana"), cols)
	if got := m.String(); !strings.Contains(got, "rows=1") {
		t.Fatalf("unexpected debug string %q", got)
	}
	if m.Height() < 2 {
		t.Fatalf("expected header and row, got height %d", m.Height())
	}
}
