package tableview

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportCSV(t *testing.T) {
	cols := []Column{
		{Key: "nombre", Header: "Nombre"},
		{Key: "email", Header: "Email"},
		{Key: "acciones", Header: "Acciones"},
	}
	keys := []string{"nombre", "email", "acciones"}
	rows := []*Record{
		NewRecord("1", keys, []string{"Ana, B.", "a@x.com", "Editar"}, nil),
		NewRecord("2", keys, []string{"Luis", "l@x.com", "Editar"}, nil),
	}
	c := New("clientes", cols, rows, DefaultOptions())

	var buf bytes.Buffer
	require.NoError(t, c.ExportCSV(&buf))
	assert.Equal(t, "Nombre,Email\n\"Ana, B.\",a@x.com\nLuis,l@x.com\n", buf.String())
}

func TestExportCSV_UsesCurrentOrderNotPage(t *testing.T) {
	opts := DefaultOptions()
	opts.ItemsPerPage = 2
	c := New("t", nil, numbered(5), opts)
	c.Sort("n", TypeNumber)
	c.Sort("n", TypeNumber)
	c.GoToPage(2)

	var buf bytes.Buffer
	require.NoError(t, c.ExportCSV(&buf))
	assert.Equal(t, "n\n5\n4\n3\n2\n1\n", buf.String())
}

func TestExportCSV_FilteredRowsOnly(t *testing.T) {
	c := New("clients", clientColumns, clients(), DefaultOptions())
	c.Search("marta")

	var buf bytes.Buffer
	require.NoError(t, c.ExportCSV(&buf))
	assert.Equal(t, "Nombre,Estado,Monto\nMarta,Activo,$9.50\n", buf.String())
}

func TestExportColumns_Markers(t *testing.T) {
	opts := DefaultOptions()
	opts.ActionsMarkers = []string{"opciones"}
	cols := []Column{{Key: "a", Header: "A"}, {Key: "o", Header: "Opciones"}, {Key: "x", Header: "Acciones"}}
	c := New("t", cols, nil, opts)

	got := c.ExportColumns()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Key)
	assert.Equal(t, "x", got[1].Key)
}

func TestEscapeCSVField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a,b", `"a,b"`},
		{`say "hi"`, `say ""hi""`},
		{`"x", y`, `"""x"", y"`},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeCSVField(tt.in))
		})
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 3, 7, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "contratos_export_2024-03-07.csv", ExportFilename("contratos", now))

	c := New("clientes", nil, nil, DefaultOptions())
	assert.Equal(t, "clientes_export_2024-03-07.csv", c.ExportFilename(now))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestExportCSV_WriteError(t *testing.T) {
	c := New("clients", clientColumns, clients(), DefaultOptions())
	err := c.ExportCSV(failingWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
