package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pacta-app/tableview/internal/dom"
	"github.com/pacta-app/tableview/pkg/loader"
)

func clientsCSV() string {
	var b strings.Builder
	b.WriteString("id,nombre,estado,saldo\n")
	for i := 1; i <= 12; i++ {
		estado := "Activo"
		if i%4 == 0 {
			estado = "Inactivo"
		}
		fmt.Fprintf(&b, "%d,Cliente %02d,%s,$%d.00\n", i, i, estado, i*15)
	}
	return b.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs the root command with an isolated config directory.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootTableOutput(t *testing.T) {
	path := writeFile(t, "clientes.csv", clientsCSV())
	out, _, err := execute(t, "", path, "--no-color", "--width", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "Cliente 01")
	assert.Contains(t, out, "Cliente 10")
	assert.NotContains(t, out, "Cliente 11")
	assert.Contains(t, out, "Showing 1-10 of 12")
}

func TestRootCSVOutput(t *testing.T) {
	path := writeFile(t, "clientes.csv", clientsCSV())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "search and sort",
			args: []string{"--search", "cliente 1", "--sort", "saldo:desc"},
			want: "id,nombre,estado,saldo\n12,Cliente 12,Inactivo,$180.00\n11,Cliente 11,Activo,$165.00\n10,Cliente 10,Activo,$150.00\n",
		},
		{
			name: "filter",
			args: []string{"--filter", "estado=Inactivo", "--sort", "nombre"},
			want: "id,nombre,estado,saldo\n4,Cliente 04,Inactivo,$60.00\n8,Cliente 08,Inactivo,$120.00\n12,Cliente 12,Inactivo,$180.00\n",
		},
		{
			name: "filter lowercase",
			args: []string{"--filter", "estado=inactivo"},
			want: "id,nombre,estado,saldo\n4,Cliente 04,Inactivo,$60.00\n8,Cliente 08,Inactivo,$120.00\n12,Cliente 12,Inactivo,$180.00\n",
		},
		{
			name: "filter partial",
			args: []string{"--filter", "estado=Inact"},
			want: "id,nombre,estado,saldo\n4,Cliente 04,Inactivo,$60.00\n8,Cliente 08,Inactivo,$120.00\n12,Cliente 12,Inactivo,$180.00\n",
		},
		{
			name: "where",
			args: []string{"--where", "amount(row.saldo) > 150.0"},
			want: "id,nombre,estado,saldo\n11,Cliente 11,Activo,$165.00\n12,Cliente 12,Inactivo,$180.00\n",
		},
		{
			name: "limit and offset",
			args: []string{"--sort", "saldo:desc", "--offset", "1", "--limit", "2"},
			want: "id,nombre,estado,saldo\n11,Cliente 11,Activo,$165.00\n10,Cliente 10,Activo,$150.00\n",
		},
		{
			name: "tail",
			args: []string{"--tail", "1"},
			want: "id,nombre,estado,saldo\n12,Cliente 12,Inactivo,$180.00\n",
		},
		{
			name: "no match",
			args: []string{"--search", "nadie"},
			want: "id,nombre,estado,saldo\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "", append([]string{path, "-o", "csv"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRootJSONAndYAML(t *testing.T) {
	path := writeFile(t, "clientes.csv", clientsCSV())

	out, _, err := execute(t, "", path, "-o", "json", "--filter", "estado=Inactivo")
	require.NoError(t, err)
	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "Cliente 04", rows[0]["nombre"])
	assert.Equal(t, "$60.00", rows[0]["saldo"])

	out, _, err = execute(t, "", path, "-o", "yaml", "--search", "cliente 12")
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "12", rows[0]["id"])
}

func TestRootHTMLPage(t *testing.T) {
	path := writeFile(t, "clientes.csv", clientsCSV())
	out, _, err := execute(t, "", path, "-o", "html", "--table-id", "clientes", "--page", "2")
	require.NoError(t, err)

	doc, err := dom.ParseString(out)
	require.NoError(t, err)
	require.NotNil(t, doc.ByID("clientes"))
	assert.Equal(t, "Showing 11-12 of 12", strings.TrimSpace(dom.Text(doc.ByID("pagination-info-clientes"))))
	assert.True(t, dom.Disabled(doc.ByID("next-clientes")))

	out, _, err = execute(t, "", path, "-o", "html", "--filter", "estado=inact")
	require.NoError(t, err)
	doc, err = dom.ParseString(out)
	require.NoError(t, err)
	sel := dom.Find(doc.ByID("filters-data"), dom.Class("filter-select"))
	require.NotNil(t, sel)
	assert.Equal(t, "inact", dom.Value(sel))
	assert.Equal(t, "Showing 1-3 of 3", strings.TrimSpace(dom.Text(doc.ByID("pagination-info-data"))))
	assert.Len(t, dom.FindAll(sel, dom.Tag("option")), 4)
}

func TestRootPerPageAndPageClamp(t *testing.T) {
	path := writeFile(t, "clientes.csv", clientsCSV())
	out, _, err := execute(t, "", path, "--no-color", "--per-page", "5", "--page", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "Showing 11-12 of 12")
}

func TestRootStdin(t *testing.T) {
	restore := stdinIsPiped
	stdinIsPiped = func() bool { return true }
	t.Cleanup(func() { stdinIsPiped = restore })

	out, _, err := execute(t, clientsCSV(), "-o", "csv", "--search", "cliente 03")
	require.NoError(t, err)
	assert.Equal(t, "id,nombre,estado,saldo\n3,Cliente 03,Activo,$45.00\n", out)

	out, _, err = execute(t, "| id | nombre |\n|----|--------|\n| 1 | Ana Pérez |\n", "-", "-o", "csv", "--format", "markdown")
	require.NoError(t, err)
	assert.Equal(t, "id,nombre\n1,Ana Pérez\n", out)
}

func TestRootNoInputShowsHelp(t *testing.T) {
	restore := stdinIsPiped
	stdinIsPiped = func() bool { return false }
	t.Cleanup(func() { stdinIsPiped = restore })

	out, _, err := execute(t, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "--filter")
}

func TestRootExport(t *testing.T) {
	path := writeFile(t, "clientes.csv", clientsCSV())
	dir := filepath.Join(t.TempDir(), "exports")

	_, errOut, err := execute(t, "", path, "-o", "csv", "--export", "--export-dir", dir, "--filter", "estado=Inactivo")
	require.NoError(t, err)
	assert.Contains(t, errOut, "exported")

	files, err := filepath.Glob(filepath.Join(dir, "data_export_*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "id,nombre,estado,saldo\n4,Cliente 04,Inactivo,$60.00\n8,Cliente 08,Inactivo,$120.00\n12,Cliente 12,Inactivo,$180.00\n", string(data))
}

func TestRootConfigFile(t *testing.T) {
	path := writeFile(t, "clientes.csv", clientsCSV())
	cfg := writeFile(t, "config.yaml", "table:\n  items_per_page: 4\n  summary: \"{{.Start}} a {{.End}} de {{.Total}}\"\n")

	out, _, err := execute(t, "", path, "--no-color", "--config-file", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "1 a 4 de 12")

	cfg = writeFile(t, "unsorted.yaml", "table:\n  sortable: false\n")
	out, _, err = execute(t, "", path, "-o", "csv", "--config-file", cfg, "--sort", "saldo:desc", "--tail", "1")
	require.NoError(t, err)
	assert.Equal(t, "id,nombre,estado,saldo\n12,Cliente 12,Inactivo,$180.00\n", out)
}

func TestRootErrors(t *testing.T) {
	csvPath := writeFile(t, "clientes.csv", clientsCSV())
	htmlPath := writeFile(t, "page.html", "<html><body><table id=\"otra\"><tbody></tbody></table></body></html>")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"output", []string{csvPath, "-o", "xml"}, "invalid output"},
		{"sort", []string{csvPath, "--sort", "saldo:sideways"}, "invalid --sort direction"},
		{"filter", []string{csvPath, "--filter", "estado"}, "expected column=value"},
		{"where", []string{csvPath, "--where", "row.saldo +"}, "invalid --where"},
		{"format", []string{csvPath, "--format", "xls"}, "invalid --format"},
		{"watch", []string{csvPath, "--watch"}, "--watch needs --interactive"},
		{"limit", []string{csvPath, "--limit", "2", "--tail", "1"}, "mutually exclusive"},
		{"missing file", []string{filepath.Join(t.TempDir(), "nope.csv")}, "reading"},
		{"config", []string{csvPath, "--config-file", filepath.Join(t.TempDir(), "nope.yaml")}, "read config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, _, err := execute(t, "", htmlPath, "--table-id", "clientes")
	require.ErrorIs(t, err, loader.ErrNoTable)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "tableview "))
	assert.Contains(t, out, "commit ")
}

func TestConfigCommands(t *testing.T) {
	out, _, err := execute(t, "", "config", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "items_per_page: 10")
	assert.Contains(t, out, "debounce: 300ms")

	out, _, err = execute(t, "", "config", "get", "-o", "json")
	require.NoError(t, err)
	var obj map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &obj))
	assert.InDelta(t, 10, obj["table"]["items_per_page"], 0)
	assert.Equal(t, "127.0.0.1:8080", obj["server"]["addr"])

	out, _, err = execute(t, "", "config", "get", "-o", "toml")
	require.NoError(t, err)
	assert.Contains(t, out, "[table]")
	assert.Contains(t, out, "items_per_page = 10")

	_, _, err = execute(t, "", "config", "get", "-o", "ini")
	require.Error(t, err)

	out, _, err = execute(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, "(built-in defaults)\n", out)
}

func TestFunctionsCommand(t *testing.T) {
	out, _, err := execute(t, "", "functions")
	require.NoError(t, err)
	assert.Contains(t, out, "amount() - ")
	assert.Contains(t, out, "num() - ")
}
