// Package loader turns tabular sources (HTML pages, CSV, JSON, YAML, TOML,
// Markdown, SQLite) into pages that follow the table DOM contract.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pacta-app/tableview/internal/dom"
	"github.com/pacta-app/tableview/internal/tableview"
)

var (
	// ErrUnsupportedSource is returned for inputs no decoder accepts.
	ErrUnsupportedSource = errors.New("unsupported source")
	// ErrNoTable is returned when a source holds no tabular data.
	ErrNoTable = errors.New("no table found")
)

// Format identifies a source decoder.
type Format string

const (
	FormatAuto     Format = ""
	FormatHTML     Format = "html"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatTOML     Format = "toml"
	FormatMarkdown Format = "markdown"
	FormatSQLite   Format = "sqlite"
)

// Column is one table column.
type Column struct {
	Key    string
	Header string
	Type   tableview.ValueType
}

// Table is a decoded source: ordered columns and rows of cell text aligned
// with them.
type Table struct {
	Columns []Column
	Rows    [][]string
}

// DetectFormat picks a decoder from the file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML
	case ".csv":
		return FormatCSV
	case ".json", ".ndjson", ".jsonl":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".md", ".markdown":
		return FormatMarkdown
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return FormatAuto
	}
}

// sniffFormat guesses the format of in-memory input.
func sniffFormat(input string) Format {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") || strings.HasPrefix(lower, "<table"):
		return FormatHTML
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		if isLikelyTOML(trimmed) {
			return FormatTOML
		}
		return FormatJSON
	case isLikelyMarkdownTable(trimmed):
		return FormatMarkdown
	case isLikelyTOML(trimmed):
		return FormatTOML
	case isLikelyCSV(trimmed):
		return FormatCSV
	default:
		return FormatYAML
	}
}

// Decode parses input in the given format into a table. FormatAuto sniffs
// the content; HTML and SQLite are not tabular decoders and are rejected.
func Decode(input []byte, format Format) (*Table, error) {
	if len(bytes.TrimSpace(input)) == 0 {
		return nil, fmt.Errorf("empty input: %w", ErrNoTable)
	}
	if format == FormatAuto {
		format = sniffFormat(string(input))
	}
	var (
		t   *Table
		err error
	)
	switch format {
	case FormatCSV:
		t, err = decodeCSV(input)
	case FormatJSON, FormatYAML:
		t, err = decodeStructured(input)
	case FormatTOML:
		t, err = decodeTOML(input)
	case FormatMarkdown:
		t, err = decodeMarkdown(input)
	default:
		return nil, fmt.Errorf("format %q: %w", format, ErrUnsupportedSource)
	}
	if err != nil {
		return nil, err
	}
	if len(t.Columns) == 0 {
		return nil, ErrNoTable
	}
	InferTypes(t)
	return t, nil
}

// Source describes where a page comes from.
type Source struct {
	// Path is a file path, or "-" for Data.
	Path   string
	Data   []byte
	Format Format
	// Query selects the rows of a SQLite source.
	Query string
}

// LoadDocument builds the page for src. HTML sources are parsed as they
// are; every other source is decoded and rendered with RenderPage.
func LoadDocument(ctx context.Context, src Source, opts PageOptions) (*dom.Document, error) {
	format := src.Format
	if format == FormatAuto && src.Path != "" && src.Path != "-" {
		format = DetectFormat(src.Path)
	}

	if format == FormatSQLite {
		t, err := LoadSQLite(ctx, src.Path, src.Query)
		if err != nil {
			return nil, err
		}
		return renderDocument(t, opts)
	}

	data := src.Data
	if data == nil && src.Path != "" && src.Path != "-" {
		var err error
		if data, err = os.ReadFile(src.Path); err != nil {
			return nil, fmt.Errorf("reading %s: %w", src.Path, err)
		}
	}
	if format == FormatAuto {
		format = sniffFormat(string(data))
	}
	if format == FormatHTML {
		doc, err := dom.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if opts.TableID != "" && doc.ByID(opts.TableID) == nil {
			return nil, fmt.Errorf("table %q: %w", opts.TableID, ErrNoTable)
		}
		return doc, nil
	}

	t, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return renderDocument(t, opts)
}

func renderDocument(t *Table, opts PageOptions) (*dom.Document, error) {
	var buf bytes.Buffer
	if err := RenderPage(&buf, t, opts); err != nil {
		return nil, err
	}
	return dom.Parse(&buf)
}
