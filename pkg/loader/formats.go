package loader

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/pacta-app/tableview/internal/dom"
)

// builder accumulates rows keyed by column, keeping first-seen column order.
type builder struct {
	cols  []Column
	index map[string]int
	rows  []map[string]string
}

func newBuilder() *builder {
	return &builder{index: make(map[string]int)}
}

func (b *builder) column(header string) string {
	key := columnKey(header, len(b.cols))
	if _, ok := b.index[key]; !ok {
		b.index[key] = len(b.cols)
		b.cols = append(b.cols, Column{Key: key, Header: header})
	}
	return key
}

// uniqueColumn always adds a column, suffixing the key when it is taken.
func (b *builder) uniqueColumn(header string) string {
	base := columnKey(header, len(b.cols))
	key := base
	for n := 2; ; n++ {
		if _, taken := b.index[key]; !taken {
			break
		}
		key = base + "_" + strconv.Itoa(n)
	}
	b.index[key] = len(b.cols)
	b.cols = append(b.cols, Column{Key: key, Header: header})
	return key
}

func (b *builder) add(row map[string]string) {
	b.rows = append(b.rows, row)
}

func (b *builder) table() *Table {
	t := &Table{Columns: b.cols}
	for _, row := range b.rows {
		cells := make([]string, len(b.cols))
		for i, c := range b.cols {
			cells[i] = row[c.Key]
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

var nonKeyRun = regexp.MustCompile(`[^a-z0-9]+`)

// columnKey derives a data-column key from a header: lowercased, accents
// dropped, runs of other characters collapsed to "_".
func columnKey(header string, i int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		b.WriteRune(foldAccent(r))
	}
	key := strings.Trim(nonKeyRun.ReplaceAllString(b.String(), "_"), "_")
	if key == "" {
		return "col_" + strconv.Itoa(i)
	}
	return key
}

func foldAccent(r rune) rune {
	switch r {
	case 'á', 'à', 'ä', 'â':
		return 'a'
	case 'é', 'è', 'ë', 'ê':
		return 'e'
	case 'í', 'ì', 'ï', 'î':
		return 'i'
	case 'ó', 'ò', 'ö', 'ô':
		return 'o'
	case 'ú', 'ù', 'ü', 'û':
		return 'u'
	case 'ñ':
		return 'n'
	}
	return r
}

func decodeCSV(input []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(input))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV header: %w", err)
	}
	b := newBuilder()
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = b.uniqueColumn(strings.TrimSpace(h))
	}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid CSV at line %d: %w", line, err)
		}
		row := make(map[string]string, len(keys))
		for i, key := range keys {
			if i < len(rec) {
				row[key] = rec[i]
			}
		}
		b.add(row)
	}
	return b.table(), nil
}

// decodeStructured handles JSON, NDJSON and (multi-document) YAML. Key order
// is preserved by walking yaml.Node trees.
func decodeStructured(input []byte) (*Table, error) {
	var docs []*yaml.Node
	if lines := strings.Split(strings.TrimSpace(string(input)), "\n"); isLikelyNDJSON(lines) {
		for i, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			var n yaml.Node
			if err := yaml.Unmarshal([]byte(line), &n); err != nil {
				return nil, fmt.Errorf("invalid NDJSON at line %d: %w", i+1, err)
			}
			docs = append(docs, &n)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(input))
		for {
			var n yaml.Node
			err := dec.Decode(&n)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("invalid JSON/YAML: %w", err)
			}
			docs = append(docs, &n)
		}
	}

	var items []*yaml.Node
	for _, doc := range docs {
		root := doc
		if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
			root = root.Content[0]
		}
		items = append(items, rowNodes(root, len(docs) > 1)...)
	}
	if len(items) == 0 {
		return nil, ErrNoTable
	}

	b := newBuilder()
	for _, item := range items {
		row := make(map[string]string)
		if item.Kind != yaml.MappingNode {
			row[b.column("value")] = nodeText(item)
			b.add(row)
			continue
		}
		for i := 0; i+1 < len(item.Content); i += 2 {
			key := b.column(item.Content[i].Value)
			row[key] = nodeText(item.Content[i+1])
		}
		b.add(row)
	}
	return b.table(), nil
}

// rowNodes finds the records in a document: the items of a top-level list,
// the list held by a wrapper mapping, or the mapping itself.
func rowNodes(root *yaml.Node, multiDoc bool) []*yaml.Node {
	switch root.Kind {
	case yaml.SequenceNode:
		return root.Content
	case yaml.MappingNode:
		if !multiDoc {
			for i := 1; i < len(root.Content); i += 2 {
				if v := root.Content[i]; v.Kind == yaml.SequenceNode {
					return v.Content
				}
			}
		}
		return []*yaml.Node{root}
	case yaml.AliasNode:
		if root.Alias != nil {
			return rowNodes(root.Alias, multiDoc)
		}
	}
	return nil
}

func nodeText(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return ""
		}
		return n.Value
	case yaml.AliasNode:
		if n.Alias != nil {
			return nodeText(n.Alias)
		}
		return ""
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return ""
	}
	return formatValue(v)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// decodeTOML takes the first array of tables, by key order. TOML tables are
// unordered, so columns are sorted by key.
func decodeTOML(input []byte) (*Table, error) {
	var doc map[string]any
	if err := toml.Unmarshal(input, &doc); err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var rows []map[string]any
	for _, k := range keys {
		list, ok := doc[k].([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				rows = append(rows, m)
			}
		}
		if len(rows) > 0 {
			break
		}
	}
	if len(rows) == 0 {
		rows = []map[string]any{doc}
	}

	b := newBuilder()
	for _, m := range rows {
		cols := make([]string, 0, len(m))
		for k := range m {
			cols = append(cols, k)
		}
		slices.Sort(cols)
		row := make(map[string]string, len(m))
		for _, k := range cols {
			row[b.column(k)] = formatValue(m[k])
		}
		b.add(row)
	}
	return b.table(), nil
}

// decodeMarkdown renders the document and reads its first table.
func decodeMarkdown(input []byte) (*Table, error) {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	out := markdown.ToHTML(input, p, renderer)

	doc, err := dom.Parse(bytes.NewReader(out))
	if err != nil {
		return nil, err
	}
	table := dom.Find(doc.Root, dom.Tag("table"))
	if table == nil {
		return nil, ErrNoTable
	}
	b := newBuilder()
	var keys []string
	for _, th := range dom.FindAll(table, dom.Tag("th")) {
		keys = append(keys, b.uniqueColumn(strings.TrimSpace(dom.Text(th))))
	}
	body := dom.Find(table, dom.Tag("tbody"))
	if body == nil {
		return b.table(), nil
	}
	for _, tr := range dom.FindAll(body, dom.Tag("tr")) {
		row := make(map[string]string)
		for i, td := range dom.FindAll(tr, dom.Tag("td")) {
			if i < len(keys) {
				row[keys[i]] = strings.TrimSpace(dom.Text(td))
			}
		}
		b.add(row)
	}
	return b.table(), nil
}

// isLikelyNDJSON reports whether most non-empty lines start a JSON value.
func isLikelyNDJSON(lines []string) bool {
	jsonCount, nonEmpty := 0, 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
			jsonCount++
		}
	}
	return nonEmpty > 1 && jsonCount > nonEmpty/2
}

var (
	tomlSection  = regexp.MustCompile(`^\s*\[{1,2}(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\]{1,2}\s*$`)
	tomlKeyValue = regexp.MustCompile(`^\s*(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\s*=\s*.+$`)
	mdSeparator  = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?\s*$`)
)

// isLikelyTOML looks for [section] headers or a majority of key = value lines.
func isLikelyTOML(input string) bool {
	sections, pairs, nonEmpty := 0, 0, 0
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		nonEmpty++
		if tomlSection.MatchString(line) {
			sections++
		}
		if tomlKeyValue.MatchString(line) {
			pairs++
		}
	}
	return sections > 0 || (nonEmpty > 0 && pairs > nonEmpty/2)
}

// isLikelyMarkdownTable looks for a pipe table header separator line.
func isLikelyMarkdownTable(input string) bool {
	for _, line := range strings.Split(input, "\n") {
		if strings.Contains(line, "|") && mdSeparator.MatchString(line) {
			return true
		}
	}
	return false
}

// isLikelyCSV requires at least two lines with the same non-zero number of
// commas outside quotes.
func isLikelyCSV(input string) bool {
	lines := strings.Split(input, "\n")
	if len(lines) < 2 {
		return false
	}
	first := strings.Count(lines[0], ",")
	if first == 0 || strings.ContainsFunc(lines[0], func(r rune) bool { return r == ':' || unicode.IsControl(r) && r != '\r' }) {
		return false
	}
	r := csv.NewReader(strings.NewReader(input))
	r.FieldsPerRecord = 0
	_, err := r.ReadAll()
	return err == nil
}
