package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pacta-app/tableview/internal/tableview"
)

// WriteJSON writes records as a JSON array of objects whose keys follow the
// column order.
func WriteJSON(w io.Writer, records []*tableview.Record, cols []tableview.Column) error {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, r := range records {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, col := range cols {
			if j > 0 {
				buf.WriteString(", ")
			}
			k, err := json.Marshal(col.Key)
			if err != nil {
				return fmt.Errorf("encode key %q: %w", col.Key, err)
			}
			v, err := json.Marshal(r.Value(col.Key))
			if err != nil {
				return fmt.Errorf("encode row %q: %w", r.ID, err)
			}
			buf.Write(k)
			buf.WriteString(": ")
			buf.Write(v)
		}
		buf.WriteString("}")
	}
	if len(records) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteYAML writes records as a YAML sequence of mappings in column order.
func WriteYAML(w io.Writer, records []*tableview.Record, cols []tableview.Column) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, r := range records {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, col := range cols {
			val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.Value(col.Key)}
			if strings.Contains(val.Value, "\n") {
				val.Style = yaml.LiteralStyle
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col.Key},
				val,
			)
		}
		seq.Content = append(seq.Content, m)
	}
	if len(records) == 0 {
		seq.Style = yaml.FlowStyle
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{seq}}); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	return nil
}
