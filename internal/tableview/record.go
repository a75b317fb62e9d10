package tableview

import (
	"strings"
)

// Column describes one table header.
type Column struct {
	Key      string
	Header   string
	Type     ValueType
	Sortable bool
}

// Record indexes one table row: its id, the lowercased text used by search
// and the per-column cell text. Ref points back at the row it was captured
// from and is never inspected here.
type Record struct {
	ID         string
	SearchText string
	Data       map[string]string
	Keys       []string
	Ref        any
}

// NewRecord builds a record from parallel key/value slices. Values are
// trimmed; a repeated key keeps its first position and its last value.
func NewRecord(id string, keys, values []string, ref any) *Record {
	r := &Record{
		ID:   id,
		Data: make(map[string]string, len(keys)),
		Ref:  ref,
	}
	texts := make([]string, 0, len(values))
	for i, key := range keys {
		val := ""
		if i < len(values) {
			val = strings.TrimSpace(values[i])
		}
		if _, seen := r.Data[key]; !seen {
			r.Keys = append(r.Keys, key)
		}
		r.Data[key] = val
		texts = append(texts, val)
	}
	r.SearchText = strings.ToLower(strings.Join(texts, " "))
	return r
}

// Value returns the text of column key, or "".
func (r *Record) Value(key string) string {
	if r == nil {
		return ""
	}
	return r.Data[key]
}
