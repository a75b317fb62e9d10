package loader

import (
	"regexp"
	"strings"
	"time"

	"github.com/pacta-app/tableview/internal/tableview"
)

var (
	numberCell   = regexp.MustCompile(`^[-+]?(\d+(\.\d+)?|\.\d+)([eE][-+]?\d+)?$`)
	currencyCell = regexp.MustCompile(`^-?\s*([$€£]|USD|EUR|CUP)\s?-?[\d.,]+$|^-?[\d.,]+\s?([$€£]|USD|EUR|CUP)$`)
)

// InferTypes sets the type of every untyped column from its non-empty
// cells: a type is chosen only when every cell fits it.
func InferTypes(t *Table) {
	for i := range t.Columns {
		if t.Columns[i].Type != "" {
			continue
		}
		t.Columns[i].Type = inferColumn(t, i)
	}
}

func inferColumn(t *Table, col int) tableview.ValueType {
	number, currency, date := true, true, true
	seen := 0
	for _, row := range t.Rows {
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		seen++
		number = number && numberCell.MatchString(v)
		currency = currency && currencyCell.MatchString(v)
		date = date && isDate(v)
		if !number && !currency && !date {
			return tableview.TypeText
		}
	}
	switch {
	case seen == 0:
		return tableview.TypeText
	case number:
		return tableview.TypeNumber
	case currency:
		return tableview.TypeCurrency
	case date:
		return tableview.TypeDate
	}
	return tableview.TypeText
}

func isDate(v string) bool {
	for _, layout := range tableview.DefaultDateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}
