package tableview

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	leadingFloat   = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)
	nonCurrencyRun = regexp.MustCompile(`[^0-9.\-]`)
)

// sortKey is a cell value coerced for one ValueType.
type sortKey struct {
	num   float64
	text  string
	at    time.Time
	valid bool
}

// parseNumber mirrors parseFloat: the longest numeric prefix wins and
// anything unparsable is 0.
func parseNumber(s string) float64 {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseCurrency drops everything but digits, dots and minus signs first.
func parseCurrency(s string) float64 {
	return parseNumber(nonCurrencyRun.ReplaceAllString(s, ""))
}

func parseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func coerce(val string, typ ValueType, layouts []string) sortKey {
	switch typ {
	case TypeNumber:
		return sortKey{num: parseNumber(val), valid: true}
	case TypeCurrency:
		return sortKey{num: parseCurrency(val), valid: true}
	case TypeDate:
		t, ok := parseDate(val, layouts)
		return sortKey{at: t, valid: ok}
	default:
		return sortKey{text: strings.ToLower(val), valid: true}
	}
}

// compareKeys orders two coerced values ascending. Invalid dates sort before
// every valid date and equal to each other.
func compareKeys(a, b sortKey, typ ValueType) int {
	switch typ {
	case TypeNumber, TypeCurrency:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case TypeDate:
		switch {
		case !a.valid && !b.valid:
			return 0
		case !a.valid:
			return -1
		case !b.valid:
			return 1
		}
		return a.at.Compare(b.at)
	default:
		return strings.Compare(a.text, b.text)
	}
}

// ParseNumber returns the numeric prefix of s, or 0.
func ParseNumber(s string) float64 { return parseNumber(s) }

// ParseCurrency returns the amount in s after dropping currency symbols and
// thousands separators, or 0.
func ParseCurrency(s string) float64 { return parseCurrency(s) }
