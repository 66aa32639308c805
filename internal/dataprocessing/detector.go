package dataprocessing

import (
	"strconv"
	"strings"
	"time"
)

// DetectHeaderRow returns the zero-based index of the first row whose first
// cell, trimmed, equals one of tokens (ignoring case). Cells that hold no text
// never match. The second result is false when no row matches; the caller
// decides what an undetectable file means.
func DetectHeaderRow(rows [][]any, tokens []string) (int, bool) {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		text, ok := CellText(row[0])
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		for _, token := range tokens {
			if strings.EqualFold(text, token) {
				return i, true
			}
		}
	}
	return -1, false
}

// CellText returns the string form of a cell that holds text.
func CellText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return "", false
	}
}

// ValueText renders any cell as uninterpreted text for staging. Nil becomes "".
func ValueText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return ""
	}
}
