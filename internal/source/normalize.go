// Package source provides the data source gateway: a uniform fetch
// interface over the warehouse, spreadsheets, relational databases, and
// flat files, returning a normalized tabular result.
package source

import (
	"fmt"
	"strconv"
	"time"
)

// normalizeValue converts native driver values into the JSON-friendly
// shapes the tabular result promises: timestamps become RFC 3339 strings,
// byte slices become strings, nested maps are flattened with dotted keys.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case nil:
		return nil
	case time.Time:
		return n.UTC().Format(time.RFC3339)
	case []byte:
		return string(n)
	case map[string]any:
		flat := make(map[string]any, len(n))
		flattenInto(flat, "", n)
		return flat
	default:
		return v
	}
}

func flattenInto(dst map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flattenInto(dst, key, child)
			continue
		}
		dst[key] = normalizeValue(v)
	}
}

// coerceNumeric parses a string into a float64 where possible, otherwise
// returns the input unchanged. Warehouse results arrive as strings even
// for numeric columns.
func coerceNumeric(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// cellString renders a spreadsheet cell as a string for header rows.
func cellString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
