package airtable

import (
	"encoding/json"
	"strconv"
	"strings"
)

// fields wraps a record's field map with typed accessors.
type fields map[string]any

// str returns the first non-empty value among keys, rendered as text.
func (f fields) str(keys ...string) string {
	for _, k := range keys {
		switch v := f[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// num reads a numeric field; numeric strings are parsed, anything else is 0.
func (f fields) num(key string) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return n
		}
	}
	return 0
}

// links reads a linked-record field as a list of record ids.
func (f fields) links(key string) []string {
	raw, ok := f[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// extra returns every field not in known, or nil when nothing is left.
func (f fields) extra(known ...string) map[string]any {
	skip := make(map[string]struct{}, len(known))
	for _, k := range known {
		skip[k] = struct{}{}
	}
	var out map[string]any
	for k, v := range f {
		if _, ok := skip[k]; ok {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = v
	}
	return out
}

// createdTime prefers the _createdTime field over the record metadata.
func createdTime(r Record) string {
	if v := fields(r.Fields).str("_createdTime"); v != "" {
		return v
	}
	return r.CreatedTime
}
