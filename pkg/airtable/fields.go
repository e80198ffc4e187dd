package airtable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Fields is the raw field map of a record as decoded with json.Number for numerics.
type Fields map[string]any

// String returns the field as a string. Absent or non-string values yield "".
func (f Fields) String(name string) string {
	switch v := f[name].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Int returns the field as an int. Absent fields report ok=false.
func (f Fields) Int(name string) (int, bool, error) {
	raw, ok := f[name]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true, nil
		}
		d, err := decimal.NewFromString(v.String())
		if err != nil || !d.IsInteger() {
			return 0, true, fmt.Errorf("field %q: %q is not an integer", name, v.String())
		}
		return int(d.IntPart()), true, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, true, fmt.Errorf("field %q: %v is not an integer", name, v)
		}
		return int(v), true, nil
	case int:
		return v, true, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, true, fmt.Errorf("field %q: %w", name, err)
		}
		return n, true, nil
	default:
		return 0, true, fmt.Errorf("field %q: unexpected type %T", name, raw)
	}
}

// Decimal returns the field as an exact decimal. Absent fields report ok=false.
func (f Fields) Decimal(name string) (decimal.Decimal, bool, error) {
	raw, ok := f[name]
	if !ok || raw == nil {
		return decimal.Zero, false, nil
	}
	switch v := raw.(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, true, fmt.Errorf("field %q: %w", name, err)
		}
		return d, true, nil
	case float64:
		return decimal.NewFromFloat(v), true, nil
	case int:
		return decimal.NewFromInt(int64(v)), true, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, true, fmt.Errorf("field %q: %w", name, err)
		}
		return d, true, nil
	case decimal.Decimal:
		return v, true, nil
	default:
		return decimal.Zero, true, fmt.Errorf("field %q: unexpected type %T", name, raw)
	}
}

// StringSlice returns a linked-record or multi-select field as strings.
// A single string value is returned as a one-element slice.
func (f Fields) StringSlice(name string) []string {
	switch v := f[name].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// FirstString returns the first element of a linked-record field, or "".
func (f Fields) FirstString(name string) string {
	values := f.StringSlice(name)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// AttachmentURL returns the url of the first attachment in the field, or "".
func (f Fields) AttachmentURL(name string) string {
	list, ok := f[name].([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return ""
	}
	url, _ := first["url"].(string)
	return url
}

// Has reports whether the field is present and non-null.
func (f Fields) Has(name string) bool {
	v, ok := f[name]
	return ok && v != nil
}
