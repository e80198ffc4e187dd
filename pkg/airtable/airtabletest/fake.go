// Package airtabletest provides an in-memory table for exercising code that
// talks to the store without network access.
package airtabletest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable"
	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
)

// Hook runs before each call. A non-nil error fails the call. call is the
// 1-based count of calls made with that method so far.
type Hook func(method string, call int, fields airtable.Fields) error

// Table is a concurrency-safe in-memory table. It understands the formulas
// produced by the formula package: {Field} = literal, optionally inside AND().
type Table struct {
	Name string
	Hook Hook

	mu      sync.Mutex
	seq     int
	order   []string
	records map[string]airtable.Record
	calls   map[string]int
	queries []airtable.ListParams
}

func NewTable(name string) *Table {
	return &Table{
		Name:    name,
		records: map[string]airtable.Record{},
		calls:   map[string]int{},
	}
}

// Seed inserts a record with a fixed id and returns it.
func (t *Table) Seed(id string, fields airtable.Fields) airtable.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := airtable.Record{ID: id, Fields: cloneFields(fields)}
	if _, exists := t.records[id]; !exists {
		t.order = append(t.order, id)
	}
	t.records[id] = rec
	return rec
}

// Records returns every stored record in insertion order.
func (t *Table) Records() []airtable.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]airtable.Record, 0, len(t.order))
	for _, id := range t.order {
		rec := t.records[id]
		rec.Fields = cloneFields(rec.Fields)
		out = append(out, rec)
	}
	return out
}

// Record returns one stored record.
func (t *Table) Record(id string) (airtable.Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if ok {
		rec.Fields = cloneFields(rec.Fields)
	}
	return rec, ok
}

// Delete removes a record, simulating an external deletion.
func (t *Table) Delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Calls returns how many times method was invoked.
func (t *Table) Calls(method string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[method]
}

// Queries returns the list params received so far.
func (t *Table) Queries() []airtable.ListParams {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]airtable.ListParams(nil), t.queries...)
}

func (t *Table) before(method string, fields airtable.Fields) error {
	t.calls[method]++
	if t.Hook == nil {
		return nil
	}
	if err := t.Hook(method, t.calls[method], fields); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("airtable %s %s failed", method, t.Name))
	}
	return nil
}

func (t *Table) List(_ context.Context, params airtable.ListParams) ([]airtable.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queries = append(t.queries, params)
	if err := t.before(http.MethodGet, nil); err != nil {
		return nil, err
	}

	match, err := compile(params.Formula)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency,
			&airtable.APIError{Status: http.StatusUnprocessableEntity, Type: "INVALID_FILTER_BY_FORMULA", Message: err.Error()},
			"airtable GET "+t.Name+" failed")
	}

	out := []airtable.Record{}
	for _, id := range t.order {
		rec := t.records[id]
		if !match(rec.Fields) {
			continue
		}
		rec.Fields = cloneFields(rec.Fields)
		out = append(out, rec)
		if params.MaxRecords > 0 && len(out) >= params.MaxRecords {
			break
		}
	}
	return out, nil
}

func (t *Table) FirstPage(ctx context.Context, params airtable.ListParams) ([]airtable.Record, error) {
	return t.List(ctx, params)
}

func (t *Table) Get(_ context.Context, id string) (*airtable.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.before(http.MethodGet, nil); err != nil {
		return nil, err
	}
	rec, ok := t.records[id]
	if !ok {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound,
			&airtable.APIError{Status: http.StatusNotFound, Type: "NOT_FOUND"},
			"airtable GET "+t.Name+" failed")
	}
	rec.Fields = cloneFields(rec.Fields)
	return &rec, nil
}

func (t *Table) Create(_ context.Context, fields airtable.Fields) (*airtable.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.before(http.MethodPost, fields); err != nil {
		return nil, err
	}
	t.seq++
	id := fmt.Sprintf("rec%s%04d", strings.ReplaceAll(t.Name, " ", ""), t.seq)
	rec := airtable.Record{ID: id, Fields: cloneFields(fields)}
	t.records[id] = rec
	t.order = append(t.order, id)
	rec.Fields = cloneFields(rec.Fields)
	return &rec, nil
}

func (t *Table) Update(_ context.Context, id string, fields airtable.Fields) (*airtable.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.before(http.MethodPatch, fields); err != nil {
		return nil, err
	}
	rec, ok := t.records[id]
	if !ok {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound,
			&airtable.APIError{Status: http.StatusNotFound, Type: "NOT_FOUND"},
			"airtable PATCH "+t.Name+" failed")
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	t.records[id] = rec
	out := rec
	out.Fields = cloneFields(rec.Fields)
	return &out, nil
}

func cloneFields(in airtable.Fields) airtable.Fields {
	out := airtable.Fields{}
	for k, v := range in {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		out[k] = v
	}
	return out
}

type matcher func(airtable.Fields) bool

func compile(text string) (matcher, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return func(airtable.Fields) bool { return true }, nil
	}
	if strings.HasPrefix(text, "AND(") && strings.HasSuffix(text, ")") {
		parts, err := splitArgs(text[len("AND(") : len(text)-1])
		if err != nil {
			return nil, err
		}
		matchers := make([]matcher, 0, len(parts))
		for _, part := range parts {
			m, err := compile(part)
			if err != nil {
				return nil, err
			}
			matchers = append(matchers, m)
		}
		return func(f airtable.Fields) bool {
			for _, m := range matchers {
				if !m(f) {
					return false
				}
			}
			return true
		}, nil
	}
	return compileEq(text)
}

func compileEq(text string) (matcher, error) {
	if !strings.HasPrefix(text, "{") {
		return nil, fmt.Errorf("unsupported formula %q", text)
	}
	end := strings.Index(text, "}")
	if end < 0 {
		return nil, fmt.Errorf("unterminated field in %q", text)
	}
	field := text[1:end]
	rest := strings.TrimSpace(text[end+1:])
	if !strings.HasPrefix(rest, "=") {
		return nil, fmt.Errorf("unsupported operator in %q", text)
	}
	lit := strings.TrimSpace(rest[1:])

	if strings.HasPrefix(lit, `"`) {
		want, err := unquote(lit)
		if err != nil {
			return nil, err
		}
		return func(f airtable.Fields) bool {
			s, ok := f[field].(string)
			return ok && s == want
		}, nil
	}

	want, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("unsupported literal %q", lit)
	}
	return func(f airtable.Fields) bool {
		switch v := f[field].(type) {
		case int:
			return int64(v) == want
		case int64:
			return v == want
		case json.Number:
			n, err := v.Int64()
			return err == nil && n == want
		}
		return false
	}, nil
}

func unquote(lit string) (string, error) {
	if len(lit) < 2 || !strings.HasSuffix(lit, `"`) {
		return "", fmt.Errorf("unterminated string %q", lit)
	}
	body := lit[1 : len(lit)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '"' {
			return "", fmt.Errorf("unescaped quote in %q", lit)
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("dangling escape in %q", lit)
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

// splitArgs splits top-level comma separated arguments, honoring string literals.
func splitArgs(s string) ([]string, error) {
	var (
		parts   []string
		depth   int
		inStr   bool
		escaped bool
		start   int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inStr && c == '\\':
			escaped = true
		case c == '"':
			inStr = !inStr
		case inStr:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if inStr || depth != 0 {
		return nil, fmt.Errorf("unbalanced formula %q", s)
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts, nil
}
