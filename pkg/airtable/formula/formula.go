// Package formula builds Airtable filterByFormula expressions from structured
// predicates so caller-supplied values are always quoted and escaped.
package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a formula fragment. Construction errors are carried until Build.
type Expr struct {
	text string
	err  error
}

// Build renders the expression or reports the first construction error.
func (e Expr) Build() (string, error) {
	if e.err != nil {
		return "", e.err
	}
	if e.text == "" {
		return "", fmt.Errorf("formula: empty expression")
	}
	return e.text, nil
}

// String renders the expression, returning "" when it is invalid.
func (e Expr) String() string {
	text, err := e.Build()
	if err != nil {
		return ""
	}
	return text
}

// Eq compares a field to a literal value with Airtable's = operator.
func Eq(field string, value any) Expr {
	ref, err := FieldRef(field)
	if err != nil {
		return Expr{err: err}
	}
	lit, err := Literal(value)
	if err != nil {
		return Expr{err: err}
	}
	return Expr{text: ref + " = " + lit}
}

// And joins expressions with AND(); a single expression is returned unchanged.
func And(exprs ...Expr) Expr {
	return join("AND", exprs)
}

// Or joins expressions with OR(); a single expression is returned unchanged.
func Or(exprs ...Expr) Expr {
	return join("OR", exprs)
}

func join(fn string, exprs []Expr) Expr {
	if len(exprs) == 0 {
		return Expr{err: fmt.Errorf("formula: %s needs at least one expression", fn)}
	}
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		text, err := e.Build()
		if err != nil {
			return Expr{err: err}
		}
		parts = append(parts, text)
	}
	if len(parts) == 1 {
		return Expr{text: parts[0]}
	}
	return Expr{text: fn + "(" + strings.Join(parts, ", ") + ")"}
}

// FieldRef wraps a field name in braces. Names containing a closing brace
// cannot be referenced and are rejected.
func FieldRef(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("formula: field name is required")
	}
	if strings.ContainsAny(name, "{}") {
		return "", fmt.Errorf("formula: field name %q contains a brace", name)
	}
	return "{" + name + "}", nil
}

// Literal renders a Go value as a formula literal.
func Literal(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return Quote(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case bool:
		if v {
			return "TRUE()", nil
		}
		return "FALSE()", nil
	case fmt.Stringer:
		return Quote(v.String()), nil
	}
	return "", fmt.Errorf("formula: unsupported literal type %T", value)
}

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Quote returns s as a double-quoted formula string literal.
func Quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}
