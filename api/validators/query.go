package validators

import (
	"net/http"
	"unicode/utf8"

	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
)

// RequiredQuery returns a query parameter exactly as sent. It must be
// non-empty and at most maxLen characters; surrounding whitespace is kept
// and counts toward the limit.
func RequiredQuery(r *http.Request, key string, maxLen int) (string, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "query parameter is required").WithDetails(map[string]any{"field": key})
	}
	if maxLen > 0 && utf8.RuneCountInString(value) > maxLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "query parameter too long").WithDetails(map[string]any{"field": key, "max": maxLen})
	}
	return value, nil
}
