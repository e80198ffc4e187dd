package env

import "testing"

func TestGetFallsBackWhenUnsetOrBlank(t *testing.T) {
	t.Setenv("BULKBUDDY_TEST_FORMAT", "   ")
	if got := Get("BULKBUDDY_TEST_FORMAT", "json"); got != "json" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}

	t.Setenv("BULKBUDDY_TEST_FORMAT", " console ")
	if got := Get("BULKBUDDY_TEST_FORMAT", "json"); got != "console" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}
