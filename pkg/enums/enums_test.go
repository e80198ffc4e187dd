package enums

import "testing"

func TestParseOrderType(t *testing.T) {
	cases := map[string]OrderType{
		"single": OrderTypeSingle,
		"Single": OrderTypeSingle,
		"pool":   OrderTypePooled,
		"Pooled": OrderTypePooled,
	}
	for raw, want := range cases {
		got, err := ParseOrderType(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s got %s", raw, want, got)
		}
	}
	if _, err := ParseOrderType("group"); err == nil {
		t.Fatal("expected error for unknown order type")
	}
}

func TestPoolStatusIsOpenIsExact(t *testing.T) {
	if !PoolStatusOpen.IsOpen() {
		t.Fatal("Open should be open")
	}
	for _, s := range []PoolStatus{"open", "Open ", "Opening", PoolStatusWaitingForAcceptance, PoolStatusClosed} {
		if s.IsOpen() {
			t.Fatalf("%q must not count as open", s)
		}
	}
}

func TestJournalStateTerminal(t *testing.T) {
	if !JournalStateCommitted.IsTerminal() || !JournalStateAbandoned.IsTerminal() {
		t.Fatal("committed and abandoned are terminal")
	}
	if JournalStateItemsCreated.IsTerminal() {
		t.Fatal("items_created is resumable")
	}
	if _, err := ParseJournalState("bogus"); err == nil {
		t.Fatal("expected parse error")
	}
}
