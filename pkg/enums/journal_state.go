package enums

import "fmt"

// JournalState records how far an order commit progressed against the store.
type JournalState string

const (
	JournalStatePending      JournalState = "pending"
	JournalStateOrderCreated JournalState = "order_created"
	JournalStateItemsCreated JournalState = "items_created"
	JournalStateCommitted    JournalState = "committed"
	JournalStateAbandoned    JournalState = "abandoned"
)

var validJournalStates = []JournalState{
	JournalStatePending,
	JournalStateOrderCreated,
	JournalStateItemsCreated,
	JournalStateCommitted,
	JournalStateAbandoned,
}

// String implements fmt.Stringer.
func (j JournalState) String() string {
	return string(j)
}

// IsValid reports whether the value is a known JournalState.
func (j JournalState) IsValid() bool {
	for _, candidate := range validJournalStates {
		if candidate == j {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further reconciliation applies.
func (j JournalState) IsTerminal() bool {
	return j == JournalStateCommitted || j == JournalStateAbandoned
}

// ParseJournalState converts raw input into a JournalState.
func ParseJournalState(value string) (JournalState, error) {
	for _, candidate := range validJournalStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid journal state %q", value)
}
