package enums

// PoolStatus tracks a pool from request to operator acceptance.
type PoolStatus string

const (
	PoolStatusWaitingForAcceptance PoolStatus = "Waiting For Acceptance"
	PoolStatusOpen                 PoolStatus = "Open"
	PoolStatusClosed               PoolStatus = "Closed"
)

// DefaultDropOffLocation is stored on new pools until an operator sets one.
const DefaultDropOffLocation = "To be determined"

// String implements fmt.Stringer.
func (p PoolStatus) String() string {
	return string(p)
}

// IsOpen is an exact, case-sensitive comparison against "Open".
func (p PoolStatus) IsOpen() bool {
	return p == PoolStatusOpen
}
