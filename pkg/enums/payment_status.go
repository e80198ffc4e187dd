package enums

// PaymentStatus is free text maintained outside this service; new orders start Pending.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
)

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}
