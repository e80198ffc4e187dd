package enums

// OrderStatus is the lifecycle status of an order. Values other than Pending
// are set by operators directly in the store, so the type is open-ended.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "Pending"
)

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}
