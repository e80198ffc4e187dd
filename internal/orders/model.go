package orders

import (
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/pools"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/enums"
	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Orders table fields.
const (
	FieldOrderID       = "Order ID"
	FieldCustomer      = "Customer"
	FieldOrderType     = "Order Type"
	FieldStatus        = "Status"
	FieldTotal         = "Total Amount"
	FieldPaymentStatus = "Payment Status"
	FieldPoolGroup     = "Pool Group"
	FieldDeliveryDate  = "Delivery Date"
	FieldOrderItems    = "OrderItem"
)

// OrderItem table fields.
const (
	FieldItemOrder    = "Order"
	FieldItemProducts = "Products"
	FieldItemQuantity = "Quantity"
)

// Products table fields read when resolving items.
const (
	FieldProductName  = "Product Name"
	FieldProductPrice = "Price (per unit)"
)

// DeliveryDateLayout is the wire format of the Delivery Date field.
const DeliveryDateLayout = "2006-01-02"

// CartLine is one product and quantity from the client's cart. UnitPrice is
// the price the client saw when the product was added.
type CartLine struct {
	ProductRef string          `json:"productRef"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

// CreateOrderInput is a validated order submission.
type CreateOrderInput struct {
	Customer     string
	Kind         enums.OrderType
	PoolRef      string
	Lines        []CartLine
	DeliveryDate string
}

// OrderRef identifies a fully committed order.
type OrderRef struct {
	RecordID  string          `json:"recordId"`
	OrderID   int             `json:"orderId"`
	Kind      enums.OrderType `json:"kind"`
	Total     decimal.Decimal `json:"total"`
	PoolRef   *string         `json:"poolRef"`
	ItemRefs  []string        `json:"itemRefs"`
	JournalID uuid.UUID       `json:"journalId"`
}

// ItemView is a denormalized order line for display.
type ItemView struct {
	ItemRef     string          `json:"itemRef"`
	ProductRef  string          `json:"productRef"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// OrderView is one order with its items and, for pooled orders, its pool.
type OrderView struct {
	RecordID      string          `json:"recordId"`
	OrderID       int             `json:"orderId"`
	Customer      string          `json:"customer"`
	Kind          enums.OrderType `json:"kind"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	PaymentStatus string          `json:"paymentStatus"`
	PoolRef       *string         `json:"poolRef"`
	DeliveryDate  *string         `json:"deliveryDate"`
	Pool          *pools.Pool     `json:"pool"`
	Items         []ItemView      `json:"items"`
}

type orderRecord struct {
	view     OrderView
	itemRefs []string
}

func orderFromRecord(rec airtable.Record) (orderRecord, error) {
	orderID, _, err := rec.Fields.Int(FieldOrderID)
	if err != nil {
		return orderRecord{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unreadable order id")
	}
	total, _, err := rec.Fields.Decimal(FieldTotal)
	if err != nil {
		return orderRecord{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unreadable order total")
	}

	view := OrderView{
		RecordID:      rec.ID,
		OrderID:       orderID,
		Customer:      rec.Fields.String(FieldCustomer),
		Kind:          enums.OrderType(rec.Fields.String(FieldOrderType)),
		Status:        rec.Fields.String(FieldStatus),
		Total:         total,
		PaymentStatus: rec.Fields.String(FieldPaymentStatus),
		PoolRef:       optionalString(rec.Fields, FieldPoolGroup),
		DeliveryDate:  optionalString(rec.Fields, FieldDeliveryDate),
		Items:         []ItemView{},
	}
	return orderRecord{view: view, itemRefs: rec.Fields.StringSlice(FieldOrderItems)}, nil
}

func optionalString(fields airtable.Fields, name string) *string {
	v := fields.String(name)
	if v == "" {
		return nil
	}
	return &v
}
