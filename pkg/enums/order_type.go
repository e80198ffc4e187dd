package enums

import (
	"fmt"
	"strings"
)

// OrderType distinguishes single-drop orders from orders grouped under a pool.
type OrderType string

const (
	OrderTypeSingle OrderType = "Single"
	OrderTypePooled OrderType = "Pooled"
)

var validOrderTypes = []OrderType{
	OrderTypeSingle,
	OrderTypePooled,
}

// String implements fmt.Stringer.
func (o OrderType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderType.
func (o OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderType accepts the stored values ("Single", "Pooled") and the
// lowercase client spellings ("single", "pool", "pooled").
func ParseOrderType(value string) (OrderType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "single":
		return OrderTypeSingle, nil
	case "pool", "pooled":
		return OrderTypePooled, nil
	}
	return "", fmt.Errorf("invalid order type %q", value)
}
