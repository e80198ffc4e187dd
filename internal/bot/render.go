package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/AlazarG19/Test-Bulk-Buddy/internal/orders"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/enums"
)

// maxMessageLen stays under the chat API's 4096 character limit.
const maxMessageLen = 4000

// renderOrders formats an order history into messages of at most
// maxMessageLen bytes. Orders are kept whole unless one alone is too long,
// in which case its lines continue in the next message.
func renderOrders(views []orders.OrderView) []string {
	if len(views) == 0 {
		return []string{"You have no orders yet."}
	}

	var (
		messages []string
		current  strings.Builder
	)
	current.WriteString(fmt.Sprintf("Your orders (%d):", len(views)))
	for _, view := range views {
		for _, piece := range splitOrder(view.OrderID, renderOrder(view)) {
			if current.Len()+len(piece)+2 > maxMessageLen {
				messages = append(messages, current.String())
				current.Reset()
			} else {
				current.WriteString("\n\n")
			}
			current.WriteString(piece)
		}
	}
	return append(messages, current.String())
}

// splitOrder breaks an order block into pieces that each fit one message.
// Continuation pieces start with a header naming the order.
func splitOrder(orderID int, block string) []string {
	if len(block) <= maxMessageLen {
		return []string{block}
	}
	header := fmt.Sprintf("Order #%d (continued)", orderID)
	lineLimit := maxMessageLen - len(header) - 1

	var (
		pieces []string
		piece  strings.Builder
	)
	for _, line := range strings.Split(block, "\n") {
		line = truncateBytes(line, lineLimit)
		if piece.Len() > 0 && piece.Len()+1+len(line) > maxMessageLen {
			pieces = append(pieces, piece.String())
			piece.Reset()
			piece.WriteString(header)
		}
		if piece.Len() > 0 {
			piece.WriteByte('\n')
		}
		piece.WriteString(line)
	}
	return append(pieces, piece.String())
}

// truncateBytes cuts s to at most limit bytes on a rune boundary.
func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func renderOrder(view orders.OrderView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%d (%s) - %s", view.OrderID, view.Kind, view.Status)
	for _, item := range view.Items {
		fmt.Fprintf(&b, "\n  %s x%d @ %s", item.ProductName, item.Quantity, item.UnitPrice.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s | Payment: %s", view.Total.StringFixed(2), view.PaymentStatus)
	if view.Kind == enums.OrderTypePooled {
		switch {
		case view.Pool != nil:
			fmt.Fprintf(&b, "\nPool %s, drop-off: %s", view.Pool.PoolID, dropOff(view.Pool.DropOffLocation))
		case view.PoolRef != nil:
			fmt.Fprintf(&b, "\nPool %s (details unavailable)", *view.PoolRef)
		}
	}
	if view.DeliveryDate != nil {
		fmt.Fprintf(&b, "\nDelivery: %s", *view.DeliveryDate)
	}
	return b.String()
}

func dropOff(location string) string {
	if strings.TrimSpace(location) == "" {
		return enums.DefaultDropOffLocation
	}
	return location
}
