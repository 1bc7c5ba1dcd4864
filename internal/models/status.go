package models

import (
	"fmt"
	"strings"
)

// OrderStatus is the closed set of order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusPacking   OrderStatus = "packing"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) String() string {
	return string(s)
}

// statusTransitions is the fixed adjacency table. Delivered and cancelled
// are terminal. The table is enforced by the order store on every status
// update; any UI consuming it is advisory only.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPacking, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusPacking, OrderStatusCancelled},
	OrderStatusPacking:   {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// Next returns the statuses reachable from s. The result is a copy; callers
// may not mutate the table.
func (s OrderStatus) Next() []OrderStatus {
	next, ok := statusTransitions[s]
	if !ok {
		return nil
	}
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is an allowed step.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.
func (s OrderStatus) IsTerminal() bool {
	next, ok := statusTransitions[s]
	return ok && len(next) == 0
}

// Valid reports whether s is a member of the enumeration.
func (s OrderStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// ParseStatus normalizes a wire status string. The admin and producer
// surfaces historically used two vocabularies; "processing" is accepted as
// an alias of packing and "confirmed" as an alias of paid.
func ParseStatus(raw string) (OrderStatus, error) {
	switch s := OrderStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusPacking,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return s, nil
	case "processing":
		return OrderStatusPacking, nil
	case "confirmed":
		return OrderStatusPaid, nil
	default:
		return "", fmt.Errorf("unknown order status %q", raw)
	}
}

// Label returns the Greek display label. The switch is exhaustive over the
// enumeration; an out-of-set value is a programming error.
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusPending:
		return "Σε Εκκρεμότητα"
	case OrderStatusPaid:
		return "Πληρωμένη"
	case OrderStatusPacking:
		return "Σε Συσκευασία"
	case OrderStatusShipped:
		return "Απεσταλμένη"
	case OrderStatusDelivered:
		return "Παραδομένη"
	case OrderStatusCancelled:
		return "Ακυρωμένη"
	}
	panic(fmt.Sprintf("models: no label for status %q", string(s)))
}
