package schema

// OrderStatus tracks the lifecycle of an order.
type OrderStatus uint16

const (
	OrderStatusPending OrderStatus = iota
	OrderStatusActive
	OrderStatusPartial
	OrderStatusFilled
	OrderStatusCancelled
	OrderStatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "PENDING"
	case OrderStatusActive:
		return "ACTIVE"
	case OrderStatusPartial:
		return "PARTIAL"
	case OrderStatusFilled:
		return "FILLED"
	case OrderStatusCancelled:
		return "CANCELLED"
	case OrderStatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from -> to is a legal lifecycle step.
//
//	PENDING -> ACTIVE | REJECTED | CANCELLED
//	ACTIVE  -> PARTIAL | FILLED | CANCELLED
//	PARTIAL -> PARTIAL | FILLED | CANCELLED
func CanTransition(from, to OrderStatus) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusActive || to == OrderStatusRejected || to == OrderStatusCancelled
	case OrderStatusActive:
		return to == OrderStatusPartial || to == OrderStatusFilled || to == OrderStatusCancelled
	case OrderStatusPartial:
		return to == OrderStatusPartial || to == OrderStatusFilled || to == OrderStatusCancelled
	default:
		return false
	}
}
