package schema

// Side describes order direction.
type Side uint16

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

// Sign returns +1 for buys, -1 for sells and 0 otherwise.
func (s Side) Sign() float64 {
	switch s {
	case SideBuy:
		return 1
	case SideSell:
		return -1
	default:
		return 0
	}
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// OrderType describes order type. Only market and limit orders are matched.
type OrderType uint16

const (
	OrderTypeUnknown OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	OrderTypeStop
	OrderTypeStopLimit
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeStop:
		return "STOP"
	case OrderTypeStopLimit:
		return "STOP_LIMIT"
	default:
		return "UNKNOWN"
	}
}

// Order is a simulated order. ID, ActivationTime and Status are owned by the
// matching engine; callers fill in the rest before submission.
type Order struct {
	ID             uint64
	SymbolID       uint32
	Side           Side
	Type           OrderType
	Price          float64
	Size           float64
	Timestamp      uint64
	ActivationTime uint64
	Status         OrderStatus
	QueuePosition  float64
}

// Notional returns size times price.
func (o Order) Notional() float64 {
	return o.Size * o.Price
}

// Fill is an execution of an order's whole remaining size at one price.
// Slippage is in basis points, positive when adverse to the order.
type Fill struct {
	OrderID   uint64
	SymbolID  uint32
	Side      Side
	Price     float64
	Volume    float64
	Timestamp uint64
	Slippage  float64
}

// Notional returns price times volume.
func (f Fill) Notional() float64 {
	return f.Price * f.Volume
}

// Position is the per-symbol holding. AvgPrice is only meaningful while
// Quantity is not zero.
type Position struct {
	Quantity    float64
	AvgPrice    float64
	RealizedPnL float64
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Timestamp     uint64
	Equity        float64
	Cash          float64
	UnrealizedPnL float64
}

// RiskAction is the outcome of a risk decision.
type RiskAction uint16

const (
	RiskActionUnknown RiskAction = iota
	RiskActionAllow
	RiskActionDeny
)

// RiskReason is a coarse reason code for risk decisions.
type RiskReason uint16

const (
	RiskReasonNone RiskReason = iota
	RiskReasonHalted
	RiskReasonInvalidOrder
	RiskReasonMaxOrderSize
	RiskReasonPositionLimit
	RiskReasonMaxNotional
	RiskReasonDrawdown
	RiskReasonDailyLoss
)

// MaxRiskReason is the largest defined RiskReason.
const MaxRiskReason = RiskReasonDailyLoss

func (r RiskReason) String() string {
	switch r {
	case RiskReasonNone:
		return "none"
	case RiskReasonHalted:
		return "halted"
	case RiskReasonInvalidOrder:
		return "invalid order"
	case RiskReasonMaxOrderSize:
		return "max order size"
	case RiskReasonPositionLimit:
		return "position limit"
	case RiskReasonMaxNotional:
		return "max notional"
	case RiskReasonDrawdown:
		return "drawdown"
	case RiskReasonDailyLoss:
		return "daily loss"
	default:
		return "unknown"
	}
}

// RiskDecision is the result of a risk check.
type RiskDecision struct {
	OrderID    uint64
	SymbolID   uint32
	Action     RiskAction
	Reason     RiskReason
	Proposed   float64
	CurrentPos float64
	Limit      float64
	Observed   float64
}

// Allowed reports whether the decision lets the order through.
func (d RiskDecision) Allowed() bool {
	return d.Action == RiskActionAllow
}
