package strategy

import "felix/internal/schema"

// Exchange is the view of the simulation a strategy trades against.
// Orders are stamped with the current tick time on submission.
type Exchange interface {
	Submit(order schema.Order) (uint64, schema.RiskDecision)
	Cancel(orderID uint64) bool
	Order(orderID uint64) (schema.Order, bool)
	Position(symbolID uint32) schema.Position
	MarketState(symbolID uint32) schema.MarketState
}

// Strategy makes trading decisions on every tick.
type Strategy interface {
	OnTick(tick schema.Tick, ex Exchange)
	OnFill(fill schema.Fill)
}
