package risk

import (
	"math"

	"github.com/yanun0323/logs"

	"felix/internal/schema"
)

// Limits defines the static risk limits of a run.
type Limits struct {
	MaxOrderSize    float64 `json:"maxOrderSize" yaml:"maxOrderSize"`
	MaxPositionSize float64 `json:"maxPositionSize" yaml:"maxPositionSize"`
	MaxNotional     float64 `json:"maxNotional" yaml:"maxNotional"`   // 0 disables the check
	MaxDrawdown     float64 `json:"maxDrawdown" yaml:"maxDrawdown"`   // fraction of peak equity
	MaxDailyLoss    float64 `json:"maxDailyLoss" yaml:"maxDailyLoss"` // 0 disables the check
}

// PositionView provides the current position of a symbol.
type PositionView interface {
	Position(symbolID uint32) schema.Position
}

// EquityView provides the current total equity.
type EquityView interface {
	Equity() float64
}

// Engine evaluates risk decisions. It is created fresh for every run; the
// halt flag and the daily P&L accumulator never outlive it.
type Engine struct {
	limits   Limits
	halted   bool
	dailyPnL float64
}

// NewEngine creates a risk engine with static limits.
func NewEngine(limits Limits) *Engine {
	return &Engine{limits: limits}
}

// Limits returns the configured limits.
func (e *Engine) Limits() Limits {
	return e.limits
}

// CheckOrder applies the pre-trade checks in order and stops at the first
// violation: halted, invalid order, order size, resulting position, notional.
// Every order type but MARKET must carry a positive finite price.
func (e *Engine) CheckOrder(order schema.Order, positions PositionView) schema.RiskDecision {
	decision := schema.RiskDecision{
		OrderID:  order.ID,
		SymbolID: order.SymbolID,
		Action:   schema.RiskActionAllow,
		Reason:   schema.RiskReasonNone,
		Proposed: order.Size,
	}

	if e.halted {
		return e.deny(decision, schema.RiskReasonHalted, 0, 0)
	}

	if order.Side.Sign() == 0 || !(order.Size > 0) || math.IsInf(order.Size, 0) {
		return e.deny(decision, schema.RiskReasonInvalidOrder, 0, order.Size)
	}

	if order.Type != schema.OrderTypeMarket && !validPrice(order.Price) {
		return e.deny(decision, schema.RiskReasonInvalidOrder, 0, order.Price)
	}

	if order.Size > e.limits.MaxOrderSize {
		return e.deny(decision, schema.RiskReasonMaxOrderSize, e.limits.MaxOrderSize, order.Size)
	}

	var current float64
	if positions != nil {
		current = positions.Position(order.SymbolID).Quantity
	}
	decision.CurrentPos = current
	next := current + order.Side.Sign()*order.Size
	if math.Abs(next) > e.limits.MaxPositionSize {
		return e.deny(decision, schema.RiskReasonPositionLimit, e.limits.MaxPositionSize, next)
	}

	if notionalEnabled(e.limits.MaxNotional) {
		if notional := order.Notional(); notional > e.limits.MaxNotional {
			return e.deny(decision, schema.RiskReasonMaxNotional, e.limits.MaxNotional, notional)
		}
	}

	return decision
}

// CheckDrawdown fails while halted or when equity has fallen from peak by
// more than MaxDrawdown. It never halts by itself; the caller decides.
// A non-positive peak leaves nothing to measure and passes.
func (e *Engine) CheckDrawdown(equity EquityView, peak float64) schema.RiskDecision {
	decision := schema.RiskDecision{Action: schema.RiskActionAllow}
	if e.halted {
		decision.Action = schema.RiskActionDeny
		decision.Reason = schema.RiskReasonHalted
		return decision
	}
	if peak <= 0 || equity == nil {
		return decision
	}
	drawdown := (peak - equity.Equity()) / peak
	decision.Observed = drawdown
	decision.Limit = e.limits.MaxDrawdown
	if drawdown > e.limits.MaxDrawdown {
		decision.Action = schema.RiskActionDeny
		decision.Reason = schema.RiskReasonDrawdown
	}
	return decision
}

// CheckPositionLimit is a coarse check: |current| + |proposed| <= MaxPositionSize.
func (e *Engine) CheckPositionLimit(positions PositionView, symbolID uint32, proposed float64) bool {
	var current float64
	if positions != nil {
		current = positions.Position(symbolID).Quantity
	}
	return math.Abs(current)+math.Abs(proposed) <= e.limits.MaxPositionSize
}

// CheckDailyLoss adds pnlChange to the running daily total and fails once the
// total drops below -MaxDailyLoss. Day boundaries are the caller's business.
func (e *Engine) CheckDailyLoss(pnlChange float64) schema.RiskDecision {
	e.dailyPnL += pnlChange
	decision := schema.RiskDecision{
		Action:   schema.RiskActionAllow,
		Limit:    e.limits.MaxDailyLoss,
		Observed: e.dailyPnL,
	}
	if e.limits.MaxDailyLoss > 0 && e.dailyPnL < -e.limits.MaxDailyLoss {
		logs.Warnf("[risk] daily loss limit exceeded: pnl=%g limit=%g", e.dailyPnL, e.limits.MaxDailyLoss)
		decision.Action = schema.RiskActionDeny
		decision.Reason = schema.RiskReasonDailyLoss
	}
	return decision
}

// DailyPnL returns the accumulated P&L since the last daily reset.
func (e *Engine) DailyPnL() float64 {
	return e.dailyPnL
}

// ResetDaily zeroes the daily P&L accumulator.
func (e *Engine) ResetDaily() {
	e.dailyPnL = 0
}

// Halt blocks every order and drawdown check until Reset.
func (e *Engine) Halt() {
	if !e.halted {
		logs.Warnf("[risk] trading halted")
	}
	e.halted = true
}

// Reset clears the halt flag and the daily accumulator.
func (e *Engine) Reset() {
	e.halted = false
	e.dailyPnL = 0
}

// IsHalted reports whether Halt was called since the last Reset.
func (e *Engine) IsHalted() bool {
	return e.halted
}

func (e *Engine) deny(decision schema.RiskDecision, reason schema.RiskReason, limit, observed float64) schema.RiskDecision {
	decision.Action = schema.RiskActionDeny
	decision.Reason = reason
	decision.Limit = limit
	decision.Observed = observed
	logs.Warnf("[risk] rejected: symbol=%d size=%g reason=%s observed=%g limit=%g",
		decision.SymbolID, decision.Proposed, reason, observed, limit)
	return decision
}

// validPrice rejects NaN, infinite and non-positive prices. A NaN price would
// compare neither better nor worse than any other in the book.
func validPrice(price float64) bool {
	return price > 0 && !math.IsInf(price, 1)
}

func notionalEnabled(limit float64) bool {
	return limit > 0 && !math.IsInf(limit, 1)
}
