package strategy

import (
	"github.com/yanun0323/logs"

	"felix/internal/schema"
)

// IntervalConfig configures the Interval strategy.
type IntervalConfig struct {
	// SymbolID restricts trading to one symbol; 0 trades every symbol.
	SymbolID   uint32           `json:"symbolId" yaml:"symbolId"`
	EveryTicks int              `json:"everyTicks" yaml:"everyTicks"`
	MaxOrders  int              `json:"maxOrders" yaml:"maxOrders"` // 0 = unlimited
	Size       float64          `json:"size" yaml:"size"`
	Type       schema.OrderType `json:"-" yaml:"-"`
	// OffsetBps places limit orders away from the mid, on the passive side.
	OffsetBps float64 `json:"offsetBps" yaml:"offsetBps"`
}

// Interval submits one order every EveryTicks ticks, alternating BUY and
// SELL. A limit order still resting when the next one is due is cancelled.
type Interval struct {
	cfg IntervalConfig

	ticks   int
	orders  int
	next    schema.Side
	resting uint64
	fills   int
}

// NewInterval creates an Interval strategy.
func NewInterval(cfg IntervalConfig) *Interval {
	if cfg.Type == schema.OrderTypeUnknown {
		cfg.Type = schema.OrderTypeMarket
	}
	return &Interval{cfg: cfg, next: schema.SideBuy}
}

func (s *Interval) OnTick(tick schema.Tick, ex Exchange) {
	if s.cfg.SymbolID != 0 && tick.SymbolID != s.cfg.SymbolID {
		return
	}
	s.ticks++
	if s.cfg.EveryTicks <= 0 || s.ticks%s.cfg.EveryTicks != 0 {
		return
	}
	if s.cfg.MaxOrders > 0 && s.orders >= s.cfg.MaxOrders {
		return
	}

	if s.resting != 0 {
		if o, ok := ex.Order(s.resting); ok && !o.Status.IsTerminal() {
			ex.Cancel(s.resting)
		}
		s.resting = 0
	}

	order := schema.Order{
		SymbolID: tick.SymbolID,
		Side:     s.next,
		Type:     s.cfg.Type,
		Size:     s.cfg.Size,
	}
	if s.cfg.Type == schema.OrderTypeLimit {
		mid := tick.ReferencePrice()
		if mid <= 0 {
			return
		}
		offset := s.cfg.OffsetBps / 10_000
		if s.next == schema.SideBuy {
			order.Price = mid * (1 - offset)
		} else {
			order.Price = mid * (1 + offset)
		}
	}

	s.orders++
	id, decision := ex.Submit(order)
	if !decision.Allowed() {
		logs.Debugf("[strategy] order rejected: side=%s reason=%s", order.Side, decision.Reason)
		return
	}
	if order.Type == schema.OrderTypeLimit {
		s.resting = id
	}
	if s.next == schema.SideBuy {
		s.next = schema.SideSell
	} else {
		s.next = schema.SideBuy
	}
}

func (s *Interval) OnFill(fill schema.Fill) {
	s.fills++
	if fill.OrderID == s.resting {
		s.resting = 0
	}
}

// Orders returns the number of orders submitted so far.
func (s *Interval) Orders() int {
	return s.orders
}

// Fills returns the number of fills received so far.
func (s *Interval) Fills() int {
	return s.fills
}
