package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"felix/internal/schema"
)

type positions map[uint32]float64

func (p positions) Position(symbolID uint32) schema.Position {
	return schema.Position{Quantity: p[symbolID]}
}

type equity float64

func (e equity) Equity() float64 { return float64(e) }

func testLimits() Limits {
	return Limits{
		MaxOrderSize:    10,
		MaxPositionSize: 20,
		MaxNotional:     1_000,
		MaxDrawdown:     0.1,
		MaxDailyLoss:    500,
	}
}

func limitOrder(side schema.Side, price, size float64) schema.Order {
	return schema.Order{SymbolID: 1, Side: side, Type: schema.OrderTypeLimit, Price: price, Size: size}
}

func TestCheckOrderAllows(t *testing.T) {
	e := NewEngine(testLimits())
	decision := e.CheckOrder(limitOrder(schema.SideBuy, 50, 10), positions{})
	assert.True(t, decision.Allowed())
	assert.Equal(t, schema.RiskReasonNone, decision.Reason)
}

func TestCheckOrderReasons(t *testing.T) {
	testCases := []struct {
		desc   string
		order  schema.Order
		pos    positions
		reason schema.RiskReason
	}{
		{desc: "order size", order: limitOrder(schema.SideBuy, 10, 11), reason: schema.RiskReasonMaxOrderSize},
		{desc: "resulting long position", order: limitOrder(schema.SideBuy, 10, 5), pos: positions{1: 16}, reason: schema.RiskReasonPositionLimit},
		{desc: "resulting short position", order: limitOrder(schema.SideSell, 10, 5), pos: positions{1: -16}, reason: schema.RiskReasonPositionLimit},
		{desc: "notional", order: limitOrder(schema.SideBuy, 200, 10), reason: schema.RiskReasonMaxNotional},
		{desc: "zero size", order: limitOrder(schema.SideBuy, 10, 0), reason: schema.RiskReasonInvalidOrder},
		{desc: "unknown side", order: limitOrder(schema.SideUnknown, 10, 1), reason: schema.RiskReasonInvalidOrder},
		{desc: "nan limit price", order: limitOrder(schema.SideBuy, math.NaN(), 1), reason: schema.RiskReasonInvalidOrder},
		{desc: "infinite limit price", order: limitOrder(schema.SideSell, math.Inf(1), 1), reason: schema.RiskReasonInvalidOrder},
		{desc: "negative limit price", order: limitOrder(schema.SideSell, -5, 1), reason: schema.RiskReasonInvalidOrder},
		{desc: "zero limit price", order: limitOrder(schema.SideBuy, 0, 1), reason: schema.RiskReasonInvalidOrder},
		{desc: "nan stop price", order: schema.Order{SymbolID: 1, Side: schema.SideSell, Type: schema.OrderTypeStop, Price: math.NaN(), Size: 1}, reason: schema.RiskReasonInvalidOrder},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			e := NewEngine(testLimits())
			decision := e.CheckOrder(tc.order, tc.pos)
			assert.False(t, decision.Allowed())
			assert.Equal(t, tc.reason, decision.Reason)
		})
	}
}

func TestCheckOrderMarketIgnoresPrice(t *testing.T) {
	e := NewEngine(testLimits())
	order := schema.Order{SymbolID: 1, Side: schema.SideBuy, Type: schema.OrderTypeMarket, Size: 1}
	assert.True(t, e.CheckOrder(order, positions{}).Allowed())
}

func TestCheckOrderReducingPosition(t *testing.T) {
	e := NewEngine(testLimits())
	decision := e.CheckOrder(limitOrder(schema.SideSell, 10, 10), positions{1: 20})
	assert.True(t, decision.Allowed())
	assert.Equal(t, 20.0, decision.CurrentPos)
}

func TestCheckOrderOrderOfChecks(t *testing.T) {
	e := NewEngine(testLimits())
	// Violates size, position and notional at once.
	decision := e.CheckOrder(limitOrder(schema.SideBuy, 1_000, 50), positions{1: 20})
	assert.Equal(t, schema.RiskReasonMaxOrderSize, decision.Reason)

	e.Halt()
	decision = e.CheckOrder(limitOrder(schema.SideBuy, 1_000, 50), positions{1: 20})
	assert.Equal(t, schema.RiskReasonHalted, decision.Reason)
}

func TestNotionalDisabled(t *testing.T) {
	limits := testLimits()
	limits.MaxNotional = 0
	e := NewEngine(limits)
	assert.True(t, e.CheckOrder(limitOrder(schema.SideBuy, 1e6, 10), positions{}).Allowed())
}

func TestCheckOrderMonotonic(t *testing.T) {
	e := NewEngine(testLimits())
	pos := positions{1: 12}
	rejected := false
	for size := 1.0; size <= 15; size++ {
		allowed := e.CheckOrder(limitOrder(schema.SideBuy, 1, size), pos).Allowed()
		if rejected {
			assert.Falsef(t, allowed, "size %g allowed after a smaller size was rejected", size)
		}
		if !allowed {
			rejected = true
		}
	}
	assert.True(t, rejected)
}

func TestHaltIsSticky(t *testing.T) {
	e := NewEngine(testLimits())
	e.Halt()
	assert.True(t, e.IsHalted())

	for i := 0; i < 3; i++ {
		decision := e.CheckOrder(limitOrder(schema.SideBuy, 1, 1), positions{})
		assert.Equal(t, schema.RiskReasonHalted, decision.Reason)
	}
	assert.Equal(t, schema.RiskReasonHalted, e.CheckDrawdown(equity(1_000), 1_000).Reason)

	e.Reset()
	assert.False(t, e.IsHalted())
	assert.True(t, e.CheckOrder(limitOrder(schema.SideBuy, 1, 1), positions{}).Allowed())
}

func TestCheckDrawdown(t *testing.T) {
	e := NewEngine(testLimits())

	assert.True(t, e.CheckDrawdown(equity(95_000), 100_000).Allowed())
	assert.True(t, e.CheckDrawdown(equity(90_000), 100_000).Allowed(), "exactly at the limit passes")

	decision := e.CheckDrawdown(equity(85_000), 100_000)
	assert.Equal(t, schema.RiskReasonDrawdown, decision.Reason)
	assert.InDelta(t, 0.15, decision.Observed, schema.Epsilon)
	assert.False(t, e.IsHalted(), "drawdown check never halts by itself")

	assert.True(t, e.CheckDrawdown(equity(-5), 0).Allowed())
}

func TestCheckDailyLoss(t *testing.T) {
	e := NewEngine(testLimits())

	assert.True(t, e.CheckDailyLoss(-300).Allowed())
	assert.True(t, e.CheckDailyLoss(-200).Allowed(), "exactly at the limit passes")
	decision := e.CheckDailyLoss(-1)
	assert.Equal(t, schema.RiskReasonDailyLoss, decision.Reason)
	assert.InDelta(t, -501, e.DailyPnL(), schema.Epsilon)

	e.ResetDaily()
	require.Equal(t, 0.0, e.DailyPnL())
	assert.True(t, e.CheckDailyLoss(-100).Allowed())
}

func TestCheckPositionLimit(t *testing.T) {
	e := NewEngine(testLimits())
	assert.True(t, e.CheckPositionLimit(positions{1: 15}, 1, 5))
	assert.False(t, e.CheckPositionLimit(positions{1: -15}, 1, 6))
	assert.True(t, e.CheckPositionLimit(positions{}, 2, -20))
}
