package portfolio

import (
	"math"
	"sort"

	"felix/internal/schema"
)

// Portfolio tracks cash, positions and the equity curve of a run.
type Portfolio struct {
	initialCash float64
	cash        float64
	positions   map[uint32]*schema.Position
	lastPrices  map[uint32]float64
	curve       []schema.EquityPoint
}

// New creates a portfolio whose equity curve starts at (0, initialCash).
func New(initialCash float64) *Portfolio {
	return &Portfolio{
		initialCash: initialCash,
		cash:        initialCash,
		positions:   make(map[uint32]*schema.Position),
		lastPrices:  make(map[uint32]float64),
		curve: []schema.EquityPoint{{
			Timestamp: 0,
			Equity:    initialCash,
			Cash:      initialCash,
		}},
	}
}

// OnFill applies a fill to its symbol's position and to cash.
//
// Opening a flat position takes the fill price as average price. Adding to a
// position blends the average by size. Reducing realizes
// closed*(fill-avg)*sign(old quantity); if the fill goes through zero the
// remainder opens a new position at the fill price.
func (p *Portfolio) OnFill(fill schema.Fill) {
	sign := fill.Side.Sign()
	if sign == 0 || !(fill.Volume > 0) {
		return
	}

	pos, ok := p.positions[fill.SymbolID]
	if !ok {
		pos = &schema.Position{}
		p.positions[fill.SymbolID] = pos
	}

	notional := fill.Price * fill.Volume
	old := pos.Quantity
	switch {
	case schema.IsZero(old):
		pos.AvgPrice = fill.Price
	case old*sign > 0:
		held := math.Abs(old)
		pos.AvgPrice = (pos.AvgPrice*held + notional) / (held + fill.Volume)
	default:
		held := math.Abs(old)
		closed := math.Min(held, fill.Volume)
		pos.RealizedPnL += closed * (fill.Price - pos.AvgPrice) * math.Copysign(1, old)
		if fill.Volume-held > schema.Epsilon {
			pos.AvgPrice = fill.Price
		}
	}
	pos.Quantity = old + sign*fill.Volume

	p.cash -= sign * notional
	p.lastPrices[fill.SymbolID] = fill.Price
}

// UpdatePrices marks a symbol to market without a fill.
func (p *Portfolio) UpdatePrices(symbolID uint32, price float64) {
	p.lastPrices[symbolID] = price
}

// Equity returns cash plus the marked value of every position with a known
// last price. Positions without one are left out rather than reported.
func (p *Portfolio) Equity() float64 {
	equity := p.cash
	for symbolID, pos := range p.positions {
		price, ok := p.lastPrices[symbolID]
		if !ok || schema.IsZero(pos.Quantity) {
			continue
		}
		equity += pos.Quantity * price
	}
	return equity
}

// UnrealizedPnL returns quantity*(last-avg) for a symbol, 0 when the symbol
// has no position or no known price.
func (p *Portfolio) UnrealizedPnL(symbolID uint32) float64 {
	pos, ok := p.positions[symbolID]
	if !ok {
		return 0
	}
	price, ok := p.lastPrices[symbolID]
	if !ok {
		return 0
	}
	return pos.Quantity * (price - pos.AvgPrice)
}

func (p *Portfolio) TotalUnrealizedPnL() float64 {
	var total float64
	for symbolID, pos := range p.positions {
		price, ok := p.lastPrices[symbolID]
		if !ok || schema.IsZero(pos.Quantity) {
			continue
		}
		total += pos.Quantity * (price - pos.AvgPrice)
	}
	return total
}

func (p *Portfolio) TotalRealizedPnL() float64 {
	var total float64
	for _, pos := range p.positions {
		total += pos.RealizedPnL
	}
	return total
}

// AppendEquityPoint records the current equity at timestamp.
func (p *Portfolio) AppendEquityPoint(timestamp uint64) schema.EquityPoint {
	point := schema.EquityPoint{
		Timestamp:     timestamp,
		Equity:        p.Equity(),
		Cash:          p.cash,
		UnrealizedPnL: p.TotalUnrealizedPnL(),
	}
	p.curve = append(p.curve, point)
	return point
}

// EquityCurve returns a copy of the equity curve.
func (p *Portfolio) EquityCurve() []schema.EquityPoint {
	out := make([]schema.EquityPoint, len(p.curve))
	copy(out, p.curve)
	return out
}

// Timestamps returns the timestamps of the equity curve.
func (p *Portfolio) Timestamps() []uint64 {
	out := make([]uint64, 0, len(p.curve))
	for _, point := range p.curve {
		out = append(out, point.Timestamp)
	}
	return out
}

// EquityValues returns the equity values of the equity curve.
func (p *Portfolio) EquityValues() []float64 {
	out := make([]float64, 0, len(p.curve))
	for _, point := range p.curve {
		out = append(out, point.Equity)
	}
	return out
}

// Position returns the position of a symbol, or the zero value.
func (p *Portfolio) Position(symbolID uint32) schema.Position {
	if pos, ok := p.positions[symbolID]; ok {
		return *pos
	}
	return schema.Position{}
}

// LastPrice returns the last known price of a symbol.
func (p *Portfolio) LastPrice(symbolID uint32) (float64, bool) {
	price, ok := p.lastPrices[symbolID]
	return price, ok
}

// Symbols returns every symbol that ever had a fill, ascending.
func (p *Portfolio) Symbols() []uint32 {
	out := make([]uint32, 0, len(p.positions))
	for symbolID := range p.positions {
		out = append(out, symbolID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p *Portfolio) Cash() float64 {
	return p.cash
}

func (p *Portfolio) InitialCash() float64 {
	return p.initialCash
}
