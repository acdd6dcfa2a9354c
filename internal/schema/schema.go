package schema

import "math"

// Epsilon is the tolerance used when comparing monetary values or quantities to zero.
const Epsilon = 1e-9

// IsZero reports whether v is within Epsilon of zero.
func IsZero(v float64) bool {
	return math.Abs(v) < Epsilon
}

// Tick is one timestamped market observation for a symbol.
// Timestamps are nanoseconds and never decrease across a source.
type Tick struct {
	Timestamp uint64
	SymbolID  uint32
	Price     float64
	Bid       float64
	Ask       float64
	BidSize   float64
	AskSize   float64
	Volume    uint32
}

// Mid returns the bid/ask midpoint, falling back to whichever side is known.
func (t Tick) Mid() float64 {
	switch {
	case t.Bid > 0 && t.Ask > 0:
		return (t.Bid + t.Ask) / 2
	case t.Bid > 0:
		return t.Bid
	case t.Ask > 0:
		return t.Ask
	default:
		return 0
	}
}

// ReferencePrice is the last trade price if present, otherwise the midpoint.
func (t Tick) ReferencePrice() float64 {
	if t.Price > 0 {
		return t.Price
	}
	return t.Mid()
}

// MarketState is the cached top of book for a symbol.
type MarketState struct {
	Timestamp uint64
	Bid       float64
	Ask       float64
	Last      float64
	Volume    uint32
}
