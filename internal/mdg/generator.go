package mdg

import (
	"math"
	"math/rand/v2"

	"github.com/yanun0323/errors"

	"felix/internal/schema"
)

// Config describes a synthetic tick stream.
type Config struct {
	Symbols   []uint32
	StartNs   uint64
	StepNs    uint64
	BasePrice float64
	// SpreadBps is the full bid/ask spread around the price.
	SpreadBps float64
	// VolBps is the standard deviation of one price step.
	VolBps   float64
	BaseSize float64
	Seed     uint64
}

// Generator creates synthetic ticks: one random walk per symbol, symbols
// visited round-robin, one StepNs per tick.
type Generator struct {
	cfg    Config
	rng    *rand.Rand
	prices []float64
	index  int
	now    uint64
}

// NewGenerator validates cfg and creates a generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if len(cfg.Symbols) == 0 {
		return nil, errors.New("mdg: no symbols")
	}
	if !(cfg.BasePrice > 0) {
		return nil, errors.New("mdg: base price must be > 0")
	}
	if cfg.SpreadBps < 0 || cfg.VolBps < 0 {
		return nil, errors.New("mdg: spread and volatility must be >= 0")
	}
	if cfg.BaseSize <= 0 {
		cfg.BaseSize = 1
	}
	prices := make([]float64, len(cfg.Symbols))
	for i := range prices {
		prices[i] = cfg.BasePrice
	}
	return &Generator{
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		prices: prices,
		now:    cfg.StartNs,
	}, nil
}

// Next creates the next tick in sequence.
func (g *Generator) Next() schema.Tick {
	i := g.index
	g.index = (g.index + 1) % len(g.cfg.Symbols)

	price := g.prices[i] * math.Exp(g.rng.NormFloat64()*g.cfg.VolBps/10_000)
	g.prices[i] = price
	half := price * g.cfg.SpreadBps / 20_000

	tick := schema.Tick{
		Timestamp: g.now,
		SymbolID:  g.cfg.Symbols[i],
		Price:     price,
		Bid:       price - half,
		Ask:       price + half,
		BidSize:   g.cfg.BaseSize * (1 + g.rng.Float64()),
		AskSize:   g.cfg.BaseSize * (1 + g.rng.Float64()),
		Volume:    uint32(1 + g.rng.IntN(100)),
	}
	g.now += g.cfg.StepNs
	return tick
}

// Generate returns n ticks.
func (g *Generator) Generate(n int) []schema.Tick {
	ticks := make([]schema.Tick, 0, n)
	for i := 0; i < n; i++ {
		ticks = append(ticks, g.Next())
	}
	return ticks
}
