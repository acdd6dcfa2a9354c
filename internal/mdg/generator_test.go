package mdg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorIsDeterministic(t *testing.T) {
	cfg := Config{Symbols: []uint32{1, 2}, StartNs: 1_000, StepNs: 10, BasePrice: 100, SpreadBps: 2, VolBps: 5, Seed: 42}

	a, err := NewGenerator(cfg)
	require.NoError(t, err)
	b, err := NewGenerator(cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Generate(50), b.Generate(50))
}

func TestGeneratorShape(t *testing.T) {
	g, err := NewGenerator(Config{Symbols: []uint32{3, 5}, StartNs: 100, StepNs: 20, BasePrice: 50, SpreadBps: 10, VolBps: 1, Seed: 7})
	require.NoError(t, err)

	ticks := g.Generate(6)
	for i, tick := range ticks {
		assert.Equal(t, uint64(100+20*i), tick.Timestamp)
		assert.Less(t, tick.Bid, tick.Ask)
		assert.Greater(t, tick.Bid, 0.0)
		assert.Positive(t, tick.Volume)
	}
	assert.Equal(t, uint32(3), ticks[0].SymbolID)
	assert.Equal(t, uint32(5), ticks[1].SymbolID)
	assert.Equal(t, uint32(3), ticks[2].SymbolID)
}

func TestGeneratorRejectsInvalidConfig(t *testing.T) {
	_, err := NewGenerator(Config{BasePrice: 1})
	assert.Error(t, err)
	_, err = NewGenerator(Config{Symbols: []uint32{1}})
	assert.Error(t, err)
	_, err = NewGenerator(Config{Symbols: []uint32{1}, BasePrice: 1, VolBps: -1})
	assert.Error(t, err)
}
