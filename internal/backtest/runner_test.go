package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"felix/internal/matching"
	"felix/internal/obs"
	"felix/internal/portfolio"
	"felix/internal/risk"
	"felix/internal/schema"
	"felix/internal/strategy"
	"felix/internal/tickfile"
)

func flatTicks(timestamps ...uint64) []schema.Tick {
	ticks := make([]schema.Tick, 0, len(timestamps))
	for _, ts := range timestamps {
		ticks = append(ticks, schema.Tick{Timestamp: ts, SymbolID: 1, Price: 100, Bid: 99, Ask: 101})
	}
	return ticks
}

func testLimits() risk.Limits {
	return risk.Limits{MaxOrderSize: 10, MaxPositionSize: 100, MaxDrawdown: 0.5}
}

func TestRunEndToEnd(t *testing.T) {
	metrics := obs.NewMetrics()
	r := New(Options{
		Limits:      testLimits(),
		InitialCash: 100_000,
		Source:      tickfile.NewStream(flatTicks(1_000, 2_000, 3_000, 4_000, 5_000, 6_000)),
		Strategy:    strategy.NewInterval(strategy.IntervalConfig{EveryTicks: 2, Size: 1}),
		Metrics:     metrics,
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, result.RunID)
	assert.Equal(t, r.RunID(), result.RunID)
	assert.Equal(t, 6, result.Ticks)
	assert.Equal(t, uint64(1_000), result.FirstTimestamp)
	assert.Equal(t, uint64(6_000), result.LastTimestamp)

	require.Len(t, result.Fills, 2)
	assert.Equal(t, schema.SideBuy, result.Fills[0].Side)
	assert.Equal(t, 101.0, result.Fills[0].Price)
	assert.Equal(t, uint64(3_000), result.Fills[0].Timestamp)
	assert.Equal(t, schema.SideSell, result.Fills[1].Side)
	assert.Equal(t, 99.0, result.Fills[1].Price)

	assert.InDelta(t, 99_998, result.FinalCash, 1e-9)
	assert.InDelta(t, 99_998, result.FinalEquity, 1e-9)
	assert.InDelta(t, -2, result.RealizedPnL, 1e-9)
	assert.Equal(t, 1, result.PendingOrders)
	assert.False(t, result.Halted)
	assert.Len(t, result.EquityCurve, 7)
	assert.InDelta(t, -0.00002, result.Return(), 1e-12)

	assert.Equal(t, uint64(6), result.Metrics.Ticks)
	assert.Equal(t, uint64(3), result.Metrics.Submissions)
	assert.Equal(t, uint64(2), result.Metrics.Fills)
	assert.Equal(t, time.Duration(1_000), result.Metrics.FillDelay.Avg)
}

func TestRunHaltsOnDrawdown(t *testing.T) {
	ticks := []schema.Tick{
		{Timestamp: 1, SymbolID: 1, Price: 100, Bid: 99, Ask: 101},
		{Timestamp: 2, SymbolID: 1, Price: 100, Bid: 99, Ask: 101},
		{Timestamp: 3, SymbolID: 1, Price: 50, Bid: 49, Ask: 51},
		{Timestamp: 4, SymbolID: 1, Price: 50, Bid: 49, Ask: 51},
	}
	limits := testLimits()
	limits.MaxDrawdown = 0.05
	r := New(Options{
		Config:      Config{HaltOnDrawdown: true},
		Limits:      limits,
		InitialCash: 1_000,
		Source:      tickfile.NewStream(ticks),
		Strategy:    strategy.NewInterval(strategy.IntervalConfig{EveryTicks: 1, Size: 10}),
		Metrics:     obs.NewMetrics(),
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Halted)
	assert.Equal(t, uint64(1), result.Metrics.Halts)
	assert.Equal(t, uint64(2), result.Metrics.Submissions, "no orders once halted")
	assert.Len(t, result.Fills, 2)
	assert.InDelta(t, 480, result.FinalEquity, 1e-9)
	assert.InDelta(t, 0.52, result.MaxDrawdown, 1e-9)
	assert.Equal(t, 1_000.0, result.PeakEquity)
}

func TestRunWithoutHaltPolicyKeepsTrading(t *testing.T) {
	ticks := []schema.Tick{
		{Timestamp: 1, SymbolID: 1, Price: 100, Bid: 99, Ask: 101},
		{Timestamp: 2, SymbolID: 1, Price: 100, Bid: 99, Ask: 101},
		{Timestamp: 3, SymbolID: 1, Price: 50, Bid: 49, Ask: 51},
		{Timestamp: 4, SymbolID: 1, Price: 50, Bid: 49, Ask: 51},
	}
	limits := testLimits()
	limits.MaxDrawdown = 0.05
	r := New(Options{
		Limits:      limits,
		InitialCash: 1_000,
		Source:      tickfile.NewStream(ticks),
		Strategy:    strategy.NewInterval(strategy.IntervalConfig{EveryTicks: 1, Size: 10}),
		Metrics:     obs.NewMetrics(),
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Halted)
	assert.Equal(t, uint64(4), result.Metrics.Submissions)
}

func TestRunResetsDailyLossOnRollover(t *testing.T) {
	r := New(Options{
		Config:      Config{DayLengthNs: 10},
		Limits:      testLimits(),
		InitialCash: 10_000,
		Source:      tickfile.NewStream(flatTicks(1, 2, 3, 11, 12, 13)),
		Strategy:    strategy.NewInterval(strategy.IntervalConfig{EveryTicks: 1, Size: 1}),
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, -4, result.RealizedPnL, 1e-9)
	assert.InDelta(t, -2, r.Risk().DailyPnL(), 1e-9)
}

func TestRunTwiceStartsOver(t *testing.T) {
	r := New(Options{
		Limits:      testLimits(),
		InitialCash: 100_000,
		Source:      tickfile.NewStream(flatTicks(1, 2, 3)),
		Strategy:    strategy.NewInterval(strategy.IntervalConfig{EveryTicks: 1, Size: 1}),
	})

	first, err := r.Run(context.Background())
	require.NoError(t, err)
	second, err := r.Run(context.Background())
	require.NoError(t, err)

	for _, result := range []Result{first, second} {
		assert.Equal(t, 3, result.Ticks)
		assert.Len(t, result.EquityCurve, 4)
		assert.Len(t, result.Fills, 2)
		assert.Equal(t, 1, result.PendingOrders)
		assert.InDelta(t, 99_998, result.FinalCash, 1e-9)
		assert.InDelta(t, -2, result.RealizedPnL, 1e-9)
		assert.Equal(t, uint64(1), result.FirstTimestamp)
	}
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, second.RunID, r.RunID())
	assert.Equal(t, schema.SideSell, second.Fills[0].Side, "strategy state is kept")
}

func TestRunEquityInterval(t *testing.T) {
	r := New(Options{
		Config:      Config{EquityIntervalNs: 10},
		Limits:      testLimits(),
		InitialCash: 1_000,
		Source:      tickfile.NewStream(flatTicks(0, 5, 10, 3, 12)),
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	timestamps := make([]uint64, 0, len(result.EquityCurve))
	for _, p := range result.EquityCurve {
		timestamps = append(timestamps, p.Timestamp)
	}
	// seed, first tick, interval elapsed, final tick; the late tick at 3 adds nothing
	assert.Equal(t, []uint64{0, 0, 10, 12}, timestamps)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(Options{
		Limits:      testLimits(),
		InitialCash: 1_000,
		Source:      tickfile.NewStream(flatTicks(1, 2, 3)),
	})
	result, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Ticks)
}

func TestRunRequiresSource(t *testing.T) {
	_, err := New(Options{InitialCash: 1}).Run(context.Background())
	assert.Error(t, err)
}

func TestMarketOrderScenario(t *testing.T) {
	engine := matching.New(matching.Config{
		StrategyLatencyNs: 1_000,
		EngineLatencyNs:   500,
		FixedBps:          5,
	}, risk.NewEngine(risk.Limits{MaxOrderSize: 100, MaxPositionSize: 100, MaxDrawdown: 1}))
	pf := portfolio.New(100_000)

	engine.UpdateMarketState(schema.Tick{SymbolID: 1, Bid: 99.99, Ask: 100.01})
	id, decision := engine.Submit(schema.Order{SymbolID: 1, Side: schema.SideBuy, Type: schema.OrderTypeMarket, Size: 10}, pf)
	require.True(t, decision.Allowed())
	require.NotZero(t, id)

	assert.Empty(t, engine.ProcessPendingOrders(1_499))
	fills := engine.ProcessPendingOrders(1_500)
	require.Len(t, fills, 1)

	f := fills[0]
	assert.Equal(t, schema.SideBuy, f.Side)
	assert.Equal(t, 10.0, f.Volume)
	assert.InDelta(t, 100.01*1.0005, f.Price, 1e-9)
	assert.InDelta(t, 100.0601, f.Price, 1e-3)
	assert.Equal(t, 5.0, f.Slippage)

	pf.OnFill(f)
	assert.Equal(t, 10.0, pf.Position(1).Quantity)
	assert.InDelta(t, 100.0601, pf.Position(1).AvgPrice, 1e-3)
	assert.InDelta(t, 100_000-1000.601, pf.Cash(), 1e-2)
}
