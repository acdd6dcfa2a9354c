package backtest

import (
	"time"

	"github.com/google/uuid"

	"felix/internal/obs"
	"felix/internal/portfolio"
	"felix/internal/schema"
)

// Result summarizes a finished (or interrupted) run.
type Result struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time

	Ticks          int
	FirstTimestamp uint64
	LastTimestamp  uint64

	InitialCash   float64
	FinalCash     float64
	FinalEquity   float64
	RealizedPnL   float64
	UnrealizedPnL float64
	PeakEquity    float64
	MaxDrawdown   float64
	Halted        bool
	PendingOrders int

	Fills       []schema.Fill
	EquityCurve []schema.EquityPoint
	Snapshot    portfolio.Snapshot
	Metrics     obs.Snapshot
}

// Return is the total return relative to initial cash.
func (r Result) Return() float64 {
	if r.InitialCash == 0 {
		return 0
	}
	return (r.FinalEquity - r.InitialCash) / r.InitialCash
}

// Elapsed is the wall time of the run.
func (r Result) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
