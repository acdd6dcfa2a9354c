package obs

import (
	"sync/atomic"
	"time"

	"felix/internal/schema"
)

const maxRiskReason = int(schema.MaxRiskReason)

// Metrics collects lightweight counters and latency stats of a run.
type Metrics struct {
	ticks       uint64
	submissions uint64
	accepted    uint64
	fills       uint64
	cancels     uint64
	halts       uint64

	riskReasonCounts [maxRiskReason + 1]uint64

	fillDelay   LatencyStats
	tickLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Ticks            uint64
	Submissions      uint64
	Accepted         uint64
	Fills            uint64
	Cancels          uint64
	Halts            uint64
	RiskReasonCounts map[schema.RiskReason]uint64
	// FillDelay is simulated time from submission to fill.
	FillDelay LatencySnapshot
	// TickLatency is wall time spent processing one tick.
	TickLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncTick() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ticks, 1)
}

// ObserveDecision counts a submission and, when denied, its reason.
func (m *Metrics) ObserveDecision(decision schema.RiskDecision) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.submissions, 1)
	if decision.Allowed() {
		atomic.AddUint64(&m.accepted, 1)
		return
	}
	idx := int(decision.Reason)
	if idx >= 0 && idx < len(m.riskReasonCounts) {
		atomic.AddUint64(&m.riskReasonCounts[idx], 1)
	}
}

// ObserveFill counts a fill and the simulated delay since its order was submitted.
func (m *Metrics) ObserveFill(fill schema.Fill, submittedAt uint64) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.fills, 1)
	if fill.Timestamp >= submittedAt {
		m.fillDelay.Observe(time.Duration(fill.Timestamp - submittedAt))
	}
}

func (m *Metrics) IncCancel() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.cancels, 1)
}

func (m *Metrics) IncHalt() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.halts, 1)
}

// ObserveTick measures wall time spent on one tick.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	riskCounts := make(map[schema.RiskReason]uint64)
	for i := range m.riskReasonCounts {
		if v := atomic.LoadUint64(&m.riskReasonCounts[i]); v > 0 {
			riskCounts[schema.RiskReason(i)] = v
		}
	}
	return Snapshot{
		Ticks:            atomic.LoadUint64(&m.ticks),
		Submissions:      atomic.LoadUint64(&m.submissions),
		Accepted:         atomic.LoadUint64(&m.accepted),
		Fills:            atomic.LoadUint64(&m.fills),
		Cancels:          atomic.LoadUint64(&m.cancels),
		Halts:            atomic.LoadUint64(&m.halts),
		RiskReasonCounts: riskCounts,
		FillDelay:        m.fillDelay.Snapshot(),
		TickLatency:      m.tickLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
