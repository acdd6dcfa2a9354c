package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"felix/internal/matching"
	"felix/internal/obs"
	"felix/internal/portfolio"
	"felix/internal/risk"
	"felix/internal/schema"
	"felix/internal/strategy"
)

const DefaultDayLengthNs = uint64(24 * time.Hour)

// Source is a sequential tick source.
type Source interface {
	Size() int
	HasNext() bool
	Next() (schema.Tick, bool)
	Reset()
}

// Config controls the run loop.
type Config struct {
	// EquityIntervalNs is the minimum spacing of equity points; 0 records one per tick.
	EquityIntervalNs uint64 `json:"equityIntervalNs" yaml:"equityIntervalNs"`
	// DayLengthNs splits the timeline into trading days for the daily loss
	// accumulator; 0 disables day rollover.
	DayLengthNs     uint64 `json:"dayLengthNs" yaml:"dayLengthNs"`
	HaltOnDrawdown  bool   `json:"haltOnDrawdown" yaml:"haltOnDrawdown"`
	HaltOnDailyLoss bool   `json:"haltOnDailyLoss" yaml:"haltOnDailyLoss"`
}

// Options wires a run. Engines and the portfolio are created per run.
type Options struct {
	Config      Config
	Matching    matching.Config
	Limits      risk.Limits
	InitialCash float64
	Source      Source
	Strategy    strategy.Strategy
	Metrics     *obs.Metrics
}

// Runner drives ticks through the matching engine, the portfolio and the
// risk engine on a single timeline.
type Runner struct {
	cfg         Config
	source      Source
	strategy    strategy.Strategy
	metrics     *obs.Metrics
	limits      risk.Limits
	execution   matching.Config
	initialCash float64

	runID     uuid.UUID
	risk      *risk.Engine
	engine    *matching.Engine
	portfolio *portfolio.Portfolio

	ran         bool
	started     bool
	now         uint64
	first       uint64
	day         uint64
	realized    float64
	peak        float64
	maxDrawdown float64
	lastEquity  uint64
	ticks       int
	fills       []schema.Fill
}

// New creates a runner with a fresh risk engine, matching engine and portfolio.
func New(opt Options) *Runner {
	r := &Runner{
		cfg:         opt.Config,
		source:      opt.Source,
		strategy:    opt.Strategy,
		metrics:     opt.Metrics,
		limits:      opt.Limits,
		execution:   opt.Matching,
		initialCash: opt.InitialCash,
	}
	r.reset()
	return r
}

// reset rebuilds every piece of per-run state under a new run id.
func (r *Runner) reset() {
	r.runID = uuid.New()
	r.risk = risk.NewEngine(r.limits)
	r.engine = matching.New(r.execution, r.risk)
	r.portfolio = portfolio.New(r.initialCash)

	r.started = false
	r.now, r.first, r.day = 0, 0, 0
	r.realized = 0
	r.peak = r.initialCash
	r.maxDrawdown = 0
	r.lastEquity = 0
	r.ticks = 0
	r.fills = nil
}

// Run consumes the whole source, or stops early when ctx is done. The
// partial result is returned along with ctx's error in that case.
// Every call after the first starts over with fresh engines, a fresh
// portfolio and a new run id. The strategy and metrics belong to the caller
// and are not reset.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.source == nil {
		return Result{}, errors.New("backtest: nil tick source")
	}
	if r.ran {
		r.reset()
	}
	r.ran = true

	startedAt := time.Now()
	r.source.Reset()
	logs.Infof("[backtest] run %s started: ticks=%d cash=%g", r.runID, r.source.Size(), r.portfolio.InitialCash())

	for r.source.HasNext() {
		select {
		case <-ctx.Done():
			logs.Warnf("[backtest] run interrupted after %d ticks", r.ticks)
			return r.result(startedAt), ctx.Err()
		default:
		}

		tick, ok := r.source.Next()
		if !ok {
			break
		}
		r.step(tick)
	}

	if r.started && r.lastEquity != r.now {
		r.portfolio.AppendEquityPoint(r.now)
	}

	result := r.result(startedAt)
	logs.Infof("[backtest] run finished: ticks=%d fills=%d equity=%.2f realized=%.2f halted=%t pending=%d",
		result.Ticks, len(result.Fills), result.FinalEquity, result.RealizedPnL, result.Halted, result.PendingOrders)
	return result, nil
}

func (r *Runner) step(tick schema.Tick) {
	start := time.Now()

	if r.started && tick.Timestamp < r.now {
		logs.Warnf("[backtest] tick out of order: ts=%d after %d", tick.Timestamp, r.now)
	}
	r.rollover(tick.Timestamp)
	r.now = tick.Timestamp
	r.ticks++

	r.engine.UpdateMarketState(tick)
	for _, fill := range r.engine.ProcessPendingOrders(r.now) {
		r.applyFill(fill)
	}
	if price := tick.ReferencePrice(); price > 0 {
		r.portfolio.UpdatePrices(tick.SymbolID, price)
	}

	r.checkDailyLoss()
	r.checkDrawdown()

	if r.strategy != nil && !r.risk.IsHalted() {
		r.strategy.OnTick(tick, r)
	}

	if r.ticks == 1 || r.equityDue() {
		r.portfolio.AppendEquityPoint(r.now)
		r.lastEquity = r.now
	}

	r.metrics.IncTick()
	r.metrics.ObserveTick(time.Since(start))
}

// equityDue reports whether EquityIntervalNs has elapsed since the last point.
// A tick older than the last point never is.
func (r *Runner) equityDue() bool {
	if r.now < r.lastEquity {
		return false
	}
	return r.cfg.EquityIntervalNs == 0 || r.now-r.lastEquity >= r.cfg.EquityIntervalNs
}

func (r *Runner) rollover(ts uint64) {
	if r.cfg.DayLengthNs == 0 {
		if !r.started {
			r.started, r.first = true, ts
		}
		return
	}
	day := ts / r.cfg.DayLengthNs
	if !r.started {
		r.started, r.first, r.day = true, ts, day
		return
	}
	if day != r.day {
		logs.Debugf("[backtest] day rollover: %d -> %d daily pnl=%g", r.day, day, r.risk.DailyPnL())
		r.day = day
		r.risk.ResetDaily()
	}
}

func (r *Runner) applyFill(fill schema.Fill) {
	r.portfolio.OnFill(fill)
	r.fills = append(r.fills, fill)
	if order, ok := r.engine.Order(fill.OrderID); ok {
		r.metrics.ObserveFill(fill, order.Timestamp)
	}
	if r.strategy != nil {
		r.strategy.OnFill(fill)
	}
}

func (r *Runner) checkDailyLoss() {
	realized := r.portfolio.TotalRealizedPnL()
	delta := realized - r.realized
	r.realized = realized
	if schema.IsZero(delta) {
		return
	}
	if decision := r.risk.CheckDailyLoss(delta); !decision.Allowed() && r.cfg.HaltOnDailyLoss {
		r.halt("daily loss")
	}
}

func (r *Runner) checkDrawdown() {
	equity := r.portfolio.Equity()
	if equity > r.peak {
		r.peak = equity
	}
	if r.peak > 0 {
		if dd := (r.peak - equity) / r.peak; dd > r.maxDrawdown {
			r.maxDrawdown = dd
		}
	}
	decision := r.risk.CheckDrawdown(r.portfolio, r.peak)
	if decision.Reason == schema.RiskReasonDrawdown && r.cfg.HaltOnDrawdown {
		r.halt("drawdown")
	}
}

func (r *Runner) halt(cause string) {
	if r.risk.IsHalted() {
		return
	}
	logs.Warnf("[backtest] halting on %s at ts=%d equity=%.2f peak=%.2f", cause, r.now, r.portfolio.Equity(), r.peak)
	r.risk.Halt()
	r.metrics.IncHalt()
}

// Submit stamps the order with the current tick time and hands it to the
// matching engine, risk-checked against the portfolio.
func (r *Runner) Submit(order schema.Order) (uint64, schema.RiskDecision) {
	order.Timestamp = r.now
	id, decision := r.engine.Submit(order, r.portfolio)
	r.metrics.ObserveDecision(decision)
	return id, decision
}

func (r *Runner) Cancel(orderID uint64) bool {
	if !r.engine.Cancel(orderID) {
		return false
	}
	r.metrics.IncCancel()
	return true
}

func (r *Runner) Order(orderID uint64) (schema.Order, bool) {
	return r.engine.Order(orderID)
}

func (r *Runner) Position(symbolID uint32) schema.Position {
	return r.portfolio.Position(symbolID)
}

func (r *Runner) MarketState(symbolID uint32) schema.MarketState {
	return r.engine.MarketState(symbolID)
}

func (r *Runner) RunID() uuid.UUID {
	return r.runID
}

func (r *Runner) Engine() *matching.Engine {
	return r.engine
}

func (r *Runner) Risk() *risk.Engine {
	return r.risk
}

func (r *Runner) Portfolio() *portfolio.Portfolio {
	return r.portfolio
}

func (r *Runner) result(startedAt time.Time) Result {
	return Result{
		RunID:          r.runID,
		StartedAt:      startedAt,
		FinishedAt:     time.Now(),
		Ticks:          r.ticks,
		FirstTimestamp: r.first,
		LastTimestamp:  r.now,
		InitialCash:    r.portfolio.InitialCash(),
		FinalCash:      r.portfolio.Cash(),
		FinalEquity:    r.portfolio.Equity(),
		RealizedPnL:    r.portfolio.TotalRealizedPnL(),
		UnrealizedPnL:  r.portfolio.TotalUnrealizedPnL(),
		PeakEquity:     r.peak,
		MaxDrawdown:    r.maxDrawdown,
		Halted:         r.risk.IsHalted(),
		PendingOrders:  r.engine.PendingOrderCount(),
		Fills:          append([]schema.Fill(nil), r.fills...),
		EquityCurve:    r.portfolio.EquityCurve(),
		Snapshot:       r.portfolio.Snapshot(r.now),
		Metrics:        r.metrics.Snapshot(),
	}
}
