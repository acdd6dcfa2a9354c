package matching

import (
	"slices"

	"github.com/gammazero/deque"
	"github.com/yanun0323/logs"

	"felix/internal/orderbook"
	"felix/internal/risk"
	"felix/internal/schema"
)

// Config is the execution model of the engine. Latencies are nanoseconds.
type Config struct {
	StrategyLatencyNs uint64  `json:"strategyLatencyNs" yaml:"strategyLatencyNs"`
	EngineLatencyNs   uint64  `json:"engineLatencyNs" yaml:"engineLatencyNs"`
	FixedBps          float64 `json:"fixedBps" yaml:"fixedBps"`
}

// Latency returns the total delay between submission and activation.
func (c Config) Latency() uint64 {
	return c.StrategyLatencyNs + c.EngineLatencyNs
}

// Engine simulates order execution on a single timeline. It is not safe for
// concurrent use.
type Engine struct {
	cfg  Config
	risk *risk.Engine

	nextID       uint64
	orders       map[uint64]*schema.Order
	pending      deque.Deque[*schema.Order]
	pendingCount int

	markets map[uint32]*schema.MarketState
	books   map[uint32]*orderbook.OrderBook
	symbols []uint32
}

// New creates an engine gated by riskEngine.
func New(cfg Config, riskEngine *risk.Engine) *Engine {
	return &Engine{
		cfg:     cfg,
		risk:    riskEngine,
		orders:  make(map[uint64]*schema.Order),
		markets: make(map[uint32]*schema.MarketState),
		books:   make(map[uint32]*orderbook.OrderBook),
	}
}

// Config returns the current execution model.
func (e *Engine) Config() Config {
	return e.cfg
}

// SetConfig replaces the execution model. Orders already submitted keep the
// activation time computed when they were accepted.
func (e *Engine) SetConfig(cfg Config) {
	e.cfg = cfg
}

// UpdateMarketState caches the top of book carried by tick.
func (e *Engine) UpdateMarketState(tick schema.Tick) {
	ms, ok := e.markets[tick.SymbolID]
	if !ok {
		ms = &schema.MarketState{}
		e.markets[tick.SymbolID] = ms
	}
	ms.Timestamp = tick.Timestamp
	ms.Bid = tick.Bid
	ms.Ask = tick.Ask
	ms.Last = tick.Price
	ms.Volume = tick.Volume
}

// MarketState returns the cached state of a symbol, or the zero value when
// no tick has been seen for it.
func (e *Engine) MarketState(symbolID uint32) schema.MarketState {
	if ms, ok := e.markets[symbolID]; ok {
		return *ms
	}
	return schema.MarketState{}
}

// Submit runs the pre-trade risk check and queues the order on acceptance.
// A rejected order is discarded and 0 is returned with the decision that
// rejected it. An accepted order gets the next id, status PENDING and an
// activation time of Timestamp plus the configured latency.
func (e *Engine) Submit(order schema.Order, positions risk.PositionView) (uint64, schema.RiskDecision) {
	order.ID = 0
	decision := e.risk.CheckOrder(order, positions)
	if !decision.Allowed() {
		return 0, decision
	}

	e.nextID++
	o := order
	o.ID = e.nextID
	o.Status = schema.OrderStatusPending
	o.ActivationTime = order.Timestamp + e.cfg.Latency()
	o.QueuePosition = 0

	e.orders[o.ID] = &o
	e.pending.PushBack(&o)
	e.pendingCount++

	decision.OrderID = o.ID
	return o.ID, decision
}

// ProcessPendingOrders activates every pending order whose activation time is
// not after now, in submission order, and then checks every book against its
// symbol's last price. Market fills at activation come first, followed by
// price-cross fills of resting limit orders, symbols ascending.
func (e *Engine) ProcessPendingOrders(now uint64) []schema.Fill {
	var fills []schema.Fill

	for n := e.pending.Len(); n > 0; n-- {
		o := e.pending.PopFront()
		if o.Status != schema.OrderStatusPending {
			// cancelled while waiting
			continue
		}
		if o.ActivationTime > now {
			e.pending.PushBack(o)
			continue
		}
		e.pendingCount--
		if !e.transition(o, schema.OrderStatusActive) {
			continue
		}
		if fill, ok := e.activate(o, now); ok {
			fills = append(fills, fill)
		}
	}

	for _, symbolID := range e.symbols {
		ms, ok := e.markets[symbolID]
		if !ok || ms.Last <= 0 {
			continue
		}
		crossed := e.books[symbolID].CheckFills(ms.Last)
		for i := range crossed {
			crossed[i].Timestamp = now
		}
		fills = append(fills, crossed...)
	}

	return fills
}

func (e *Engine) activate(o *schema.Order, now uint64) (schema.Fill, bool) {
	switch o.Type {
	case schema.OrderTypeMarket:
		return e.fillMarket(o, now)
	case schema.OrderTypeLimit:
		e.book(o.SymbolID).AddOrder(o)
	default:
		logs.Warnf("[matching] order %d: %s orders are not matched, cancelled", o.ID, o.Type)
		e.transition(o, schema.OrderStatusCancelled)
	}
	return schema.Fill{}, false
}

func (e *Engine) fillMarket(o *schema.Order, now uint64) (schema.Fill, bool) {
	ms := e.MarketState(o.SymbolID)
	var price float64
	switch o.Side {
	case schema.SideBuy:
		price = ms.Ask * (1 + e.cfg.FixedBps/10_000)
	case schema.SideSell:
		price = ms.Bid * (1 - e.cfg.FixedBps/10_000)
	}
	if price <= 0 {
		logs.Warnf("[matching] market order %d on symbol %d: no opposite quote, cancelled", o.ID, o.SymbolID)
		e.transition(o, schema.OrderStatusCancelled)
		return schema.Fill{}, false
	}
	if !e.transition(o, schema.OrderStatusFilled) {
		return schema.Fill{}, false
	}
	return schema.Fill{
		OrderID:   o.ID,
		SymbolID:  o.SymbolID,
		Side:      o.Side,
		Price:     price,
		Volume:    o.Size,
		Timestamp: now,
		Slippage:  e.cfg.FixedBps,
	}, true
}

// Cancel cancels a pending order or a resting limit order. Unknown ids and
// orders already in a terminal state return false.
func (e *Engine) Cancel(orderID uint64) bool {
	o, ok := e.orders[orderID]
	if !ok {
		return false
	}
	switch o.Status {
	case schema.OrderStatusPending:
		if !e.transition(o, schema.OrderStatusCancelled) {
			return false
		}
		e.pendingCount--
		return true
	case schema.OrderStatusActive, schema.OrderStatusPartial:
		book, ok := e.books[o.SymbolID]
		if !ok {
			return false
		}
		return book.CancelOrder(orderID)
	default:
		return false
	}
}

// Order returns a copy of an order accepted by Submit.
func (e *Engine) Order(orderID uint64) (schema.Order, bool) {
	o, ok := e.orders[orderID]
	if !ok {
		return schema.Order{}, false
	}
	return *o, true
}

// Book returns the order book of a symbol, or nil before any limit order
// for it has been activated.
func (e *Engine) Book(symbolID uint32) *orderbook.OrderBook {
	return e.books[symbolID]
}

// PendingOrderCount returns the number of orders in PENDING status.
func (e *Engine) PendingOrderCount() int {
	return e.pendingCount
}

func (e *Engine) book(symbolID uint32) *orderbook.OrderBook {
	book, ok := e.books[symbolID]
	if !ok {
		book = orderbook.New()
		e.books[symbolID] = book
		i, _ := slices.BinarySearch(e.symbols, symbolID)
		e.symbols = slices.Insert(e.symbols, i, symbolID)
	}
	return book
}

func (e *Engine) transition(o *schema.Order, to schema.OrderStatus) bool {
	if !schema.CanTransition(o.Status, to) {
		logs.Errorf("[matching] order %d: illegal transition %s -> %s", o.ID, o.Status, to)
		return false
	}
	o.Status = to
	return true
}
