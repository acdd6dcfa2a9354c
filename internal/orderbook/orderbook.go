package orderbook

import (
	"container/heap"
	"sort"

	"felix/internal/schema"
)

type levelKey struct {
	side  schema.Side
	price float64
}

type entry struct {
	order *schema.Order
	h     *handle
}

// OrderBook holds resting active orders of one symbol.
// The id-keyed arena is the only place orders live; the per-side heaps only
// carry handles, so cancel and fill are O(log n).
// Every operation is infallible: invalid input is ignored.
type OrderBook struct {
	orders map[uint64]*entry
	bids   *sideHeap
	asks   *sideHeap
	levels map[levelKey]int
	seq    uint64
}

// New creates an empty book.
func New() *OrderBook {
	return &OrderBook{
		orders: make(map[uint64]*entry),
		bids:   newBidHeap(),
		asks:   newAskHeap(),
		levels: make(map[levelKey]int),
	}
}

// AddOrder rests an order. Bids are ordered by descending price, asks by
// ascending price, and equal prices keep arrival order. The order's queue
// position is set to the number of orders already resting at its price.
func (ob *OrderBook) AddOrder(order *schema.Order) {
	if order == nil || order.Status.IsTerminal() {
		return
	}
	if _, ok := ob.orders[order.ID]; ok {
		return
	}
	side := ob.side(order.Side)
	if side == nil {
		return
	}

	ob.seq++
	h := &handle{id: order.ID, price: order.Price, seq: ob.seq}
	heap.Push(side, h)

	key := levelKey{side: order.Side, price: order.Price}
	order.QueuePosition = float64(ob.levels[key])
	ob.levels[key]++

	ob.orders[order.ID] = &entry{order: order, h: h}
}

// CancelOrder marks a resting order CANCELLED and removes it.
// Unknown ids are a no-op and return false.
func (ob *OrderBook) CancelOrder(id uint64) bool {
	e, ok := ob.orders[id]
	if !ok {
		return false
	}
	if !schema.CanTransition(e.order.Status, schema.OrderStatusCancelled) {
		return false
	}
	e.order.Status = schema.OrderStatusCancelled
	heap.Remove(ob.side(e.order.Side), e.h.index)
	ob.release(e)
	return true
}

// CheckFills fills every resting order crossed by marketPrice: bids with
// marketPrice <= price and asks with marketPrice >= price. Each filled order
// is removed and filled in full at its own limit price. Fills come bids
// first, then asks, best price first. Timestamps are left to the caller.
func (ob *OrderBook) CheckFills(marketPrice float64) []schema.Fill {
	var fills []schema.Fill
	fills = ob.drain(ob.bids, fills, func(price float64) bool { return marketPrice <= price })
	fills = ob.drain(ob.asks, fills, func(price float64) bool { return marketPrice >= price })
	return fills
}

func (ob *OrderBook) drain(side *sideHeap, fills []schema.Fill, crossed func(float64) bool) []schema.Fill {
	for {
		top, ok := side.peek()
		if !ok || !crossed(top.price) {
			return fills
		}
		heap.Pop(side)
		e := ob.orders[top.id]
		e.order.Status = schema.OrderStatusFilled
		fills = append(fills, schema.Fill{
			OrderID:  e.order.ID,
			SymbolID: e.order.SymbolID,
			Side:     e.order.Side,
			Price:    e.order.Price,
			Volume:   e.order.Size,
		})
		ob.release(e)
	}
}

func (ob *OrderBook) release(e *entry) {
	key := levelKey{side: e.order.Side, price: e.order.Price}
	if n := ob.levels[key] - 1; n > 0 {
		ob.levels[key] = n
	} else {
		delete(ob.levels, key)
	}
	delete(ob.orders, e.order.ID)
}

func (ob *OrderBook) side(s schema.Side) *sideHeap {
	switch s {
	case schema.SideBuy:
		return ob.bids
	case schema.SideSell:
		return ob.asks
	default:
		return nil
	}
}

// BestBid returns the highest resting bid price, or 0 when there is none.
func (ob *OrderBook) BestBid() float64 {
	if h, ok := ob.bids.peek(); ok {
		return h.price
	}
	return 0
}

// BestAsk returns the lowest resting ask price, or 0 when there is none.
func (ob *OrderBook) BestAsk() float64 {
	if h, ok := ob.asks.peek(); ok {
		return h.price
	}
	return 0
}

// Bids returns copies of resting bids in priority order.
func (ob *OrderBook) Bids() []schema.Order {
	return ob.snapshot(ob.bids)
}

// Asks returns copies of resting asks in priority order.
func (ob *OrderBook) Asks() []schema.Order {
	return ob.snapshot(ob.asks)
}

func (ob *OrderBook) snapshot(side *sideHeap) []schema.Order {
	handles := make([]*handle, len(side.items))
	copy(handles, side.items)
	sort.Slice(handles, func(i, j int) bool {
		return side.better(handles[i], handles[j])
	})
	out := make([]schema.Order, 0, len(handles))
	for _, h := range handles {
		out = append(out, *ob.orders[h.id].order)
	}
	return out
}

// Order returns a copy of a resting order.
func (ob *OrderBook) Order(id uint64) (schema.Order, bool) {
	e, ok := ob.orders[id]
	if !ok {
		return schema.Order{}, false
	}
	return *e.order, true
}

// Len returns the number of resting orders.
func (ob *OrderBook) Len() int {
	return len(ob.orders)
}
