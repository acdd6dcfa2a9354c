package orderbook

// handle is the per-side reference to an order held in the arena.
type handle struct {
	id    uint64
	price float64
	seq   uint64
	index int
}

// sideHeap implements heap.Interface over handles, best order at the root.
type sideHeap struct {
	items  []*handle
	better func(a, b *handle) bool
}

func newBidHeap() *sideHeap {
	return &sideHeap{better: func(a, b *handle) bool {
		if a.price != b.price {
			return a.price > b.price
		}
		return a.seq < b.seq
	}}
}

func newAskHeap() *sideHeap {
	return &sideHeap{better: func(a, b *handle) bool {
		if a.price != b.price {
			return a.price < b.price
		}
		return a.seq < b.seq
	}}
}

func (h sideHeap) Len() int {
	return len(h.items)
}

func (h sideHeap) Less(i, j int) bool {
	return h.better(h.items[i], h.items[j])
}

func (h sideHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *sideHeap) Push(x any) {
	item := x.(*handle)
	item.index = len(h.items)
	h.items = append(h.items, item)
}

func (h *sideHeap) Pop() any {
	n := len(h.items)
	item := h.items[n-1]
	h.items[n-1] = nil
	h.items = h.items[:n-1]
	item.index = -1
	return item
}

func (h *sideHeap) peek() (*handle, bool) {
	if len(h.items) == 0 {
		return nil, false
	}
	return h.items[0], true
}
