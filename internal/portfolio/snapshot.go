package portfolio

import (
	"math"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"felix/pkg/exception"
)

// Snapshot captures the accounting state of a portfolio at a point in time.
type Snapshot struct {
	Timestamp   uint64          `json:"timestamp"`
	InitialCash float64         `json:"initialCash"`
	Cash        float64         `json:"cash"`
	Equity      float64         `json:"equity"`
	RealizedPnL float64         `json:"realizedPnl"`
	Positions   []PositionEntry `json:"positions"`
}

// PositionEntry is a single symbol position entry.
type PositionEntry struct {
	SymbolID    uint32  `json:"symbolId"`
	Quantity    float64 `json:"quantity"`
	AvgPrice    float64 `json:"avgPrice"`
	RealizedPnL float64 `json:"realizedPnl"`
	LastPrice   float64 `json:"lastPrice,omitempty"`
}

// Snapshot builds a snapshot from the current state, symbols ascending.
func (p *Portfolio) Snapshot(timestamp uint64) Snapshot {
	symbols := p.Symbols()
	entries := make([]PositionEntry, 0, len(symbols))
	for _, symbolID := range symbols {
		pos := p.positions[symbolID]
		entries = append(entries, PositionEntry{
			SymbolID:    symbolID,
			Quantity:    pos.Quantity,
			AvgPrice:    pos.AvgPrice,
			RealizedPnL: pos.RealizedPnL,
			LastPrice:   p.lastPrices[symbolID],
		})
	}
	return Snapshot{
		Timestamp:   timestamp,
		InitialCash: p.initialCash,
		Cash:        p.cash,
		Equity:      p.Equity(),
		RealizedPnL: p.TotalRealizedPnL(),
		Positions:   entries,
	}
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := sonic.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(exception.ErrSnapshotWrite, "mkdir %s, err: %+v", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(exception.ErrSnapshotWrite, "write %s, err: %+v", path, err)
	}
	return nil
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, errors.Wrapf(exception.ErrSnapshotRead, "read %s, err: %+v", path, err)
	}
	var snap Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrapf(exception.ErrSnapshotRead, "decode %s, err: %+v", path, err)
	}
	return snap, nil
}

// CompareSnapshots checks that two snapshots agree within tolerance on cash,
// realized P&L and every position.
func CompareSnapshots(expected, actual Snapshot, tolerance float64) error {
	if !within(expected.Cash, actual.Cash, tolerance) {
		return errors.Wrapf(exception.ErrSnapshotMismatch, "cash: expected=%g actual=%g", expected.Cash, actual.Cash)
	}
	if !within(expected.RealizedPnL, actual.RealizedPnL, tolerance) {
		return errors.Wrapf(exception.ErrSnapshotMismatch, "realized pnl: expected=%g actual=%g", expected.RealizedPnL, actual.RealizedPnL)
	}
	if len(expected.Positions) != len(actual.Positions) {
		return errors.Wrapf(exception.ErrSnapshotMismatch, "length: expected=%d actual=%d", len(expected.Positions), len(actual.Positions))
	}
	expectedMap := make(map[uint32]PositionEntry, len(expected.Positions))
	for _, entry := range expected.Positions {
		expectedMap[entry.SymbolID] = entry
	}
	for _, entry := range actual.Positions {
		want, ok := expectedMap[entry.SymbolID]
		if !ok {
			return errors.Wrapf(exception.ErrSnapshotMismatch, "missing symbol: %d", entry.SymbolID)
		}
		if !within(want.Quantity, entry.Quantity, tolerance) {
			return errors.Wrapf(exception.ErrSnapshotMismatch, "qty: symbol=%d expected=%g actual=%g", entry.SymbolID, want.Quantity, entry.Quantity)
		}
		if !within(want.AvgPrice, entry.AvgPrice, tolerance) {
			return errors.Wrapf(exception.ErrSnapshotMismatch, "avg price: symbol=%d expected=%g actual=%g", entry.SymbolID, want.AvgPrice, entry.AvgPrice)
		}
		if !within(want.RealizedPnL, entry.RealizedPnL, tolerance) {
			return errors.Wrapf(exception.ErrSnapshotMismatch, "realized pnl: symbol=%d expected=%g actual=%g", entry.SymbolID, want.RealizedPnL, entry.RealizedPnL)
		}
	}
	return nil
}

func within(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}
