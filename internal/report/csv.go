package report

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"felix/internal/schema"
)

// WriteEquityCSV writes the equity curve, one row per point.
func WriteEquityCSV(w io.Writer, curve []schema.EquityPoint, initialCash float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "time", "total_equity", "cash", "unrealized_pnl", "capital"}); err != nil {
		return errors.Wrap(err, "write equity header")
	}
	capital := Money(initialCash)
	for _, p := range curve {
		row := []string{
			strconv.FormatUint(p.Timestamp, 10),
			timestamp(p.Timestamp),
			Money(p.Equity),
			Money(p.Cash),
			Money(p.UnrealizedPnL),
			capital,
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write equity row")
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFillsCSV writes the trade log, one row per fill.
func WriteFillsCSV(w io.Writer, fills []schema.Fill) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"trade_num", "order_id", "symbol_id", "side", "price", "volume", "notional", "slippage_bps", "timestamp"}); err != nil {
		return errors.Wrap(err, "write fills header")
	}
	for i, f := range fills {
		row := []string{
			strconv.Itoa(i + 1),
			strconv.FormatUint(f.OrderID, 10),
			strconv.FormatUint(uint64(f.SymbolID), 10),
			f.Side.String(),
			decimal.NewFromFloat(f.Price).String(),
			decimal.NewFromFloat(f.Volume).String(),
			Money(f.Notional()),
			decimal.NewFromFloat(f.Slippage).String(),
			strconv.FormatUint(f.Timestamp, 10),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write fill row")
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFile creates path, including parent directories, and fills it with write.
func ExportFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create export dir")
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export file")
	}
	buf := bufio.NewWriter(f)
	if err := write(buf); err != nil {
		_ = f.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "flush export file")
	}
	return f.Close()
}
