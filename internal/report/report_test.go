package report

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"felix/internal/backtest"
	"felix/internal/obs"
	"felix/internal/schema"
)

func TestMoneyAndPercent(t *testing.T) {
	assert.Equal(t, "1234.50", Money(1234.5))
	assert.Equal(t, "-2.00", Money(-2))
	assert.Equal(t, "100.06", Money(100.060005))
	assert.Equal(t, "12.34%", Percent(0.1234))
	assert.Equal(t, "52.00%", Percent(0.52))
}

func TestWriteEquityCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteEquityCSV(&buf, []schema.EquityPoint{
		{Timestamp: 0, Equity: 1_000, Cash: 1_000},
		{Timestamp: 1_500_000_000, Equity: 1_010.456, Cash: 900, UnrealizedPnL: 110.456},
	}, 1_000)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,time,total_equity,cash,unrealized_pnl,capital", lines[0])
	assert.Equal(t, "0,1970-01-01T00:00:00Z,1000.00,1000.00,0.00,1000.00", lines[1])
	assert.Equal(t, "1500000000,1970-01-01T00:00:01.5Z,1010.46,900.00,110.46,1000.00", lines[2])
}

func TestWriteFillsCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFillsCSV(&buf, []schema.Fill{
		{OrderID: 1, SymbolID: 7, Side: schema.SideBuy, Price: 101, Volume: 1, Timestamp: 3_000},
		{OrderID: 2, SymbolID: 7, Side: schema.SideSell, Price: 99.5, Volume: 2, Timestamp: 5_000, Slippage: 5},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "trade_num,order_id,symbol_id,side,price,volume,notional,slippage_bps,timestamp", lines[0])
	assert.Equal(t, "1,1,7,BUY,101,1,101.00,0,3000", lines[1])
	assert.Equal(t, "2,2,7,SELL,99.5,2,199.00,5,5000", lines[2])
}

func TestExportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "fills.csv")
	err := ExportFile(path, func(w io.Writer) error {
		return WriteFillsCSV(w, nil)
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "trade_num,order_id,symbol_id,side,price,volume,notional,slippage_bps,timestamp\n", string(data))
}

func TestRenderSummary(t *testing.T) {
	result := &backtest.Result{
		RunID:       uuid.New(),
		StartedAt:   time.Unix(0, 0),
		FinishedAt:  time.Unix(2, 0),
		Ticks:       6,
		InitialCash: 100_000,
		FinalCash:   99_998,
		FinalEquity: 99_998,
		RealizedPnL: -2,
		PeakEquity:  100_000,
		Metrics: obs.Snapshot{
			Submissions:      3,
			Accepted:         2,
			RiskReasonCounts: map[schema.RiskReason]uint64{schema.RiskReasonMaxOrderSize: 1},
		},
	}

	var buf bytes.Buffer
	RenderSummary(&buf, result)
	out := buf.String()
	assert.Contains(t, out, "Final equity")
	assert.Contains(t, out, "99998.00")
	assert.Contains(t, out, "100000.00")
	assert.Contains(t, out, result.RunID.String())

	buf.Reset()
	RenderActivity(&buf, result)
	out = buf.String()
	assert.Contains(t, out, "Submissions")
	assert.Contains(t, out, "Rejected: max order size")
}
