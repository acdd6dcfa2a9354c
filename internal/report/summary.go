package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"felix/internal/backtest"
	"felix/internal/schema"
)

// Money renders a monetary value with two decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Percent renders a fraction as a percentage with two decimals.
func Percent(v float64) string {
	return decimal.NewFromFloat(v).Shift(2).StringFixed(2) + "%"
}

// RenderSummary writes the headline numbers of a run as a table.
func RenderSummary(w io.Writer, result *backtest.Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetCaption(true, "run "+result.RunID.String())

	rows := [][]string{
		{"Ticks", fmt.Sprint(result.Ticks)},
		{"Period", period(result.FirstTimestamp, result.LastTimestamp)},
		{"Initial cash", Money(result.InitialCash)},
		{"Final cash", Money(result.FinalCash)},
		{"Final equity", Money(result.FinalEquity)},
		{"Return", Percent(result.Return())},
		{"Realized P&L", Money(result.RealizedPnL)},
		{"Unrealized P&L", Money(result.UnrealizedPnL)},
		{"Peak equity", Money(result.PeakEquity)},
		{"Max drawdown", Percent(result.MaxDrawdown)},
		{"Fills", fmt.Sprint(len(result.Fills))},
		{"Pending orders", fmt.Sprint(result.PendingOrders)},
		{"Halted", fmt.Sprint(result.Halted)},
		{"Elapsed", result.Elapsed().Round(time.Millisecond).String()},
	}
	table.AppendBulk(rows)
	table.Render()
}

// RenderActivity writes order flow counters and rejections per reason.
func RenderActivity(w io.Writer, result *backtest.Result) {
	m := result.Metrics

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Counter", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)

	table.Append([]string{"Submissions", fmt.Sprint(m.Submissions)})
	table.Append([]string{"Accepted", fmt.Sprint(m.Accepted)})
	table.Append([]string{"Fills", fmt.Sprint(m.Fills)})
	table.Append([]string{"Cancels", fmt.Sprint(m.Cancels)})

	reasons := make([]schema.RiskReason, 0, len(m.RiskReasonCounts))
	for reason := range m.RiskReasonCounts {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, reason := range reasons {
		table.Append([]string{"Rejected: " + reason.String(), fmt.Sprint(m.RiskReasonCounts[reason])})
	}

	if m.FillDelay.Count > 0 {
		table.Append([]string{"Fill delay avg", m.FillDelay.Avg.String()})
		table.Append([]string{"Fill delay max", m.FillDelay.Max.String()})
	}
	if m.TickLatency.Count > 0 {
		table.Append([]string{"Tick latency avg", m.TickLatency.Avg.String()})
	}
	table.Render()
}

func period(first, last uint64) string {
	if first == 0 && last == 0 {
		return "-"
	}
	return fmt.Sprintf("%s .. %s", timestamp(first), timestamp(last))
}

func timestamp(ns uint64) string {
	return time.Unix(0, int64(ns)).UTC().Format(time.RFC3339Nano)
}
