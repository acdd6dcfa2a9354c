package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"felix/internal/tickfile"
)

func main() {
	input := flag.String("input", "testdata/ticks.bin", "Tick file to read")
	offset := flag.Int("offset", 0, "Index of the first record to print")
	limit := flag.Int("limit", 20, "Maximum records to print (0=all)")
	symbol := flag.Uint("symbol", 0, "Only print this symbol (0=all)")
	flag.Parse()

	if *offset < 0 || *limit < 0 {
		log.Fatalf("offset and limit must be >= 0")
	}

	stream, err := tickfile.Load(*input)
	if err != nil {
		log.Fatalf("tick file load failed: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Time", "Symbol", "Price", "Bid", "Ask", "Bid Size", "Ask Size", "Volume"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	var printed int
	for stream.HasNext() {
		index := stream.Index()
		tick, _ := stream.Next()
		if index < *offset {
			continue
		}
		if *symbol != 0 && tick.SymbolID != uint32(*symbol) {
			continue
		}
		if *limit > 0 && printed >= *limit {
			break
		}
		printed++
		table.Append([]string{
			fmt.Sprint(index),
			time.Unix(0, int64(tick.Timestamp)).UTC().Format(time.RFC3339Nano),
			fmt.Sprint(tick.SymbolID),
			fmt.Sprintf("%.4f", tick.Price),
			fmt.Sprintf("%.4f", tick.Bid),
			fmt.Sprintf("%.4f", tick.Ask),
			fmt.Sprintf("%.2f", tick.BidSize),
			fmt.Sprintf("%.2f", tick.AskSize),
			fmt.Sprint(tick.Volume),
		})
	}
	table.SetCaption(true, fmt.Sprintf("%s: %d records, %d shown", *input, stream.Size(), printed))
	table.Render()
}
