package main

import (
	"flag"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/yanun0323/logs"

	"felix/internal/mdg"
	"felix/internal/tickfile"
)

func main() {
	output := flag.String("output", "testdata/ticks.bin", "Output tick file")
	ticks := flag.Int("ticks", 10_000, "Number of ticks to generate")
	symbols := flag.String("symbols", "1", "Comma separated symbol IDs")
	start := flag.String("start", "2024-01-02T09:30:00Z", "Timestamp of the first tick (RFC3339)")
	step := flag.Duration("step", 100*time.Millisecond, "Time between ticks")
	basePrice := flag.Float64("base-price", 100, "Starting price")
	spreadBps := flag.Float64("spread-bps", 2, "Bid/ask spread in bps")
	volBps := flag.Float64("vol-bps", 5, "Standard deviation of one price step in bps")
	baseSize := flag.Float64("base-size", 10, "Base quote size")
	seed := flag.Uint64("seed", 1, "Random seed")
	flag.Parse()

	if *ticks <= 0 {
		log.Fatalf("ticks must be > 0")
	}
	if *step < 0 {
		log.Fatalf("step must be >= 0")
	}
	ids, err := parseSymbols(*symbols)
	if err != nil {
		log.Fatalf("invalid symbols: %v", err)
	}
	startAt, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		log.Fatalf("invalid start: %v", err)
	}

	generator, err := mdg.NewGenerator(mdg.Config{
		Symbols:   ids,
		StartNs:   uint64(startAt.UnixNano()),
		StepNs:    uint64(*step),
		BasePrice: *basePrice,
		SpreadBps: *spreadBps,
		VolBps:    *volBps,
		BaseSize:  *baseSize,
		Seed:      *seed,
	})
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
	}

	writer, err := tickfile.Create(*output)
	if err != nil {
		log.Fatalf("tick file create failed: %v", err)
	}
	for i := 0; i < *ticks; i++ {
		if err := writer.Write(generator.Next()); err != nil {
			_ = writer.Close()
			log.Fatalf("tick write failed: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		log.Fatalf("tick file close failed: %v", err)
	}

	logs.Infof("tickgen completed: file=%s ticks=%d symbols=%v", *output, writer.Count(), ids)
}

func parseSymbols(raw string) ([]uint32, error) {
	parts := strings.Split(raw, ",")
	ids := make([]uint32, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint32(id))
	}
	return ids, nil
}
