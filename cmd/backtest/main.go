package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"felix/internal/backtest"
	"felix/internal/config"
	"felix/internal/obs"
	"felix/internal/portfolio"
	"felix/internal/report"
	"felix/internal/store"
	"felix/internal/strategy"
	"felix/internal/tickfile"
	"felix/pkg/conn"
)

const persistTimeout = 30 * time.Second

func main() {
	tickPath := flag.String("ticks", "", "Path to tick file")
	configPath := flag.String("config", "", "Path to JSON or YAML config")
	equityCSV := flag.String("equity-csv", "", "Write equity curve CSV (overrides config)")
	fillsCSV := flag.String("fills-csv", "", "Write trade log CSV (overrides config)")
	snapshotPath := flag.String("snapshot", "", "Write final portfolio snapshot (overrides config)")
	baselinePath := flag.String("baseline", "", "Compare final portfolio against a snapshot (overrides config)")
	persist := flag.Bool("persist", false, "Save the result to the configured store")
	quiet := flag.Bool("quiet", false, "Skip the summary tables")
	flag.Parse()

	if *tickPath == "" {
		log.Fatalf("ticks is required")
	}

	loaded := config.Default()
	if *configPath != "" {
		var err error
		loaded, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
	}
	override(&loaded.Output.EquityCSV, *equityCSV)
	override(&loaded.Output.FillsCSV, *fillsCSV)
	override(&loaded.Output.Snapshot, *snapshotPath)
	override(&loaded.Output.Baseline, *baselinePath)

	if loaded.Profiling.ServerAddress != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: loaded.Profiling.ApplicationName,
			ServerAddress:   loaded.Profiling.ServerAddress,
			Tags:            loaded.Profiling.Tags,
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	stream, err := tickfile.Load(*tickPath)
	if err != nil {
		log.Fatalf("tick file load failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sys.Shutdown():
			logs.Warnf("shutdown signal received, stopping run")
			cancel()
		case <-ctx.Done():
		}
	}()

	metrics := obs.NewMetrics()
	runner := backtest.New(backtest.Options{
		Config:      loaded.Run,
		Matching:    loaded.Matching,
		Limits:      loaded.Risk,
		InitialCash: loaded.InitialCash,
		Source:      stream,
		Strategy:    strategy.NewInterval(loaded.Strategy),
		Metrics:     metrics,
	})

	result, runErr := runner.Run(ctx)
	if runErr != nil {
		logs.Errorf("run stopped early: %+v", runErr)
	}

	if !*quiet {
		report.RenderSummary(os.Stdout, &result)
		report.RenderActivity(os.Stdout, &result)
	}

	if err := export(loaded.Output, &result); err != nil {
		log.Fatalf("export failed: %v", err)
	}

	if *persist {
		if err := save(loaded.Store, *tickPath, &result); err != nil {
			log.Fatalf("store failed: %v", err)
		}
	}

	if runErr != nil {
		os.Exit(1)
	}
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func export(out config.OutputConfig, result *backtest.Result) error {
	if out.EquityCSV != "" {
		err := report.ExportFile(out.EquityCSV, func(w io.Writer) error {
			return report.WriteEquityCSV(w, result.EquityCurve, result.InitialCash)
		})
		if err != nil {
			return err
		}
		logs.Infof("equity curve written: %s", out.EquityCSV)
	}
	if out.FillsCSV != "" {
		err := report.ExportFile(out.FillsCSV, func(w io.Writer) error {
			return report.WriteFillsCSV(w, result.Fills)
		})
		if err != nil {
			return err
		}
		logs.Infof("trade log written: %s", out.FillsCSV)
	}
	if out.Snapshot != "" {
		if err := portfolio.WriteSnapshot(out.Snapshot, result.Snapshot); err != nil {
			return err
		}
		logs.Infof("snapshot written: %s", out.Snapshot)
	}
	if out.Baseline != "" {
		expected, err := portfolio.ReadSnapshot(out.Baseline)
		if err != nil {
			return err
		}
		if err := portfolio.CompareSnapshots(expected, result.Snapshot, out.Tolerance); err != nil {
			return err
		}
		logs.Infof("snapshot matches baseline: %s", out.Baseline)
	}
	return nil
}

// persistContext is detached from the run context, which a shutdown signal
// may already have cancelled.
func persistContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), persistTimeout)
}

func save(option *conn.Option, tickPath string, result *backtest.Result) error {
	ctx, cancel := persistContext()
	defer cancel()

	if option == nil {
		return store.New(nil).SaveResult(ctx, tickPath, result)
	}
	client, err := conn.New(*option)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	s := store.New(client.DB())
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	return s.SaveResult(ctx, tickPath, result)
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
