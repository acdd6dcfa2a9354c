package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"

	"felix/internal/backtest"
	"felix/internal/matching"
	"felix/internal/risk"
	"felix/internal/schema"
	"felix/internal/strategy"
	"felix/pkg/conn"
	"felix/pkg/exception"
)

const DefaultInitialCash = 100_000

// FileConfig mirrors the config file layout. Optional sections are pointers
// so an omitted section falls back to its defaults.
type FileConfig struct {
	InitialCash *float64        `json:"initialCash" yaml:"initialCash"`
	Matching    matching.Config `json:"matching" yaml:"matching"`
	Risk        *risk.Limits    `json:"risk" yaml:"risk"`
	Run         RunConfig       `json:"run" yaml:"run"`
	Strategy    StrategyConfig  `json:"strategy" yaml:"strategy"`
	Output      OutputConfig    `json:"output" yaml:"output"`
	Store       *conn.Option    `json:"store" yaml:"store"`
	Profiling   ProfilingConfig `json:"profiling" yaml:"profiling"`
}

// RunConfig describes the run loop.
type RunConfig struct {
	EquityIntervalNs uint64  `json:"equityIntervalNs" yaml:"equityIntervalNs"`
	DayLengthNs      *uint64 `json:"dayLengthNs" yaml:"dayLengthNs"`
	HaltOnDrawdown   *bool   `json:"haltOnDrawdown" yaml:"haltOnDrawdown"`
	HaltOnDailyLoss  *bool   `json:"haltOnDailyLoss" yaml:"haltOnDailyLoss"`
}

// StrategyConfig describes the sample interval strategy.
type StrategyConfig struct {
	strategy.IntervalConfig `yaml:",inline"`
	Type                    string `json:"type" yaml:"type"`
}

// OutputConfig lists optional result files.
type OutputConfig struct {
	EquityCSV string `json:"equityCsv" yaml:"equityCsv"`
	FillsCSV  string `json:"fillsCsv" yaml:"fillsCsv"`
	Snapshot  string `json:"snapshot" yaml:"snapshot"`
	// Baseline is a snapshot the final state must match within Tolerance.
	Baseline  string  `json:"baseline" yaml:"baseline"`
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
}

// ProfilingConfig enables continuous profiling when ServerAddress is set.
type ProfilingConfig struct {
	ServerAddress   string            `json:"serverAddress" yaml:"serverAddress"`
	ApplicationName string            `json:"applicationName" yaml:"applicationName"`
	Tags            map[string]string `json:"tags" yaml:"tags"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	InitialCash float64
	Matching    matching.Config
	Risk        risk.Limits
	Run         backtest.Config
	Strategy    strategy.IntervalConfig
	Output      OutputConfig
	Store       *conn.Option
	Profiling   ProfilingConfig
}

// DefaultLimits are used when the config has no risk section.
func DefaultLimits() risk.Limits {
	return risk.Limits{
		MaxOrderSize:    1_000,
		MaxPositionSize: 10_000,
		MaxDrawdown:     0.2,
	}
}

// Default returns the configuration used without a config file.
func Default() Loaded {
	loaded, _ := Resolve(FileConfig{})
	return loaded
}

// Load reads a JSON or YAML config file, expands ${ENV} references and
// resolves it. The format follows the file extension.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrapf(exception.ErrConfigRead, "%s, err: %+v", path, err)
	}
	cfg, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return Loaded{}, err
	}
	return Resolve(cfg)
}

// Decode parses raw config bytes. ext selects the format: ".json", ".yaml" or ".yml".
func Decode(data []byte, ext string) (FileConfig, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg FileConfig
	switch strings.ToLower(ext) {
	case ".json":
		if err := sonic.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, errors.Wrapf(exception.ErrConfigDecode, "json, err: %+v", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, errors.Wrapf(exception.ErrConfigDecode, "yaml, err: %+v", err)
		}
	default:
		return FileConfig{}, errors.Wrapf(exception.ErrConfigUnsupported, "extension %q", ext)
	}
	return cfg, nil
}

// Resolve applies defaults and validates the result.
func Resolve(cfg FileConfig) (Loaded, error) {
	loaded := Loaded{
		InitialCash: DefaultInitialCash,
		Matching:    cfg.Matching,
		Risk:        DefaultLimits(),
		Run: backtest.Config{
			EquityIntervalNs: cfg.Run.EquityIntervalNs,
			DayLengthNs:      backtest.DefaultDayLengthNs,
			HaltOnDrawdown:   true,
			HaltOnDailyLoss:  true,
		},
		Output:    cfg.Output,
		Store:     cfg.Store,
		Profiling: cfg.Profiling,
	}
	if cfg.InitialCash != nil {
		loaded.InitialCash = *cfg.InitialCash
	}
	if cfg.Risk != nil {
		loaded.Risk = *cfg.Risk
	}
	if cfg.Run.DayLengthNs != nil {
		loaded.Run.DayLengthNs = *cfg.Run.DayLengthNs
	}
	if cfg.Run.HaltOnDrawdown != nil {
		loaded.Run.HaltOnDrawdown = *cfg.Run.HaltOnDrawdown
	}
	if cfg.Run.HaltOnDailyLoss != nil {
		loaded.Run.HaltOnDailyLoss = *cfg.Run.HaltOnDailyLoss
	}
	if loaded.Output.Tolerance == 0 {
		loaded.Output.Tolerance = 1e-6
	}
	if loaded.Profiling.ServerAddress != "" && loaded.Profiling.ApplicationName == "" {
		loaded.Profiling.ApplicationName = "felix.backtest"
	}

	strat, err := resolveStrategy(cfg.Strategy)
	if err != nil {
		return Loaded{}, err
	}
	loaded.Strategy = strat

	if err := validate(loaded); err != nil {
		return Loaded{}, err
	}
	return loaded, nil
}

func resolveStrategy(cfg StrategyConfig) (strategy.IntervalConfig, error) {
	out := cfg.IntervalConfig
	switch strings.ToLower(cfg.Type) {
	case "", "market":
		out.Type = schema.OrderTypeMarket
	case "limit":
		out.Type = schema.OrderTypeLimit
	default:
		return strategy.IntervalConfig{}, errors.Wrapf(exception.ErrConfigInvalid, "strategy type %q", cfg.Type)
	}
	if out.EveryTicks == 0 {
		out.EveryTicks = 100
	}
	if out.Size == 0 {
		out.Size = 1
	}
	return out, nil
}

func validate(l Loaded) error {
	invalid := func(format string, args ...any) error {
		return errors.Wrapf(exception.ErrConfigInvalid, format, args...)
	}
	switch {
	case !(l.InitialCash > 0):
		return invalid("initialCash must be > 0")
	case l.Matching.FixedBps < 0:
		return invalid("matching.fixedBps must be >= 0")
	case !(l.Risk.MaxOrderSize > 0):
		return invalid("risk.maxOrderSize must be > 0")
	case !(l.Risk.MaxPositionSize > 0):
		return invalid("risk.maxPositionSize must be > 0")
	case l.Risk.MaxNotional < 0:
		return invalid("risk.maxNotional must be >= 0")
	case !(l.Risk.MaxDrawdown > 0) || l.Risk.MaxDrawdown > 1:
		return invalid("risk.maxDrawdown must be in (0, 1]")
	case l.Risk.MaxDailyLoss < 0:
		return invalid("risk.maxDailyLoss must be >= 0")
	case l.Strategy.EveryTicks < 0:
		return invalid("strategy.everyTicks must be >= 0")
	case l.Strategy.MaxOrders < 0:
		return invalid("strategy.maxOrders must be >= 0")
	case !(l.Strategy.Size > 0):
		return invalid("strategy.size must be > 0")
	case l.Strategy.OffsetBps < 0:
		return invalid("strategy.offsetBps must be >= 0")
	case l.Output.Tolerance < 0:
		return invalid("output.tolerance must be >= 0")
	}
	return nil
}
