package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/gorm"

	"felix/internal/backtest"
	"felix/pkg/exception"
)

const batchSize = 500

// Store persists backtest results.
type Store struct {
	db *gorm.DB
}

// New wraps db. Migrate must run before the first save.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the result tables.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return exception.ErrStoreNotConfigured
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&Run{}, &Fill{}, &EquityPoint{}); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}

// SaveResult writes a run with its fills and equity curve in one transaction.
func (s *Store) SaveResult(ctx context.Context, tickFile string, result *backtest.Result) error {
	if s == nil || s.db == nil {
		return exception.ErrStoreNotConfigured
	}
	if result == nil {
		return exception.ErrStoreNilResult
	}

	run := NewRun(tickFile, result)
	fills := NewFills(result)
	points := NewEquityPoints(result)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return errors.Wrap(err, "create run")
		}
		if len(fills) > 0 {
			if err := tx.CreateInBatches(fills, batchSize).Error; err != nil {
				return errors.Wrap(err, "create fills")
			}
		}
		if len(points) > 0 {
			if err := tx.CreateInBatches(points, batchSize).Error; err != nil {
				return errors.Wrap(err, "create equity points")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logs.Infof("[store] saved run %s: fills=%d points=%d", run.ID, len(fills), len(points))
	return nil
}

// LoadRun reads a run with its fills and equity curve.
func (s *Store) LoadRun(ctx context.Context, id uuid.UUID) (Run, error) {
	if s == nil || s.db == nil {
		return Run{}, exception.ErrStoreNotConfigured
	}
	var run Run
	err := s.db.WithContext(ctx).
		Preload("Fills", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Preload("EquityPoints", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		First(&run, "id = ?", id).Error
	if err != nil {
		return Run{}, errors.Wrap(err, "load run")
	}
	return run, nil
}

// NewRun maps a result onto its run row, without children.
func NewRun(tickFile string, result *backtest.Result) Run {
	return Run{
		ID:             result.RunID,
		StartedAt:      result.StartedAt,
		FinishedAt:     result.FinishedAt,
		TickFile:       tickFile,
		Ticks:          result.Ticks,
		FirstTimestamp: result.FirstTimestamp,
		LastTimestamp:  result.LastTimestamp,
		InitialCash:    result.InitialCash,
		FinalEquity:    result.FinalEquity,
		RealizedPnL:    result.RealizedPnL,
		MaxDrawdown:    result.MaxDrawdown,
		Halted:         result.Halted,
	}
}

func NewFills(result *backtest.Result) []Fill {
	out := make([]Fill, 0, len(result.Fills))
	for i, f := range result.Fills {
		out = append(out, Fill{
			RunID:     result.RunID,
			Seq:       i,
			OrderID:   f.OrderID,
			SymbolID:  f.SymbolID,
			Side:      f.Side.String(),
			Price:     f.Price,
			Volume:    f.Volume,
			Slippage:  f.Slippage,
			Timestamp: f.Timestamp,
		})
	}
	return out
}

func NewEquityPoints(result *backtest.Result) []EquityPoint {
	out := make([]EquityPoint, 0, len(result.EquityCurve))
	for i, p := range result.EquityCurve {
		out = append(out, EquityPoint{
			RunID:         result.RunID,
			Seq:           i,
			Timestamp:     p.Timestamp,
			Equity:        p.Equity,
			Cash:          p.Cash,
			UnrealizedPnL: p.UnrealizedPnL,
		})
	}
	return out
}
