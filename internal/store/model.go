package store

import (
	"time"

	"github.com/google/uuid"
)

// Run is one persisted backtest run.
type Run struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	StartedAt      time.Time `gorm:"not null"`
	FinishedAt     time.Time `gorm:"not null"`
	TickFile       string
	Ticks          int
	FirstTimestamp uint64
	LastTimestamp  uint64
	InitialCash    float64
	FinalEquity    float64
	RealizedPnL    float64
	MaxDrawdown    float64
	Halted         bool
	Fills          []Fill        `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	EquityPoints   []EquityPoint `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

func (Run) TableName() string {
	return "backtest_runs"
}

// Fill is one execution of a run.
type Fill struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	RunID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Seq       int       `gorm:"not null"`
	OrderID   uint64
	SymbolID  uint32
	Side      string `gorm:"size:8"`
	Price     float64
	Volume    float64
	Slippage  float64
	Timestamp uint64
}

func (Fill) TableName() string {
	return "backtest_fills"
}

// EquityPoint is one sample of a run's equity curve.
type EquityPoint struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	RunID         uuid.UUID `gorm:"type:uuid;index;not null"`
	Seq           int       `gorm:"not null"`
	Timestamp     uint64
	Equity        float64
	Cash          float64
	UnrealizedPnL float64
}

func (EquityPoint) TableName() string {
	return "backtest_equity_points"
}
