package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Symbol represents a tracked market symbol and its import state
type Symbol struct {
	Symbol            string     `json:"symbol" db:"symbol"`
	AddedDate         time.Time  `json:"added_date" db:"added_date"`
	InitialImportDate *time.Time `json:"initial_import_date" db:"initial_import_date"`
	LastUpdateDate    *time.Time `json:"last_update_date,omitempty" db:"last_update_date"`
}

// Imported reports whether the external worker has finished the initial backfill
func (s *Symbol) Imported() bool {
	return s.InitialImportDate != nil
}

// DataPoint represents one daily bar with the worker-computed indicator values.
// The indicator columns stay null until the worker has a full window to compute
// over, so they are pointers and serialize as JSON null when undefined.
type DataPoint struct {
	Symbol string          `json:"symbol" db:"symbol"`
	Date   time.Time       `json:"date" db:"date"`
	Open   decimal.Decimal `json:"open" db:"open"`
	High   decimal.Decimal `json:"high" db:"high"`
	Low    decimal.Decimal `json:"low" db:"low"`
	Close  decimal.Decimal `json:"close" db:"close"`
	SMA    *float64        `json:"sma100d" db:"sma100d"`
	RSI    *float64        `json:"rsi100d" db:"rsi100d"`
}

// SymbolWithData is a symbol joined with its data points over a trailing window
type SymbolWithData struct {
	Symbol
	Data []DataPoint `json:"data"`
}

// PriceBar is one candle of the shaped price series
type PriceBar struct {
	Date  time.Time       `json:"date"`
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}

// IndicatorPoint is one point of a shaped indicator series; Value is null
// where the indicator is undefined over the window
type IndicatorPoint struct {
	Date  time.Time `json:"date"`
	Value *float64  `json:"value"`
}

// SymbolTimeSeries is the windowed aggregate shaped into the series the
// dashboard consumes: price bars, the trend indicator and the bounded
// oscillator, all in the same date order as the underlying rows
type SymbolTimeSeries struct {
	SymbolWithData
	Candles    []PriceBar       `json:"candles"`
	Trend      []IndicatorPoint `json:"trend"`
	Oscillator []IndicatorPoint `json:"oscillator"`
}
