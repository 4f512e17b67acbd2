package service

import (
	"context"

	"services/symbol-data-service/internal/metrics"
	"services/symbol-data-service/internal/model"

	"go.uber.org/zap"
)

// DefaultWindowDays is the trailing window applied when the caller does not
// ask for a specific one.
const DefaultWindowDays = 100

// WindowedReader is the storage surface the query engine needs
type WindowedReader interface {
	GetSymbolWithWindow(ctx context.Context, symbol string, windowDays int) (*model.SymbolWithData, error)
}

// TimeSeriesService answers windowed time-series queries and shapes the raw
// rows into the series a dashboard consumes
type TimeSeriesService struct {
	data    WindowedReader
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewTimeSeriesService creates a new time series service
func NewTimeSeriesService(data WindowedReader, m *metrics.Metrics, logger *zap.Logger) *TimeSeriesService {
	return &TimeSeriesService{
		data:    data,
		metrics: m,
		logger:  logger,
	}
}

// GetSymbolTimeSeries returns the windowed aggregate for a symbol shaped into
// price-bar, trend and oscillator series. A non-positive windowDays falls back
// to DefaultWindowDays. Shaping is pure: identical rows in produce identical
// output, in the same date order as the rows.
func (s *TimeSeriesService) GetSymbolTimeSeries(ctx context.Context, raw string, windowDays int) (*model.SymbolTimeSeries, error) {
	symbol, err := NormalizeSymbol(raw)
	if err != nil {
		return nil, err
	}

	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	aggregate, err := s.data.GetSymbolWithWindow(ctx, symbol, windowDays)
	if err != nil {
		return nil, err
	}

	s.metrics.WindowQueriesTotal.Inc()

	return shapeTimeSeries(aggregate), nil
}

func shapeTimeSeries(aggregate *model.SymbolWithData) *model.SymbolTimeSeries {
	series := &model.SymbolTimeSeries{
		SymbolWithData: *aggregate,
		Candles:        make([]model.PriceBar, 0, len(aggregate.Data)),
		Trend:          make([]model.IndicatorPoint, 0, len(aggregate.Data)),
		Oscillator:     make([]model.IndicatorPoint, 0, len(aggregate.Data)),
	}

	for _, point := range aggregate.Data {
		series.Candles = append(series.Candles, model.PriceBar{
			Date:  point.Date,
			Open:  point.Open,
			High:  point.High,
			Low:   point.Low,
			Close: point.Close,
		})
		series.Trend = append(series.Trend, model.IndicatorPoint{
			Date:  point.Date,
			Value: point.SMA,
		})
		series.Oscillator = append(series.Oscillator, model.IndicatorPoint{
			Date:  point.Date,
			Value: point.RSI,
		})
	}

	return series
}
