package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"services/symbol-data-service/internal/metrics"
	"services/symbol-data-service/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWindowedReader struct {
	aggregate     *model.SymbolWithData
	err           error
	lastSymbol    string
	lastWindowDay int
}

func (f *fakeWindowedReader) GetSymbolWithWindow(ctx context.Context, symbol string, windowDays int) (*model.SymbolWithData, error) {
	f.lastSymbol = symbol
	f.lastWindowDay = windowDays
	if f.err != nil {
		return nil, f.err
	}
	return f.aggregate, nil
}

func newTimeSeriesFixture(data []model.DataPoint) *fakeWindowedReader {
	return &fakeWindowedReader{
		aggregate: &model.SymbolWithData{
			Symbol: model.Symbol{Symbol: "AAPL", AddedDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
			Data:   data,
		},
	}
}

func dataPoint(date time.Time, closePrice string, sma, rsi *float64) model.DataPoint {
	price := decimal.RequireFromString(closePrice)
	return model.DataPoint{
		Symbol: "AAPL",
		Date:   date,
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		SMA:    sma,
		RSI:    rsi,
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestGetSymbolTimeSeriesShapesAllSeries(t *testing.T) {
	newer := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	reader := newTimeSeriesFixture([]model.DataPoint{
		dataPoint(newer, "101.25", floatPtr(100.5), floatPtr(55.2)),
		dataPoint(older, "99.75", nil, nil),
	})
	svc := NewTimeSeriesService(reader, metrics.New(prometheus.NewRegistry()), zap.NewNop())

	series, err := svc.GetSymbolTimeSeries(context.Background(), "aapl", 100)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", reader.lastSymbol)
	assert.Equal(t, 100, reader.lastWindowDay)

	require.Len(t, series.Candles, 2)
	require.Len(t, series.Trend, 2)
	require.Len(t, series.Oscillator, 2)

	// Output order follows the underlying row order
	assert.Equal(t, newer, series.Candles[0].Date)
	assert.Equal(t, older, series.Candles[1].Date)
	assert.True(t, series.Candles[0].Close.Equal(decimal.RequireFromString("101.25")))

	// Indicators stay null where the worker left them undefined
	require.NotNil(t, series.Trend[0].Value)
	assert.Equal(t, 100.5, *series.Trend[0].Value)
	assert.Nil(t, series.Trend[1].Value)
	require.NotNil(t, series.Oscillator[0].Value)
	assert.Equal(t, 55.2, *series.Oscillator[0].Value)
	assert.Nil(t, series.Oscillator[1].Value)
}

func TestGetSymbolTimeSeriesEmptyWindowIsNotAnError(t *testing.T) {
	reader := newTimeSeriesFixture([]model.DataPoint{})
	svc := NewTimeSeriesService(reader, metrics.New(prometheus.NewRegistry()), zap.NewNop())

	series, err := svc.GetSymbolTimeSeries(context.Background(), "AAPL", 100)
	require.NoError(t, err)

	assert.NotNil(t, series.Data)
	assert.Empty(t, series.Data)
	assert.Empty(t, series.Candles)

	// The empty data series serializes as [], not null
	body, err := json.Marshal(series)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"data":[]`)
}

func TestGetSymbolTimeSeriesUnknownSymbol(t *testing.T) {
	reader := &fakeWindowedReader{err: model.ErrSymbolNotFound}
	svc := NewTimeSeriesService(reader, metrics.New(prometheus.NewRegistry()), zap.NewNop())

	_, err := svc.GetSymbolTimeSeries(context.Background(), "UNKNOWN", 100)
	assert.ErrorIs(t, err, model.ErrSymbolNotFound)
}

func TestGetSymbolTimeSeriesDefaultWindow(t *testing.T) {
	reader := newTimeSeriesFixture(nil)
	svc := NewTimeSeriesService(reader, metrics.New(prometheus.NewRegistry()), zap.NewNop())

	_, err := svc.GetSymbolTimeSeries(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultWindowDays, reader.lastWindowDay)
}

func TestGetSymbolTimeSeriesDeterministic(t *testing.T) {
	date := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	reader := newTimeSeriesFixture([]model.DataPoint{
		dataPoint(date, "42.10", floatPtr(41.0), floatPtr(60.0)),
	})
	svc := NewTimeSeriesService(reader, metrics.New(prometheus.NewRegistry()), zap.NewNop())

	first, err := svc.GetSymbolTimeSeries(context.Background(), "AAPL", 100)
	require.NoError(t, err)
	second, err := svc.GetSymbolTimeSeries(context.Background(), "AAPL", 100)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}
