package service

import (
	"context"

	"StockLens/internal/domain/models"
)

// StockAPI is the backend that lists instruments and serves per-instrument
// history, indicators and forecasts.
type StockAPI interface {
	ListInstruments(ctx context.Context) ([]models.Instrument, error)
	History(ctx context.Context, code string) ([]models.HistoricalPoint, error)
	Indicators(ctx context.Context, code string) (models.IndicatorSnapshot, error)
	Forecast(ctx context.Context, code string, horizon models.Horizon) ([]models.ForecastPoint, error)
}
