package usecase

import (
	"sort"

	"github.com/shopspring/decimal"

	"StockLens/internal/domain/models"
)

// Reconcile merges history and forecast into one ascending series over the
// union of their dates. A date present in only one input carries a null for
// the other price. Dates are YYYY-MM-DD, so string order is chronological.
// If an input repeats a date, its last value wins.
func Reconcile(history []models.HistoricalPoint, forecast []models.ForecastPoint) []models.MergedSeriesPoint {
	closes := make(map[string]decimal.Decimal, len(history))
	for _, p := range history {
		closes[p.Date] = p.Close
	}
	forecasts := make(map[string]decimal.Decimal, len(forecast))
	for _, p := range forecast {
		forecasts[p.Date] = p.ForecastedClose
	}

	dates := make([]string, 0, len(closes)+len(forecasts))
	for d := range closes {
		dates = append(dates, d)
	}
	for d := range forecasts {
		if _, dup := closes[d]; !dup {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)

	merged := make([]models.MergedSeriesPoint, 0, len(dates))
	for _, d := range dates {
		p := models.MergedSeriesPoint{Date: d}
		if v, ok := closes[d]; ok {
			p.ClosePrice = decimal.NewNullDecimal(v)
		}
		if v, ok := forecasts[d]; ok {
			p.ForecastedClosePrice = decimal.NewNullDecimal(v)
		}
		merged = append(merged, p)
	}
	return merged
}
