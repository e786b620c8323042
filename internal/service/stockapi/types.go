package stockapi

import (
	"fmt"

	"github.com/shopspring/decimal"

	"StockLens/internal/domain/models"
	xutil "StockLens/pkg/util"
)

// Backend payloads. Field names follow the backend's column names.

type stockRecord struct {
	StockCode string `json:"StockCode"`
	StockName string `json:"StockName"`
}

type historyRecord struct {
	TradingDate  string          `json:"TradingDate"`
	OpenPrice    decimal.Decimal `json:"OpenPrice"`
	ClosePrice   decimal.Decimal `json:"ClosePrice"`
	HighestPrice decimal.Decimal `json:"HighestPrice"`
	LowestPrice  decimal.Decimal `json:"LowestPrice"`
	TotalVol     decimal.Decimal `json:"TotalVol"`
}

type indicatorRecord struct {
	SMA50      decimal.NullDecimal `json:"SMA_50"`
	SMA200     decimal.NullDecimal `json:"SMA_200"`
	EMA12      decimal.NullDecimal `json:"EMA_12"`
	EMA26      decimal.NullDecimal `json:"EMA_26"`
	RSI        decimal.NullDecimal `json:"RSI"`
	MACD       decimal.NullDecimal `json:"MACD"`
	MACDSignal decimal.NullDecimal `json:"MACD_Signal"`
}

type forecastRecord struct {
	TradingDate          string          `json:"TradingDate"`
	ForecastedClosePrice decimal.Decimal `json:"ForecastedClosePrice"`
}

// envelope is what the backend sends instead of a list when it has nothing
// to return or failed to compute the result.
type envelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (r stockRecord) toModel() (models.Instrument, error) {
	if r.StockCode == "" {
		return models.Instrument{}, fmt.Errorf("instrument without StockCode")
	}
	return models.Instrument{Code: r.StockCode, Name: r.StockName}, nil
}

func (r historyRecord) toModel() (models.HistoricalPoint, error) {
	date, ok := xutil.NormalizeDate(r.TradingDate)
	if !ok {
		return models.HistoricalPoint{}, fmt.Errorf("invalid TradingDate %q", r.TradingDate)
	}
	if r.TotalVol.IsNegative() {
		return models.HistoricalPoint{}, fmt.Errorf("negative TotalVol %s on %s", r.TotalVol, date)
	}
	return models.HistoricalPoint{
		Date:   date,
		Open:   r.OpenPrice,
		Close:  r.ClosePrice,
		High:   r.HighestPrice,
		Low:    r.LowestPrice,
		Volume: r.TotalVol.IntPart(),
	}, nil
}

func (r indicatorRecord) toModel() models.IndicatorSnapshot {
	return models.IndicatorSnapshot{
		SMA50:      r.SMA50,
		SMA200:     r.SMA200,
		EMA12:      r.EMA12,
		EMA26:      r.EMA26,
		RSI:        r.RSI,
		MACD:       r.MACD,
		MACDSignal: r.MACDSignal,
	}
}

func (r forecastRecord) toModel() (models.ForecastPoint, error) {
	date, ok := xutil.NormalizeDate(r.TradingDate)
	if !ok {
		return models.ForecastPoint{}, fmt.Errorf("invalid TradingDate %q", r.TradingDate)
	}
	return models.ForecastPoint{Date: date, ForecastedClose: r.ForecastedClosePrice}, nil
}
