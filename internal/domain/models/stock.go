package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Instrument is a tradable security as listed by the backend catalog.
type Instrument struct {
	Code string
	Name string
}

// InstrumentOption is a selectable catalog entry.
type InstrumentOption struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// NewInstrumentOption builds the option for i with a "<code> - <name>" label.
func NewInstrumentOption(i Instrument) InstrumentOption {
	return InstrumentOption{
		Code:  i.Code,
		Label: fmt.Sprintf("%s - %s", i.Code, i.Name),
	}
}

// HistoricalPoint is one trading day of an instrument's price history.
// Date is always YYYY-MM-DD.
type HistoricalPoint struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	Close  decimal.Decimal `json:"close"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Volume int64           `json:"volume"`
}

// ForecastPoint is one forecasted close for a future date.
type ForecastPoint struct {
	Date            string          `json:"date"`
	ForecastedClose decimal.Decimal `json:"forecastedClose"`
}

// IndicatorSnapshot is the latest value of each technical indicator. A field
// the backend could not compute stays invalid, which is distinct from zero.
type IndicatorSnapshot struct {
	SMA50      decimal.NullDecimal `json:"sma50"`
	SMA200     decimal.NullDecimal `json:"sma200"`
	EMA12      decimal.NullDecimal `json:"ema12"`
	EMA26      decimal.NullDecimal `json:"ema26"`
	RSI        decimal.NullDecimal `json:"rsi"`
	MACD       decimal.NullDecimal `json:"macd"`
	MACDSignal decimal.NullDecimal `json:"macdSignal"`
}

// MergedSeriesPoint is one date on the combined chart axis. Either price may
// be absent when the date only exists in the other series.
type MergedSeriesPoint struct {
	Date                 string              `json:"date"`
	ClosePrice           decimal.NullDecimal `json:"closePrice"`
	ForecastedClosePrice decimal.NullDecimal `json:"forecastedClosePrice"`
}
