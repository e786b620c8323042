// Package presenter turns dashboard state into display-ready values shared
// by the HTTP API and the console.
package presenter

import (
	"strings"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"StockLens/internal/domain/models"
)

const (
	NotAvailable      = "not available"
	LoadingIndicators = "Loading indicators..."
	titlePrefix       = "Stock Price for"
)

// HistoryHeaders are the raw table column titles, in order.
var HistoryHeaders = []string{
	"Trading Date", "Open Price", "Close Price", "Highest Price", "Lowest Price", "Total Volume",
}

type IndicatorRow struct {
	Label     string `json:"label"`
	Value     string `json:"value"`
	Available bool   `json:"available"`
}

type ChartPoint struct {
	Date     string     `json:"date"`
	Close    null.Float `json:"close"`
	Forecast null.Float `json:"forecast"`
}

type HistoryRow struct {
	Date   string `json:"trading_date"`
	Open   string `json:"open_price"`
	Close  string `json:"close_price"`
	High   string `json:"highest_price"`
	Low    string `json:"lowest_price"`
	Volume int64  `json:"total_volume"`
}

type HorizonOption struct {
	Token string `json:"token"`
	Label string `json:"label"`
}

type ResourceView struct {
	Status string      `json:"status"`
	Error  null.String `json:"error"`
}

type DashboardView struct {
	Version        uint64                    `json:"version"`
	Title          string                    `json:"title"`
	Instruments    []models.InstrumentOption `json:"instruments"`
	Selected       *models.InstrumentOption  `json:"selected"`
	Horizon        HorizonOption             `json:"horizon"`
	Horizons       []HorizonOption           `json:"horizons"`
	Chart          []ChartPoint              `json:"chart"`
	Indicators     []IndicatorRow            `json:"indicators"`
	HistoryHeaders []string                  `json:"history_headers"`
	History        []HistoryRow              `json:"history"`
	Catalog        ResourceView              `json:"catalog"`
	HistoryStatus  ResourceView              `json:"history_status"`
	IndicatorState ResourceView              `json:"indicators_status"`
	ForecastStatus ResourceView              `json:"forecast_status"`
}

// FormatDecimal renders v with two decimals, or NotAvailable when absent.
func FormatDecimal(v decimal.NullDecimal) string {
	if !v.Valid {
		return NotAvailable
	}
	return v.Decimal.StringFixed(2)
}

// IndicatorRows lists the snapshot in display order. A nil snapshot has not
// arrived yet and yields no rows.
func IndicatorRows(s *models.IndicatorSnapshot) []IndicatorRow {
	if s == nil {
		return []IndicatorRow{}
	}
	fields := []struct {
		label string
		v     decimal.NullDecimal
	}{
		{"SMA 50", s.SMA50},
		{"SMA 200", s.SMA200},
		{"EMA 12", s.EMA12},
		{"EMA 26", s.EMA26},
		{"RSI", s.RSI},
		{"MACD", s.MACD},
		{"MACD Signal", s.MACDSignal},
	}
	rows := make([]IndicatorRow, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, IndicatorRow{Label: f.label, Value: FormatDecimal(f.v), Available: f.v.Valid})
	}
	return rows
}

func ChartSeries(merged []models.MergedSeriesPoint) []ChartPoint {
	out := make([]ChartPoint, 0, len(merged))
	for _, p := range merged {
		out = append(out, ChartPoint{
			Date:     p.Date,
			Close:    toFloat(p.ClosePrice),
			Forecast: toFloat(p.ForecastedClosePrice),
		})
	}
	return out
}

func HistoryTable(points []models.HistoricalPoint) []HistoryRow {
	out := make([]HistoryRow, 0, len(points))
	for _, p := range points {
		out = append(out, HistoryRow{
			Date:   p.Date,
			Open:   p.Open.StringFixed(2),
			Close:  p.Close.StringFixed(2),
			High:   p.High.StringFixed(2),
			Low:    p.Low.StringFixed(2),
			Volume: p.Volume,
		})
	}
	return out
}

func Horizons() []HorizonOption {
	out := make([]HorizonOption, 0, len(models.Horizons))
	for _, h := range models.Horizons {
		out = append(out, HorizonOption{Token: h.Token(), Label: h.Label()})
	}
	return out
}

// Title is the chart heading for the current selection.
func Title(sel models.Selection) string {
	if sel.Instrument == nil {
		return titlePrefix
	}
	return strings.Join([]string{titlePrefix, sel.Instrument.Label}, " ")
}

func BuildView(s models.DashboardState) DashboardView {
	instruments := s.Catalog
	if instruments == nil {
		instruments = []models.InstrumentOption{}
	}
	return DashboardView{
		Version:        s.Version,
		Title:          Title(s.Selection),
		Instruments:    instruments,
		Selected:       s.Selection.Instrument,
		Horizon:        HorizonOption{Token: s.Selection.Horizon.Token(), Label: s.Selection.Horizon.Label()},
		Horizons:       Horizons(),
		Chart:          ChartSeries(s.Merged),
		Indicators:     IndicatorRows(s.Indicators),
		HistoryHeaders: HistoryHeaders,
		History:        HistoryTable(s.History),
		Catalog:        resourceView(s.CatalogState),
		HistoryStatus:  resourceView(s.HistoryState),
		IndicatorState: resourceView(s.IndicatorsState),
		ForecastStatus: resourceView(s.ForecastState),
	}
}

func resourceView(rs models.ResourceState) ResourceView {
	v := ResourceView{Status: string(rs.Status)}
	if v.Status == "" {
		v.Status = string(models.StatusIdle)
	}
	if rs.Err != nil {
		v.Error = null.StringFrom(rs.Err.Error())
	}
	return v
}

func toFloat(v decimal.NullDecimal) null.Float {
	if !v.Valid {
		return null.Float{}
	}
	return null.FloatFrom(v.Decimal.InexactFloat64())
}
