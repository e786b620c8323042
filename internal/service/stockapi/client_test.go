package stockapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/domain/models"
	xhttp "StockLens/pkg/http"
)

type requestLog struct {
	mu   sync.Mutex
	reqs []*http.Request
}

func (l *requestLog) add(r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reqs = append(l.reqs, r)
}

func (l *requestLog) all() []*http.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*http.Request(nil), l.reqs...)
}

func newBackend(t *testing.T, routes map[string]string) (*Client, *requestLog) {
	t.Helper()
	seen := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.add(r.Clone(context.Background()))
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 5*time.Second), seen
}

func TestListInstrumentsKeepsBackendOrder(t *testing.T) {
	c, _ := newBackend(t, map[string]string{
		"/stocks": `[{"StockCode":"BBB","StockName":"Stock B"},{"StockCode":"AAA","StockName":"Stock A"}]`,
	})

	got, err := c.ListInstruments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Instrument{{Code: "BBB", Name: "Stock B"}, {Code: "AAA", Name: "Stock A"}}, got)
}

func TestHistoryDecodesAndNormalizesDates(t *testing.T) {
	c, seen := newBackend(t, map[string]string{
		"/stocks/AAA/history": `[
			{"TradingDate":"2023-01-01","OpenPrice":100,"ClosePrice":105,"HighestPrice":110,"LowestPrice":98,"TotalVol":10000},
			{"TradingDate":"2023-01-02T00:00:00","OpenPrice":105,"ClosePrice":103.5,"HighestPrice":108,"LowestPrice":102,"TotalVol":12000.0}
		]`,
	})

	ctx := xhttp.ContextWithRequestID(context.Background(), "token-1")
	got, err := c.History(ctx, "AAA")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "2023-01-01", got[0].Date)
	assert.True(t, got[0].Close.Equal(decimal.NewFromInt(105)))
	assert.Equal(t, int64(10000), got[0].Volume)
	assert.Equal(t, "2023-01-02", got[1].Date)
	assert.True(t, got[1].Close.Equal(decimal.RequireFromString("103.5")))
	assert.Equal(t, int64(12000), got[1].Volume)

	reqs := seen.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "token-1", reqs[0].Header.Get(xhttp.HeaderRequestID))
}

func TestHistoryRejectsBadRecords(t *testing.T) {
	c, _ := newBackend(t, map[string]string{
		"/stocks/BAD/history":  `[{"TradingDate":"soon","ClosePrice":1,"TotalVol":1}]`,
		"/stocks/NEG/history":  `[{"TradingDate":"2023-01-01","ClosePrice":1,"TotalVol":-5}]`,
		"/stocks/JUNK/history": `[{"TradingDate":`,
	})

	for _, code := range []string{"BAD", "NEG", "JUNK"} {
		_, err := c.History(context.Background(), code)
		assert.Error(t, err, code)
	}
}

func TestHistoryEmptyList(t *testing.T) {
	c, _ := newBackend(t, map[string]string{"/stocks/ZZZ/history": `[]`})

	got, err := c.History(context.Background(), "ZZZ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIndicatorsKeepsAbsentFieldsInvalid(t *testing.T) {
	c, _ := newBackend(t, map[string]string{
		"/stocks/AAA/indicators": `{"TradingDate":"2023-01-02","SMA_50":100.5,"SMA_200":null,"EMA_12":102.1,"EMA_26":95.6,"MACD":0,"MACD_Signal":2}`,
	})

	got, err := c.Indicators(context.Background(), "AAA")
	require.NoError(t, err)

	assert.True(t, got.SMA50.Valid)
	assert.True(t, got.SMA50.Decimal.Equal(decimal.RequireFromString("100.5")))
	assert.False(t, got.SMA200.Valid, "null stays absent")
	assert.False(t, got.RSI.Valid, "missing stays absent")
	assert.True(t, got.MACD.Valid, "zero is a value")
	assert.True(t, got.MACD.Decimal.IsZero())
}

func TestIndicatorsMessageOnly(t *testing.T) {
	c, _ := newBackend(t, map[string]string{
		"/stocks/ZZZ/indicators": `{"message":"No data found for ZZZ"}`,
	})

	got, err := c.Indicators(context.Background(), "ZZZ")
	require.NoError(t, err)
	assert.Equal(t, models.IndicatorSnapshot{}, got)
}

func TestForecastSendsPeriod(t *testing.T) {
	c, seen := newBackend(t, map[string]string{
		"/stocks/AAA/forecast": `[{"TradingDate":"2023-01-03","ForecastedClosePrice":104},{"TradingDate":"2023-01-04","ForecastedClosePrice":106}]`,
	})

	got, err := c.Forecast(context.Background(), "AAA", models.HorizonWeek)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2023-01-03", got[0].Date)
	assert.True(t, got[1].ForecastedClose.Equal(decimal.NewFromInt(106)))
	assert.Equal(t, "week", seen.all()[0].URL.Query().Get("period"))
}

func TestForecastErrorEnvelope(t *testing.T) {
	c, _ := newBackend(t, map[string]string{
		"/stocks/AAA/forecast": `{"error":"LinAlgError","message":"Could not generate forecast."}`,
	})

	_, err := c.Forecast(context.Background(), "AAA", models.HorizonMonth)
	require.Error(t, err)

	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "/stocks/AAA/forecast", be.Path)
	assert.Contains(t, be.Message, "Could not generate forecast.")
}

func TestNon2xxIsStatusError(t *testing.T) {
	c, _ := newBackend(t, map[string]string{})

	_, err := c.History(context.Background(), "AAA")
	require.Error(t, err)

	var se *xhttp.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestCodeIsPathEscaped(t *testing.T) {
	c, seen := newBackend(t, map[string]string{"/stocks/A B/history": `[]`})

	_, err := c.History(context.Background(), "A B")
	require.NoError(t, err)
	assert.Equal(t, "/stocks/A%20B/history", seen.all()[0].URL.EscapedPath())
}
