package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/domain/models"
	domrepo "StockLens/internal/domain/repository"
	httpclient "StockLens/pkg/http"
)

// gate holds one backend call until released. The call reads its response
// before blocking, so tests control which data a superseded call carries.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

type fakeAPI struct {
	mu sync.Mutex

	instruments []models.Instrument
	listErr     error
	listCalls   int

	history       map[string][]models.HistoricalPoint
	historyErr    map[string]error
	indicators    map[string]models.IndicatorSnapshot
	indicatorsErr map[string]error
	forecast      map[string][]models.ForecastPoint
	forecastErr   map[string]error

	gates      map[string]*gate
	calls      []string
	requestIDs []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		instruments: []models.Instrument{
			{Code: "AAA", Name: "Alpha"},
			{Code: "BBB", Name: "Beta"},
			{Code: "CCC", Name: "Gamma"},
		},
		history:       map[string][]models.HistoricalPoint{},
		historyErr:    map[string]error{},
		indicators:    map[string]models.IndicatorSnapshot{},
		indicatorsErr: map[string]error{},
		forecast:      map[string][]models.ForecastPoint{},
		forecastErr:   map[string]error{},
		gates:         map[string]*gate{},
	}
}

// block makes the next call for key wait until the returned gate is released.
func (f *fakeAPI) block(key string) *gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &gate{entered: make(chan struct{}), release: make(chan struct{})}
	f.gates[key] = g
	return g
}

func (f *fakeAPI) enter(ctx context.Context, key string) *gate {
	f.calls = append(f.calls, key)
	if id, ok := httpclient.RequestIDFromContext(ctx); ok {
		f.requestIDs = append(f.requestIDs, id)
	}
	g := f.gates[key]
	delete(f.gates, key)
	return g
}

func (g *gate) wait() {
	if g == nil {
		return
	}
	close(g.entered)
	<-g.release
}

func (f *fakeAPI) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Instrument(nil), f.instruments...), nil
}

func (f *fakeAPI) History(ctx context.Context, code string) ([]models.HistoricalPoint, error) {
	f.mu.Lock()
	g := f.enter(ctx, "history/"+code)
	points, err := f.history[code], f.historyErr[code]
	f.mu.Unlock()
	g.wait()
	return points, err
}

func (f *fakeAPI) Indicators(ctx context.Context, code string) (models.IndicatorSnapshot, error) {
	f.mu.Lock()
	g := f.enter(ctx, "indicators/"+code)
	snap, err := f.indicators[code], f.indicatorsErr[code]
	f.mu.Unlock()
	g.wait()
	return snap, err
}

func (f *fakeAPI) Forecast(ctx context.Context, code string, h models.Horizon) ([]models.ForecastPoint, error) {
	key := "forecast/" + code + "/" + string(h)
	f.mu.Lock()
	g := f.enter(ctx, key)
	points, err := f.forecast[code+"/"+string(h)], f.forecastErr[code+"/"+string(h)]
	f.mu.Unlock()
	g.wait()
	return points, err
}

func (f *fakeAPI) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

type recordingMetrics struct {
	mu      sync.Mutex
	fetches map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{fetches: map[string]int{}}
}

func (m *recordingMetrics) RecordFetch(resource, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[resource+"/"+outcome]++
}
func (m *recordingMetrics) RecordError(string)            {}
func (m *recordingMetrics) RecordLatency(string, float64) {}
func (m *recordingMetrics) RecordPoints(string, int)      {}

func (m *recordingMetrics) count(resource models.Resource, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[string(resource)+"/"+outcome]
}

func seededAPI() *fakeAPI {
	api := newFakeAPI()
	api.history["AAA"] = []models.HistoricalPoint{hist("2023-01-01", 105), hist("2023-01-02", 103)}
	api.history["BBB"] = []models.HistoricalPoint{hist("2023-02-01", 50)}
	api.indicators["AAA"] = models.IndicatorSnapshot{RSI: decimal.NewNullDecimal(decimal.NewFromInt(55))}
	api.indicators["BBB"] = models.IndicatorSnapshot{}
	api.forecast["AAA/month"] = []models.ForecastPoint{fc("2023-01-03", 104), fc("2023-01-04", 106)}
	api.forecast["AAA/week"] = []models.ForecastPoint{fc("2023-01-03", 101)}
	api.forecast["AAA/year"] = []models.ForecastPoint{fc("2024-01-01", 150)}
	api.forecast["BBB/month"] = []models.ForecastPoint{fc("2023-02-02", 51)}
	return api
}

func startedDashboard(t *testing.T, api *fakeAPI, m *recordingMetrics) *Dashboard {
	t.Helper()
	var metrics domrepo.Metrics
	if m != nil {
		metrics = m
	}
	d := NewDashboard(api, nil, metrics, nil, DashboardOptions{FetchTimeout: 5 * time.Second})
	t.Cleanup(d.Close)
	d.Start(context.Background())
	return d
}

func waitEntered(t *testing.T, g *gate) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("gated call never started")
	}
}

func TestDashboardInitialState(t *testing.T) {
	d := NewDashboard(newFakeAPI(), nil, nil, nil, DashboardOptions{})
	defer d.Close()

	s := d.Snapshot()
	assert.Equal(t, models.HorizonMonth, s.Selection.Horizon)
	assert.False(t, s.Selection.HasInstrument())
	assert.Equal(t, models.StatusIdle, s.HistoryState.Status)
	assert.Equal(t, models.StatusIdle, s.ForecastState.Status)
	assert.NotNil(t, s.Merged)
	assert.Empty(t, s.Merged)
}

func TestDashboardDefaultHorizonFromOptions(t *testing.T) {
	d := NewDashboard(newFakeAPI(), nil, nil, nil, DashboardOptions{DefaultHorizon: models.HorizonYear})
	defer d.Close()
	assert.Equal(t, models.HorizonYear, d.Snapshot().Selection.Horizon)

	bad := NewDashboard(newFakeAPI(), nil, nil, nil, DashboardOptions{DefaultHorizon: "decade"})
	defer bad.Close()
	assert.Equal(t, models.HorizonMonth, bad.Snapshot().Selection.Horizon)
}

func TestDashboardStartLoadsCatalogInBackendOrder(t *testing.T) {
	api := newFakeAPI()
	api.instruments = []models.Instrument{{Code: "ZZZ", Name: "Zed"}, {Code: "AAA", Name: "Alpha"}}
	d := startedDashboard(t, api, nil)

	s := d.Snapshot()
	assert.Equal(t, models.StatusLoaded, s.CatalogState.Status)
	assert.Equal(t, []models.InstrumentOption{
		{Code: "ZZZ", Label: "ZZZ - Zed"},
		{Code: "AAA", Label: "AAA - Alpha"},
	}, s.Catalog)

	opt, ok := d.Catalog().Lookup("AAA")
	require.True(t, ok)
	assert.Equal(t, "AAA - Alpha", opt.Label)
}

func TestDashboardCatalogFailureIsNotRetried(t *testing.T) {
	api := newFakeAPI()
	api.listErr = errors.New("connection refused")
	d := startedDashboard(t, api, nil)

	s := d.Snapshot()
	assert.Equal(t, models.StatusFailed, s.CatalogState.Status)
	assert.ErrorIs(t, s.CatalogState.Err, models.ErrCatalogLoad)
	assert.Empty(t, s.Catalog)

	d.Start(context.Background())
	assert.Equal(t, 1, api.listCalls)
	assert.ErrorIs(t, d.SelectCode("AAA"), models.ErrUnknownInstrument)
}

func TestDashboardSelectFetchesEverything(t *testing.T) {
	api := seededAPI()
	d := startedDashboard(t, api, nil)

	require.NoError(t, d.SelectCode("AAA"))
	d.Wait()

	s := d.Snapshot()
	assert.Equal(t, "AAA", s.Selection.Code())
	assert.Equal(t, models.StatusLoaded, s.HistoryState.Status)
	assert.Equal(t, models.StatusLoaded, s.IndicatorsState.Status)
	assert.Equal(t, models.StatusLoaded, s.ForecastState.Status)
	assert.Len(t, s.History, 2)
	require.NotNil(t, s.Indicators)
	assert.True(t, s.Indicators.RSI.Valid)
	assert.Equal(t, []string{"2023-01-01", "2023-01-02", "2023-01-03", "2023-01-04"}, dates(s.Merged))
	assert.Equal(t, 1, api.callCount("forecast/AAA/month"))
}

func TestDashboardRequestIDsAreDistinct(t *testing.T) {
	api := seededAPI()
	d := startedDashboard(t, api, nil)

	require.NoError(t, d.SelectCode("AAA"))
	d.Wait()

	api.mu.Lock()
	ids := append([]string(nil), api.requestIDs...)
	api.mu.Unlock()
	require.Len(t, ids, 3)
	seen := map[string]bool{}
	for _, id := range ids {
		assert.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate request id %s", id)
		seen[id] = true
	}
}

func TestDashboardHorizonChangeRefetchesOnlyForecast(t *testing.T) {
	api := seededAPI()
	d := startedDashboard(t, api, nil)

	require.NoError(t, d.SelectCode("AAA"))
	d.Wait()
	require.NoError(t, d.SetHorizon(models.HorizonWeek))
	d.Wait()

	assert.Equal(t, 1, api.callCount("history/AAA"))
	assert.Equal(t, 1, api.callCount("indicators/AAA"))
	assert.Equal(t, 1, api.callCount("forecast/AAA/week"))

	s := d.Snapshot()
	assert.Len(t, s.History, 2)
	assert.Equal(t, []string{"2023-01-01", "2023-01-02", "2023-01-03"}, dates(s.Merged))
}

func TestDashboardHorizonWithoutInstrumentFetchesNothing(t *testing.T) {
	api := seededAPI()
	d := startedDashboard(t, api, nil)

	require.NoError(t, d.SetHorizon(models.HorizonYear))
	d.Wait()

	s := d.Snapshot()
	assert.Equal(t, models.HorizonYear, s.Selection.Horizon)
	assert.Equal(t, models.StatusIdle, s.ForecastState.Status)
	api.mu.Lock()
	assert.Empty(t, api.calls)
	api.mu.Unlock()
}

func TestDashboardRejectsUnknownHorizon(t *testing.T) {
	d := startedDashboard(t, seededAPI(), nil)
	assert.Error(t, d.SetHorizon("decade"))
	assert.Equal(t, models.HorizonMonth, d.Snapshot().Selection.Horizon)
}

func TestDashboardSameValueIsNoop(t *testing.T) {
	api := seededAPI()
	d := startedDashboard(t, api, nil)

	require.NoError(t, d.SelectCode("AAA"))
	d.Wait()
	v := d.Snapshot().Version

	require.NoError(t, d.SelectCode("AAA"))
	require.NoError(t, d.SetHorizon(models.HorizonMonth))
	d.Wait()

	assert.Equal(t, 1, api.callCount("history/AAA"))
	assert.Equal(t, 1, api.callCount("forecast/AAA/month"))
	assert.Equal(t, v, d.Snapshot().Version)
}

func TestDashboardClearInstrument(t *testing.T) {
	d := startedDashboard(t, seededAPI(), nil)

	require.NoError(t, d.SelectCode("AAA"))
	d.Wait()
	require.NoError(t, d.ClearInstrument())

	s := d.Snapshot()
	assert.False(t, s.Selection.HasInstrument())
	assert.Nil(t, s.History)
	assert.Nil(t, s.Indicators)
	assert.Nil(t, s.Forecast)
	assert.Equal(t, models.StatusIdle, s.HistoryState.Status)
	assert.Equal(t, models.StatusIdle, s.IndicatorsState.Status)
	assert.Equal(t, models.StatusIdle, s.ForecastState.Status)
	assert.Empty(t, s.Merged)
	assert.Equal(t, models.HorizonMonth, s.Selection.Horizon)
}

func TestDashboardClearDiscardsInFlightFetch(t *testing.T) {
	api := seededAPI()
	m := newRecordingMetrics()
	d := startedDashboard(t, api, m)

	g := api.block("history/AAA")
	require.NoError(t, d.SelectCode("AAA"))
	waitEntered(t, g)
	require.NoError(t, d.ClearInstrument())
	close(g.release)
	d.Wait()

	s := d.Snapshot()
	assert.Nil(t, s.History)
	assert.Equal(t, models.StatusIdle, s.HistoryState.Status)
	assert.Equal(t, 1, m.count(models.ResourceHistory, domrepo.OutcomeStale))
}

func TestDashboardDiscardsSupersededInstrument(t *testing.T) {
	api := seededAPI()
	m := newRecordingMetrics()
	d := startedDashboard(t, api, m)

	g := api.block("history/AAA")
	require.NoError(t, d.SelectCode("AAA"))
	waitEntered(t, g)
	require.NoError(t, d.SelectCode("BBB"))
	require.Eventually(t, func() bool {
		return d.Snapshot().HistoryState.Status == models.StatusLoaded
	}, 2*time.Second, 5*time.Millisecond)

	close(g.release)
	d.Wait()

	s := d.Snapshot()
	assert.Equal(t, "BBB", s.Selection.Code())
	assert.Equal(t, []string{"2023-02-01"}, historyDates(s.History))
	assert.Equal(t, []string{"2023-02-01", "2023-02-02"}, dates(s.Merged))
	assert.Equal(t, 1, m.count(models.ResourceHistory, domrepo.OutcomeStale))
}

func TestDashboardDiscardsEarlierRequestForReselectedInstrument(t *testing.T) {
	api := seededAPI()
	d := startedDashboard(t, api, nil)

	api.mu.Lock()
	api.history["AAA"] = []models.HistoricalPoint{hist("2022-12-31", 1)}
	api.mu.Unlock()
	g := api.block("history/AAA")
	require.NoError(t, d.SelectCode("AAA"))
	waitEntered(t, g)

	require.NoError(t, d.SelectCode("BBB"))
	api.mu.Lock()
	api.history["AAA"] = []models.HistoricalPoint{hist("2023-01-01", 105)}
	api.mu.Unlock()
	require.NoError(t, d.SelectCode("AAA"))
	require.Eventually(t, func() bool {
		return d.Snapshot().HistoryState.Status == models.StatusLoaded
	}, 2*time.Second, 5*time.Millisecond)

	close(g.release)
	d.Wait()

	s := d.Snapshot()
	assert.Equal(t, "AAA", s.Selection.Code())
	assert.Equal(t, []string{"2023-01-01"}, historyDates(s.History))
}

func TestDashboardDiscardsForecastForPreviousHorizon(t *testing.T) {
	api := seededAPI()
	m := newRecordingMetrics()
	d := startedDashboard(t, api, m)

	g := api.block("forecast/AAA/month")
	require.NoError(t, d.SelectCode("AAA"))
	waitEntered(t, g)
	require.NoError(t, d.SetHorizon(models.HorizonWeek))
	require.Eventually(t, func() bool {
		return d.Snapshot().ForecastState.Status == models.StatusLoaded
	}, 2*time.Second, 5*time.Millisecond)

	close(g.release)
	d.Wait()

	s := d.Snapshot()
	require.Len(t, s.Forecast, 1)
	assert.Equal(t, "101", s.Forecast[0].ForecastedClose.String())
	assert.Equal(t, 1, m.count(models.ResourceForecast, domrepo.OutcomeStale))
}

func TestDashboardResourcesFailIndependently(t *testing.T) {
	api := seededAPI()
	api.historyErr["AAA"] = errors.New("timeout")
	d := startedDashboard(t, api, nil)

	require.NoError(t, d.SelectCode("AAA"))
	d.Wait()

	s := d.Snapshot()
	assert.Equal(t, models.StatusFailed, s.HistoryState.Status)
	assert.ErrorIs(t, s.HistoryState.Err, models.ErrHistoricalLoad)
	assert.NotErrorIs(t, s.HistoryState.Err, models.ErrForecastLoad)
	assert.Nil(t, s.History)

	assert.Equal(t, models.StatusLoaded, s.IndicatorsState.Status)
	assert.Equal(t, models.StatusLoaded, s.ForecastState.Status)
	assert.Equal(t, []string{"2023-01-03", "2023-01-04"}, dates(s.Merged))
	for _, p := range s.Merged {
		assert.False(t, p.ClosePrice.Valid)
	}
}

func TestDashboardForecastFailureKeepsHistory(t *testing.T) {
	api := seededAPI()
	api.forecastErr["AAA/month"] = errors.New("model unavailable")
	d := startedDashboard(t, api, nil)

	require.NoError(t, d.SelectCode("AAA"))
	d.Wait()

	s := d.Snapshot()
	var lerr *models.LoadError
	require.ErrorAs(t, s.ForecastState.Err, &lerr)
	assert.Equal(t, "AAA", lerr.Code)
	assert.Equal(t, models.HorizonMonth, lerr.Horizon)
	assert.Nil(t, s.Forecast)
	assert.Equal(t, []string{"2023-01-01", "2023-01-02"}, dates(s.Merged))
}

func TestDashboardReload(t *testing.T) {
	api := seededAPI()
	api.indicatorsErr["AAA"] = errors.New("boom")
	d := startedDashboard(t, api, nil)

	assert.ErrorIs(t, d.Reload(), models.ErrNoInstrument)

	require.NoError(t, d.SelectCode("AAA"))
	d.Wait()
	require.Equal(t, models.StatusFailed, d.Snapshot().IndicatorsState.Status)

	api.mu.Lock()
	delete(api.indicatorsErr, "AAA")
	api.mu.Unlock()
	require.NoError(t, d.Reload())
	d.Wait()

	s := d.Snapshot()
	assert.Equal(t, models.StatusLoaded, s.IndicatorsState.Status)
	assert.NoError(t, s.IndicatorsState.Err)
	assert.Equal(t, 2, api.callCount("history/AAA"))
}

func TestDashboardSubscribeReceivesLatestState(t *testing.T) {
	d := startedDashboard(t, seededAPI(), nil)

	ch, cancel := d.Subscribe()
	first := <-ch
	assert.Equal(t, models.StatusLoaded, first.CatalogState.Status)

	require.NoError(t, d.SelectCode("AAA"))
	d.Wait()

	want := d.Snapshot().Version
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if s.Version == want {
				assert.Equal(t, models.StatusLoaded, s.ForecastState.Status)
				cancel()
				_, open := <-ch
				assert.False(t, open)
				return
			}
		case <-deadline:
			t.Fatal("latest state never delivered")
		}
	}
}

func TestDashboardClose(t *testing.T) {
	api := seededAPI()
	d := NewDashboard(api, nil, nil, nil, DashboardOptions{})
	d.Start(context.Background())
	ch, _ := d.Subscribe()
	<-ch

	g := api.block("history/AAA")
	require.NoError(t, d.SelectCode("AAA"))
	waitEntered(t, g)
	close(g.release)
	d.Close()

	for range ch {
	}
	assert.ErrorIs(t, d.SelectCode("BBB"), ErrDashboardClosed)
	assert.ErrorIs(t, d.ClearInstrument(), ErrDashboardClosed)
	d.Close()
}

func TestSnapshotIsIsolated(t *testing.T) {
	d := startedDashboard(t, seededAPI(), nil)
	require.NoError(t, d.SelectCode("AAA"))
	d.Wait()

	s := d.Snapshot()
	s.History[0].Date = "mutated"
	s.Selection.Instrument.Label = "mutated"

	again := d.Snapshot()
	assert.Equal(t, "2023-01-01", again.History[0].Date)
	assert.Equal(t, "AAA - Alpha", again.Selection.Instrument.Label)
}

func historyDates(ps []models.HistoricalPoint) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Date
	}
	return out
}
