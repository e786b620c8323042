package usecase

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"StockLens/internal/domain/models"
	domrepo "StockLens/internal/domain/repository"
	domsvc "StockLens/internal/domain/service"
	httpclient "StockLens/pkg/http"
	"StockLens/pkg/logger"
)

var ErrDashboardClosed = errors.New("dashboard closed")

type DashboardOptions struct {
	DefaultHorizon models.Horizon
	// FetchTimeout bounds each backend call; zero means no extra bound.
	FetchTimeout time.Duration
}

// fetchToken identifies one dispatched fetch. A result is committed only if
// the token still describes the current selection and generation.
type fetchToken struct {
	ID      string
	Code    string
	Horizon models.Horizon
	Gen     uint64
}

// Dashboard owns the selection and every resource derived from it. Each
// mutation dispatches the fetches it invalidates; results land through a
// single mutex and stale ones are dropped.
type Dashboard struct {
	api     domsvc.StockAPI
	catalog *Catalog
	metrics domrepo.Metrics
	log     *logger.Logger
	timeout time.Duration

	root context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu            sync.Mutex
	state         models.DashboardState
	instrumentGen uint64
	forecastGen   uint64
	cancelInst    context.CancelFunc
	cancelFcst    context.CancelFunc
	subs          map[uint64]chan models.DashboardState
	nextSub       uint64
	closed        bool
}

func NewDashboard(api domsvc.StockAPI, catalog *Catalog, metrics domrepo.Metrics, log *logger.Logger, opts DashboardOptions) *Dashboard {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if catalog == nil {
		catalog = NewCatalog(api, metrics, log)
	}
	h := opts.DefaultHorizon
	if _, err := models.ParseHorizon(string(h)); err != nil {
		h = models.DefaultHorizon
	}
	root, stop := context.WithCancel(context.Background())
	d := &Dashboard{
		api:     api,
		catalog: catalog,
		metrics: metrics,
		log:     log,
		timeout: opts.FetchTimeout,
		root:    root,
		stop:    stop,
		subs:    map[uint64]chan models.DashboardState{},
	}
	d.state.Selection.Horizon = h
	d.state.Catalog = []models.InstrumentOption{}
	d.state.Merged = Reconcile(nil, nil)
	d.state.CatalogState.Status = models.StatusIdle
	d.state.HistoryState.Status = models.StatusIdle
	d.state.IndicatorsState.Status = models.StatusIdle
	d.state.ForecastState.Status = models.StatusIdle
	return d
}

// Start loads the instrument catalog. It blocks until the load finishes;
// a failure is recorded in the state, not returned.
func (d *Dashboard) Start(ctx context.Context) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.state.CatalogState = models.ResourceState{Status: models.StatusLoading}
	d.publishLocked()
	d.mu.Unlock()

	err := d.catalog.Load(httpclient.ContextWithRequestID(ctx, uuid.NewString()))

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state.CatalogState = models.ResourceState{Status: models.StatusFailed, Err: err}
	} else {
		d.state.Catalog = d.catalog.Options()
		d.state.CatalogState = models.ResourceState{Status: models.StatusLoaded}
	}
	d.publishLocked()
}

// Catalog returns the catalog backing SelectCode.
func (d *Dashboard) Catalog() *Catalog { return d.catalog }

// SetInstrument selects opt and refetches history, indicators and forecast.
func (d *Dashboard) SetInstrument(opt models.InstrumentOption) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDashboardClosed
	}
	if cur := d.state.Selection.Instrument; cur != nil && *cur == opt {
		return nil
	}
	d.state.Selection.Instrument = &opt
	d.log.Info("instrument selected", logger.String("code", opt.Code))
	d.refreshInstrumentLocked()
	d.publishLocked()
	return nil
}

// SelectCode resolves code through the catalog and selects it.
func (d *Dashboard) SelectCode(code string) error {
	opt, ok := d.catalog.Lookup(code)
	if !ok {
		return models.ErrUnknownInstrument
	}
	return d.SetInstrument(opt)
}

// ClearInstrument drops the selection and every dependent resource.
func (d *Dashboard) ClearInstrument() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDashboardClosed
	}
	if d.state.Selection.Instrument == nil {
		return nil
	}
	d.state.Selection.Instrument = nil
	d.instrumentGen++
	d.forecastGen++
	d.cancelInFlightLocked(true, true)
	d.resetLocked(models.ResourceHistory, models.StatusIdle)
	d.resetLocked(models.ResourceIndicators, models.StatusIdle)
	d.resetLocked(models.ResourceForecast, models.StatusIdle)
	d.state.Merged = Reconcile(nil, nil)
	d.log.Info("instrument cleared")
	d.publishLocked()
	return nil
}

// SetHorizon changes the forecast window. Only the forecast is refetched.
func (d *Dashboard) SetHorizon(h models.Horizon) error {
	if _, err := models.ParseHorizon(string(h)); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDashboardClosed
	}
	if d.state.Selection.Horizon == h {
		return nil
	}
	d.state.Selection.Horizon = h
	d.refreshForecastLocked()
	d.state.Merged = Reconcile(d.state.History, d.state.Forecast)
	d.publishLocked()
	return nil
}

// Reload refetches every resource of the current selection.
func (d *Dashboard) Reload() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDashboardClosed
	}
	if d.state.Selection.Instrument == nil {
		return models.ErrNoInstrument
	}
	d.refreshInstrumentLocked()
	d.publishLocked()
	return nil
}

// Snapshot returns a copy of the current state.
func (d *Dashboard) Snapshot() models.DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// Subscribe returns a channel that always holds the latest state. Slow
// readers skip intermediate versions. The channel is closed by cancel or
// Close.
func (d *Dashboard) Subscribe() (<-chan models.DashboardState, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan models.DashboardState, 1)
	if d.closed {
		close(ch)
		return ch, func() {}
	}
	id := d.nextSub
	d.nextSub++
	d.subs[id] = ch
	ch <- d.snapshotLocked()

	return ch, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if c, ok := d.subs[id]; ok {
			delete(d.subs, id)
			close(c)
		}
	}
}

// Wait blocks until no fetch is in flight.
func (d *Dashboard) Wait() { d.wg.Wait() }

// Close cancels in-flight fetches, waits for them and closes subscribers.
func (d *Dashboard) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.stop()
	for id, ch := range d.subs {
		delete(d.subs, id)
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dashboard) refreshInstrumentLocked() {
	d.instrumentGen++
	d.cancelInFlightLocked(true, false)

	ctx, cancel := context.WithCancel(d.root)
	d.cancelInst = cancel
	tok := fetchToken{ID: uuid.NewString(), Code: d.state.Selection.Code(), Gen: d.instrumentGen}
	indTok := tok
	indTok.ID = uuid.NewString()

	d.resetLocked(models.ResourceHistory, models.StatusLoading)
	d.resetLocked(models.ResourceIndicators, models.StatusLoading)
	d.dispatch(ctx, models.ResourceHistory, tok, d.fetchHistory)
	d.dispatch(ctx, models.ResourceIndicators, indTok, d.fetchIndicators)

	d.refreshForecastLocked()
	d.state.Merged = Reconcile(d.state.History, d.state.Forecast)
}

func (d *Dashboard) refreshForecastLocked() {
	d.forecastGen++
	d.cancelInFlightLocked(false, true)

	if d.state.Selection.Instrument == nil {
		d.resetLocked(models.ResourceForecast, models.StatusIdle)
		return
	}
	ctx, cancel := context.WithCancel(d.root)
	d.cancelFcst = cancel
	tok := fetchToken{
		ID:      uuid.NewString(),
		Code:    d.state.Selection.Code(),
		Horizon: d.state.Selection.Horizon,
		Gen:     d.forecastGen,
	}
	d.resetLocked(models.ResourceForecast, models.StatusLoading)
	d.dispatch(ctx, models.ResourceForecast, tok, d.fetchForecast)
}

func (d *Dashboard) cancelInFlightLocked(inst, fcst bool) {
	if inst && d.cancelInst != nil {
		d.cancelInst()
		d.cancelInst = nil
	}
	if fcst && d.cancelFcst != nil {
		d.cancelFcst()
		d.cancelFcst = nil
	}
}

// commitFunc writes a successful result into the state.
type commitFunc func(s *models.DashboardState) int

type fetchFunc func(ctx context.Context, tok fetchToken) (commitFunc, error)

func (d *Dashboard) dispatch(ctx context.Context, r models.Resource, tok fetchToken, fetch fetchFunc) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		fctx := httpclient.ContextWithRequestID(ctx, tok.ID)
		if d.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, d.timeout)
			defer cancel()
		}

		start := time.Now()
		commit, err := fetch(fctx, tok)
		d.metrics.RecordLatency(string(r), time.Since(start).Seconds())

		d.mu.Lock()
		defer d.mu.Unlock()
		if !d.currentLocked(r, tok) {
			d.metrics.RecordFetch(string(r), domrepo.OutcomeStale)
			d.log.Debug("discarding stale result",
				logger.String("resource", string(r)),
				logger.String("code", tok.Code),
				logger.String("request_id", tok.ID))
			return
		}

		if err != nil {
			d.resetLocked(r, models.StatusFailed)
			d.setStateLocked(r, models.ResourceState{
				Status: models.StatusFailed,
				Err:    models.NewLoadError(r, tok.Code, tok.Horizon, err),
			})
			d.metrics.RecordFetch(string(r), domrepo.OutcomeError)
			d.metrics.RecordError(string(r) + "_load")
			d.log.Warn("fetch failed",
				logger.String("resource", string(r)),
				logger.String("code", tok.Code),
				logger.String("request_id", tok.ID),
				logger.Error(err))
		} else {
			n := commit(&d.state)
			d.setStateLocked(r, models.ResourceState{Status: models.StatusLoaded})
			d.metrics.RecordFetch(string(r), domrepo.OutcomeSuccess)
			d.metrics.RecordPoints(string(r), n)
		}

		if r != models.ResourceIndicators {
			d.state.Merged = Reconcile(d.state.History, d.state.Forecast)
		}
		d.publishLocked()
	}()
}

func (d *Dashboard) fetchHistory(ctx context.Context, tok fetchToken) (commitFunc, error) {
	points, err := d.api.History(ctx, tok.Code)
	if err != nil {
		return nil, err
	}
	return func(s *models.DashboardState) int {
		s.History = points
		return len(points)
	}, nil
}

func (d *Dashboard) fetchIndicators(ctx context.Context, tok fetchToken) (commitFunc, error) {
	snap, err := d.api.Indicators(ctx, tok.Code)
	if err != nil {
		return nil, err
	}
	return func(s *models.DashboardState) int {
		s.Indicators = &snap
		return 1
	}, nil
}

func (d *Dashboard) fetchForecast(ctx context.Context, tok fetchToken) (commitFunc, error) {
	points, err := d.api.Forecast(ctx, tok.Code, tok.Horizon)
	if err != nil {
		return nil, err
	}
	return func(s *models.DashboardState) int {
		s.Forecast = points
		return len(points)
	}, nil
}

// currentLocked reports whether tok still matches the selection it was
// dispatched for.
func (d *Dashboard) currentLocked(r models.Resource, tok fetchToken) bool {
	if d.closed || d.state.Selection.Code() != tok.Code {
		return false
	}
	if r == models.ResourceForecast {
		return tok.Gen == d.forecastGen && tok.Horizon == d.state.Selection.Horizon
	}
	return tok.Gen == d.instrumentGen
}

// resetLocked clears the data of r and sets its status.
func (d *Dashboard) resetLocked(r models.Resource, status models.ResourceStatus) {
	switch r {
	case models.ResourceHistory:
		d.state.History = nil
	case models.ResourceIndicators:
		d.state.Indicators = nil
	case models.ResourceForecast:
		d.state.Forecast = nil
	}
	d.setStateLocked(r, models.ResourceState{Status: status})
}

func (d *Dashboard) setStateLocked(r models.Resource, rs models.ResourceState) {
	switch r {
	case models.ResourceHistory:
		d.state.HistoryState = rs
	case models.ResourceIndicators:
		d.state.IndicatorsState = rs
	case models.ResourceForecast:
		d.state.ForecastState = rs
	}
}

func (d *Dashboard) snapshotLocked() models.DashboardState {
	s := d.state
	s.Catalog = slices.Clone(d.state.Catalog)
	s.History = slices.Clone(d.state.History)
	s.Forecast = slices.Clone(d.state.Forecast)
	s.Merged = slices.Clone(d.state.Merged)
	if d.state.Selection.Instrument != nil {
		opt := *d.state.Selection.Instrument
		s.Selection.Instrument = &opt
	}
	if d.state.Indicators != nil {
		snap := *d.state.Indicators
		s.Indicators = &snap
	}
	return s
}

func (d *Dashboard) publishLocked() {
	d.state.Version++
	if len(d.subs) == 0 {
		return
	}
	snap := d.snapshotLocked()
	for _, ch := range d.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
