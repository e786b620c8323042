package usecase

import (
	"context"
	"sync"
	"time"

	"StockLens/internal/domain/models"
	domrepo "StockLens/internal/domain/repository"
	domsvc "StockLens/internal/domain/service"
	"StockLens/pkg/logger"
)

// Catalog is the list of selectable instruments. It is fetched once per
// process and never refreshed.
type Catalog struct {
	api     domsvc.StockAPI
	metrics domrepo.Metrics
	log     *logger.Logger

	once    sync.Once
	mu      sync.RWMutex
	options []models.InstrumentOption
	index   map[string]models.InstrumentOption
	err     error
	loaded  bool
}

func NewCatalog(api domsvc.StockAPI, metrics domrepo.Metrics, log *logger.Logger) *Catalog {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Catalog{api: api, metrics: metrics, log: log}
}

// Load fetches the instrument list on the first call. Later calls return
// the first outcome without contacting the backend.
func (c *Catalog) Load(ctx context.Context) error {
	c.once.Do(func() { c.load(ctx) })
	return c.Err()
}

func (c *Catalog) load(ctx context.Context) {
	start := time.Now()
	list, err := c.api.ListInstruments(ctx)
	c.metrics.RecordLatency("catalog", time.Since(start).Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
	if err != nil {
		c.err = models.NewLoadError(models.ResourceCatalog, "", "", err)
		c.metrics.RecordFetch(string(models.ResourceCatalog), domrepo.OutcomeError)
		c.metrics.RecordError("catalog_load")
		c.log.Error("catalog load failed", logger.Error(err))
		return
	}

	c.options = make([]models.InstrumentOption, 0, len(list))
	c.index = make(map[string]models.InstrumentOption, len(list))
	for _, in := range list {
		opt := models.NewInstrumentOption(in)
		c.options = append(c.options, opt)
		if _, dup := c.index[opt.Code]; !dup {
			c.index[opt.Code] = opt
		}
	}
	c.metrics.RecordFetch(string(models.ResourceCatalog), domrepo.OutcomeSuccess)
	c.metrics.RecordPoints(string(models.ResourceCatalog), len(c.options))
	c.log.Info("catalog loaded", logger.Int("instruments", len(c.options)))
}

// Options returns the instruments in backend order.
func (c *Catalog) Options() []models.InstrumentOption {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.InstrumentOption, len(c.options))
	copy(out, c.options)
	return out
}

func (c *Catalog) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Loaded reports whether the load attempt has finished, successfully or not.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Catalog) Lookup(code string) (models.InstrumentOption, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	opt, ok := c.index[code]
	return opt, ok
}

type nopMetrics struct{}

func (nopMetrics) RecordFetch(string, string)    {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) RecordPoints(string, int)      {}
