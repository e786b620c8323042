package di

import (
	"fmt"

	"StockLens/internal/domain/models"
	"StockLens/internal/domain/repository"
	domsvc "StockLens/internal/domain/service"
	"StockLens/internal/handler/api"
	"StockLens/internal/service/ratelimit"
	"StockLens/internal/service/stockapi"
	"StockLens/internal/usecase"
	"StockLens/pkg/config"
	xhttp "StockLens/pkg/http"
	applogger "StockLens/pkg/logger"
	"StockLens/pkg/metrics"
	"StockLens/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStockAPI creates the backend client.
func ProvideStockAPI(cfg *config.Config) domsvc.StockAPI {
	return stockapi.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
}

func ProvideCatalog(stocks domsvc.StockAPI, m repository.Metrics, l *applogger.Logger) *usecase.Catalog {
	return usecase.NewCatalog(stocks, m, l)
}

func ProvideDashboard(
	cfg *config.Config,
	stocks domsvc.StockAPI,
	catalog *usecase.Catalog,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Dashboard {
	return usecase.NewDashboard(stocks, catalog, m, l, usecase.DashboardOptions{
		DefaultHorizon: models.Horizon(cfg.Dashboard.DefaultHorizon),
		FetchTimeout:   cfg.Dashboard.FetchTimeout,
	})
}

// ProvideRateLimiter creates the per-client limiter for selection changes.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

func ProvideDashboardHandler(
	cfg *config.Config,
	l *applogger.Logger,
	dash *usecase.Dashboard,
	rl *ratelimit.Limiter,
) *api.DashboardEchoHandler {
	return api.NewDashboardEchoHandler(l, dash, rl, api.StreamConfig{
		PingInterval: cfg.Stream.PingInterval,
		WriteTimeout: cfg.Stream.WriteTimeout,
	})
}

// ProvideHTTPServer creates the Echo server with the dashboard routes.
func ProvideHTTPServer(cfg *config.Config, h *api.DashboardEchoHandler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l, cfg.Server.SlowThreshold),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	dash *usecase.Dashboard,
	srv *xhttp.Server,
	rl *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, l, dash, srv, rl)
}
