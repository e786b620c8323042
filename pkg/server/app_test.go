package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/domain/models"
	"StockLens/internal/service/ratelimit"
	"StockLens/internal/service/stockapi"
	"StockLens/internal/usecase"
	"StockLens/pkg/config"
	xhttp "StockLens/pkg/http"
	"StockLens/pkg/metrics"
)

func TestRunContextStopsOnCancel(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"StockCode":"AAA","StockName":"Alpha"}]`))
	}))
	defer backend.Close()

	cfg, err := config.Default()
	require.NoError(t, err)

	rec := metrics.NewWithRegisterer(prometheus.NewRegistry())
	dash := usecase.NewDashboard(stockapi.New(backend.URL, time.Second), nil, rec, nil, usecase.DashboardOptions{})
	srv := xhttp.NewServer(nil,
		xhttp.WithHost("127.0.0.1"),
		xhttp.WithPort(0),
		xhttp.WithMetricsPath(""),
	)
	app := New(cfg, nil, dash, srv, ratelimit.New(1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	require.Eventually(t, func() bool {
		return dash.Snapshot().CatalogState.Status == models.StatusLoaded
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.ErrorIs(t, dash.SelectCode("AAA"), usecase.ErrDashboardClosed)
}
