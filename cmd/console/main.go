package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"StockLens/internal/console"
	"StockLens/internal/domain/models"
	"StockLens/internal/service/stockapi"
	"StockLens/internal/usecase"
	"StockLens/pkg/config"
	applogger "StockLens/pkg/logger"
	"StockLens/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults when empty)")
	envFile := flag.String("env", ".env", "dotenv file with overrides")
	logPath := flag.String("log", "stocklens-console.log", "log file; the terminal belongs to the UI")
	flag.Parse()

	_ = godotenv.Load(*envFile)

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: "json",
		Output: *logPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	// Nothing scrapes the console; keep its series off the default registry.
	rec := metrics.NewWithRegisterer(prometheus.NewRegistry())

	api := stockapi.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	dash := usecase.NewDashboard(api, usecase.NewCatalog(api, rec, logger), rec, logger, usecase.DashboardOptions{
		DefaultHorizon: models.Horizon(cfg.Dashboard.DefaultHorizon),
		FetchTimeout:   cfg.Dashboard.FetchTimeout,
	})
	defer dash.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go dash.Start(ctx)

	p := tea.NewProgram(
		console.New(dash),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	logger.Info("console started", applogger.String("backend", cfg.Backend.BaseURL))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
