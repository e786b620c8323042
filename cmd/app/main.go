package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"StockLens/internal/di"
	"StockLens/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "config file path (defaults when empty)")
	envFile := flag.String("env", ".env", "dotenv file with overrides")
	flag.Parse()

	// Missing .env is fine; real environment wins over it.
	_ = godotenv.Load(*envFile)

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s backend=%s", cfg.Environment, cfg.Backend.BaseURL)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
