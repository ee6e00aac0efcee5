package main

import (
	"flag"
	"log"
	"os"

	"EnsembleView/internal/di"
	"EnsembleView/pkg/config"
	"EnsembleView/pkg/util"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	envFile := flag.String("env-file", ".env", "optional dotenv file, loaded before the config")
	tickers := flag.String("tickers", "", "comma separated tickers to start a run with (overrides stream.tickers)")
	flag.Parse()

	// Missing file is fine; variables already in the environment are kept.
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("env file %s: %v", *envFile, err)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if list := util.SplitList(*tickers); len(list) > 0 {
		cfg.Stream.Tickers = list
	}

	log.Printf("env=%s source=%s stream=%s tickers=%v", cfg.Environment, cfg.Stream.Source, cfg.Stream.URL, cfg.Stream.Tickers)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	if err := app.Run(); err != nil {
		log.Printf("app stopped with error: %v", err)
		os.Exit(1)
	}
}
