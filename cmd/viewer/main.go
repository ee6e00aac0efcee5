package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EnsembleView/internal/di"
	"EnsembleView/internal/domain/models"
	"EnsembleView/internal/handler/console"
	"EnsembleView/internal/state"
	"EnsembleView/internal/usecase"
	"EnsembleView/pkg/config"
	"EnsembleView/pkg/logger"
	"EnsembleView/pkg/util"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

const clearScreen = "\033[H\033[2J"

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	envFile := flag.String("env-file", ".env", "optional dotenv file, loaded before the config")
	tickers := flag.String("tickers", "", "comma separated tickers (empty: backend default)")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("env file %s: %v", *envFile, err)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if cfg.Log.Output == "" || cfg.Log.Output == "stdout" {
		// stdout belongs to the table
		cfg.Log.Output = "stderr"
	}
	if *tickers != "" {
		cfg.Stream.Tickers = util.SplitList(*tickers)
	}

	v, err := di.InitializeViewer(cfg)
	if err != nil {
		log.Fatalf("viewer initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, v); err != nil {
		v.Log.Error("viewer stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, v *di.Viewer) error {
	defer func() {
		_ = v.Session.Shutdown(context.Background())
		v.Log.DetachDigest()
		if v.Producer != nil {
			_ = v.Producer.Close()
		}
	}()

	sub := v.Session.Subscribe()
	defer sub.Close()

	runID, err := v.Session.StartRun(ctx, cfg.Stream.Tickers)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	v.Log.Info("run started", logger.String("run_id", runID))

	r := console.NewRenderer(!color.NoColor && !cfg.Viewer.NoColor)
	tick := time.NewTicker(cfg.Viewer.Refresh)
	defer tick.Stop()

	dirty := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.C():
			// coalesce; the table is redrawn on the next tick
			sub.Drain()
			dirty = true
		case <-tick.C:
			if !dirty {
				continue
			}
			dirty = false
			if err := draw(r, v); err != nil {
				return err
			}
		}
	}
}

func draw(r *console.Renderer, v *di.Viewer) error {
	var (
		rows []models.EntityView
		sum  models.Summary
	)
	v.Session.View(func(st *state.State) {
		rows = usecase.EntityViews(st, v.Calc)
		sum = v.Calc.Summary(st, st.RunID())
	})
	fmt.Fprint(os.Stdout, clearScreen)
	return r.Render(os.Stdout, rows, sum)
}
