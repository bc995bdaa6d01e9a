package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rl1809/marketplace/internal/adapter/observer"
	"github.com/rl1809/marketplace/internal/core/service"
	"github.com/rl1809/marketplace/internal/simulation"
	"github.com/rl1809/marketplace/pkg/config"
	"github.com/rl1809/marketplace/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}

	scenarioFile := flag.String("scenario", cfg.Simulation.ScenarioFile, "scenario YAML file")
	timeout := flag.Duration("timeout", time.Minute, "abort the run after this long (0 disables)")
	flag.Parse()

	// orders go to stdout; logs stay on stderr
	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		Out:   os.Stderr,
	})

	scenario, err := simulation.LoadScenario(*scenarioFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", *scenarioFile).Msg("failed to load scenario")
	}

	queueSize := cfg.Market.QueueSizePerProducer
	if scenario.QueueSizePerProducer > 0 {
		queueSize = scenario.QueueSizePerProducer
	}

	orders := observer.NewMemoryOrderRepository()
	dispatcher := observer.NewOrderDispatcher(orders, cfg.Orders.QueueSize, log)
	dispatcher.Start(cfg.Orders.Workers)

	marketplace, err := service.NewMarketplace(queueSize,
		service.WithObserver(observer.Fanout{observer.NewLogObserver(log), dispatcher}),
		service.WithCartIDSpace(cfg.Market.CartIDSpace),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create marketplace")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	log.Info().
		Str("scenario", *scenarioFile).
		Int("producers", len(scenario.Producers)).
		Int("consumers", len(scenario.Consumers)).
		Int("queue_size_per_producer", queueSize).
		Msg("simulation started")

	start := time.Now()
	report, runErr := simulation.NewRunner(marketplace, scenario, os.Stdout, log).Run(ctx)
	dispatcher.Close()

	stats := dispatcher.Stats()
	log.Info().
		Int("orders", report.Orders).
		Int("lines", report.Lines).
		Uint64("recorded", stats.Saved).
		Dur("elapsed", time.Since(start)).
		Msg("simulation finished")

	if runErr != nil {
		if simulation.IsCanceled(runErr) {
			fmt.Fprintln(os.Stderr, "simulation stopped before every consumer finished")
		} else {
			log.Error().Err(runErr).Msg("simulation failed")
		}
		os.Exit(1)
	}
}
