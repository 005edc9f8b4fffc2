package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	service "github.com/okian/upskill/internal/app"
	"github.com/okian/upskill/internal/config"
	"github.com/okian/upskill/internal/eventreplay"
	"github.com/okian/upskill/pkg/logger"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultRunBudget = 10 * time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(context.Background())
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	var (
		input   = flag.String("input", "", "JSON array or JSON-lines file of events (required)")
		baseURL = flag.String("url", "", "Base URL of a running server; empty replays in process")
		workers = flag.Int("workers", cfg.ReplayWorkers, "Number of concurrent workers")
		queue   = flag.Int("queue", cfg.ReplayQueueSize, "Per-worker queue capacity")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		budget  = flag.Duration("budget", defaultRunBudget, "Upper bound on the whole run")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if *input == "" {
		flag.Usage()
		return 2
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	_ = logger.SetLevelString(level)
	log := logger.Named("replay-events")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *budget)
	defer cancel()

	records, err := eventreplay.ReadFile(*input)
	if err != nil {
		log.Error(ctx, "reading events failed", logger.Error(err))
		return 1
	}

	var dispatcher eventreplay.Dispatcher
	if *baseURL != "" {
		dispatcher = eventreplay.NewHTTP(*baseURL, *timeout)
		log.Info(ctx, "replaying over HTTP", logger.String("url", *baseURL))
	} else {
		svc, err := service.Open(ctx, cfg, logger.Named("supervisor"))
		if err != nil {
			log.Error(ctx, "starting supervisor failed", logger.Error(err))
			return 1
		}
		defer svc.Stop()
		dispatcher = eventreplay.Supervisor{Service: svc}
		log.Info(ctx, "replaying in process", logger.String("store", cfg.StoreDriver))
	}

	sum, err := eventreplay.Run(ctx, eventreplay.Config{Workers: *workers, QueueSize: *queue, Logger: log}, records, dispatcher)
	if sum != nil {
		fmt.Println(sum.String())
	}
	if err != nil {
		log.Error(ctx, "replay incomplete", logger.Error(err))
		return 1
	}
	if sum.Failed > 0 {
		return 1
	}
	return 0
}
