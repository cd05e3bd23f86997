// Package main is the entry point for the weather aggregator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/stationwatch/aggregator/internal/adminapi"
	"github.com/stationwatch/aggregator/internal/clockreg"
	"github.com/stationwatch/aggregator/internal/config"
	"github.com/stationwatch/aggregator/internal/logging"
	"github.com/stationwatch/aggregator/internal/metrics"
	"github.com/stationwatch/aggregator/internal/pipeline"
	"github.com/stationwatch/aggregator/internal/server"
	"github.com/stationwatch/aggregator/internal/store"
	"github.com/stationwatch/aggregator/internal/store/file"
	"github.com/stationwatch/aggregator/internal/sweeper"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	port := flag.Int("port", 0, "Listen port for the core wire protocol (overrides config; 0 means use config)")
	dataFile := flag.String("data-file", "", "Path to the persisted snapshot file (overrides config)")
	ttlSeconds := flag.Int("ttl", 0, "Record TTL in seconds (overrides config; 0 means use config)")
	sweepInterval := flag.Int("sweep-interval", 0, "Sweep interval in seconds (overrides config; 0 means use config)")
	queueSize := flag.Int("queue-size", 0, "Pipeline FIFO capacity (overrides config; 0 means use config)")
	poolSize := flag.Int("pool-size", 0, "Dispatcher pool size (overrides config; 0 means use config)")
	adminAddr := flag.String("admin-addr", "", "Admin surface listen address (overrides config)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("weather-aggregator %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// spec.md's CLI contract is one optional positional argument: the
	// listen port. It takes precedence over -port and the config file.
	if flag.NArg() > 0 {
		var p int
		if _, err := fmt.Sscanf(flag.Arg(0), "%d", &p); err == nil {
			*port = p
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg, *port, *dataFile, *ttlSeconds, *sweepInterval, *queueSize, *poolSize, *adminAddr)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging)
	slog.SetDefault(log)

	log.Info("starting weather aggregator",
		"version", version, "addr", cfg.ServerAddr(), "data_file", cfg.Storage.DataFile)

	m := metrics.New()
	st := file.New(cfg.Storage.DataFile, log)

	publisherClocks := clockreg.New()
	readerClocks := clockreg.New()
	guarded := store.NewGuarded(st)

	ttl := time.Duration(cfg.Sweeper.TTLSeconds) * time.Second
	interval := time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second

	pipe := pipeline.New(cfg.Server.QueueSize, guarded, publisherClocks, readerClocks, ttl, log, m)
	sw := sweeper.New(guarded, publisherClocks, ttl, interval, log, m)
	srv := server.New(cfg.ServerAddr(), cfg.Server.PoolSize, pipe, log)

	var ready atomic.Bool
	admin := adminapi.New(cfg.Admin.Addr, ready.Load, m, log)

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The worker subsystems (pipeline, sweeper, admin surface, config
	// watcher) get their own cancellation, canceled only after the
	// acceptor has fully drained, so an in-flight connection's work item
	// is never abandoned mid-pipeline by a worker that stopped first.
	// The shutdown order is: stop accepting, close listener, drain pool
	// (all inside srv.Run), THEN stop sweeper, clear registries, purge
	// store.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() { defer wg.Done(); pipe.Run(workerCtx) }()
	go func() { defer wg.Done(); sw.Run(workerCtx) }()
	go func() {
		defer wg.Done()
		if err := admin.Run(workerCtx); err != nil {
			log.Error("admin surface error", "error", err)
		}
	}()
	go func() {
		if err := config.Watch(workerCtx, *configPath, cfg, sw, log); err != nil {
			log.Error("config watcher error", "error", err)
		}
	}()

	go func() {
		<-srv.Ready()
		ready.Store(true)
		log.Info("acceptor ready")
	}()

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Run(sigCtx) }()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Error("acceptor error", "error", err)
		}
	case <-sigCtx.Done():
		log.Info("shutdown signal received")
		<-serverErr
	}

	stopWorkers()
	wg.Wait()

	publisherClocks.Clear()
	readerClocks.Clear()
	if err := st.Purge(); err != nil {
		log.Error("store purge failed", "error", err)
	}

	log.Info("shutdown complete")
}

func applyFlagOverrides(cfg *config.Config, port int, dataFile string, ttlSeconds, sweepInterval, queueSize, poolSize int, adminAddr string) {
	if port != 0 {
		cfg.Server.Port = port
	}
	if dataFile != "" {
		cfg.Storage.DataFile = dataFile
	}
	if ttlSeconds != 0 {
		cfg.Sweeper.TTLSeconds = ttlSeconds
	}
	if sweepInterval != 0 {
		cfg.Sweeper.IntervalSeconds = sweepInterval
	}
	if queueSize != 0 {
		cfg.Server.QueueSize = queueSize
	}
	if poolSize != 0 {
		cfg.Server.PoolSize = poolSize
	}
	if adminAddr != "" {
		cfg.Admin.Addr = adminAddr
	}
}
