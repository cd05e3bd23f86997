//go:build bdd

package steps

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stationwatch/aggregator/internal/clockreg"
	"github.com/stationwatch/aggregator/internal/pipeline"
	"github.com/stationwatch/aggregator/internal/server"
	"github.com/stationwatch/aggregator/internal/store"
	"github.com/stationwatch/aggregator/internal/store/memory"
	"github.com/stationwatch/aggregator/internal/sweeper"
)

// HarnessOptions configures an in-process aggregator instance for one
// scenario. The zero value is the default instance: a generous queue,
// a one-hour TTL, and a worker that drains normally.
type HarnessOptions struct {
	QueueSize   int
	TTL         time.Duration
	SweepEvery  time.Duration
	StallWorker bool // never starts the pipeline worker, for backpressure scenarios
}

// Harness is a running in-process aggregator plus its teardown.
type Harness struct {
	BaseURL string
	stop    func()
}

// StartHarness builds a full in-process aggregator — memory store,
// pipeline, sweeper, and the real TCP acceptor — on a loopback
// ephemeral port, and returns its base URL.
func StartHarness(opts HarnessOptions) *Harness {
	if opts.QueueSize == 0 {
		opts.QueueSize = 64
	}
	if opts.TTL == 0 {
		opts.TTL = time.Hour
	}
	if opts.SweepEvery == 0 {
		opts.SweepEvery = time.Hour
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	guarded := store.NewGuarded(memory.New())
	publisherClocks := clockreg.New()
	readerClocks := clockreg.New()

	pipe := pipeline.New(opts.QueueSize, guarded, publisherClocks, readerClocks, opts.TTL, log, nil)
	sw := sweeper.New(guarded, publisherClocks, opts.TTL, opts.SweepEvery, log, nil)
	srv := server.New("127.0.0.1:0", 8, pipe, log)

	ctx, cancel := context.WithCancel(context.Background())

	if !opts.StallWorker {
		go pipe.Run(ctx)
	}
	go sw.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	<-srv.Ready()
	addr := srv.Addr()

	return &Harness{
		BaseURL: "http://" + addr,
		stop: func() {
			cancel()
			<-errCh
		},
	}
}

// Stop tears the harness down.
func (h *Harness) Stop() {
	h.stop()
}
