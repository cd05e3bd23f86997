// Package pipeline is the aggregator's single-writer request pipeline:
// a bounded FIFO drained by exactly one worker goroutine, so every PUT
// and GET is applied to the station set one at a time with no locking
// around the business logic itself — only the store and clock
// registries need their own mutexes, and only because the sweeper also
// touches them.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stationwatch/aggregator/internal/clockreg"
	"github.com/stationwatch/aggregator/internal/metrics"
	"github.com/stationwatch/aggregator/internal/record"
	"github.com/stationwatch/aggregator/internal/store"
)

// ErrQueueFull is returned by Submit when the FIFO has no free slot.
// Callers respond 503 and do not retry; the pipeline never blocks a
// connection handler waiting for room.
var ErrQueueFull = errors.New("pipeline: queue full")

// Pipeline owns the work queue and the single worker that drains it.
type Pipeline struct {
	queue        chan *WorkItem
	st           *store.Guarded
	publisherClk *clockreg.Registry
	readerClk    *clockreg.Registry
	ttl          time.Duration
	log          *slog.Logger
	metrics      *metrics.Metrics
}

// New builds a Pipeline with the given queue capacity. publisherClk
// and readerClk are independent registries: a PUT and a GET from the
// same peer address do not share a clock.
func New(queueSize int, st *store.Guarded, publisherClk, readerClk *clockreg.Registry, ttl time.Duration, log *slog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		queue:        make(chan *WorkItem, queueSize),
		st:           st,
		publisherClk: publisherClk,
		readerClk:    readerClk,
		ttl:          ttl,
		log:          log,
		metrics:      m,
	}
}

// Submit enqueues item without blocking. It returns ErrQueueFull if the
// FIFO is at capacity.
func (p *Pipeline) Submit(item *WorkItem) error {
	select {
	case p.queue <- item:
		if p.metrics != nil {
			p.metrics.QueueDepth.Set(float64(len(p.queue)))
		}
		return nil
	default:
		if p.metrics != nil {
			p.metrics.QueueFullTotal.Inc()
		}
		return ErrQueueFull
	}
}

// Run drains the queue on the calling goroutine until ctx is canceled.
// This is the pipeline's single worker; callers must not run more than
// one Run loop per Pipeline.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-p.queue:
			if p.metrics != nil {
				p.metrics.QueueDepth.Set(float64(len(p.queue)))
			}
			p.process(item)
		}
	}
}

// process dispatches one work item and guarantees a result is always
// sent, even if the handler panics, so the submitting connection never
// hangs and the worker itself survives to process the next item.
func (p *Pipeline) process(item *WorkItem) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("pipeline worker recovered from panic",
				"work_id", item.TraceID, "panic", r)
			if p.metrics != nil {
				p.metrics.WorkerPanics.Inc()
			}
			item.complete(500, nil)
		}
	}()

	switch item.Kind {
	case KindPut:
		p.handlePut(item)
	case KindGet:
		p.handleGet(item)
	}
}

func (p *Pipeline) handlePut(item *WorkItem) {
	log := p.log.With("work_id", item.TraceID, "peer", item.Peer)

	if len(item.Payload) == 0 {
		item.complete(204, nil)
		return
	}

	rec, err := record.Decode(item.Payload)
	if err != nil {
		log.Warn("put rejected: malformed payload", "error", err)
		p.recordPut("error")
		item.complete(500, nil)
		return
	}

	if err := rec.Validate(); err != nil {
		log.Warn("put rejected: invalid record", "error", err)
		p.recordPut("rejected")
		item.complete(400, nil)
		return
	}

	// Keyed by station id, not by peer address: a station's clock tracks
	// its own observation stream regardless of which socket it publishes
	// from, and the sweeper forgets this same key on expiry.
	prior, accepted := p.publisherClk.Accept(rec.ID, item.Clock)
	if !accepted {
		log.Warn("put rejected: replayed or reordered clock",
			"station", rec.ID, "incoming_clock", item.Clock, "prior_clock", prior)
		p.recordPut("rejected")
		item.complete(400, nil)
		return
	}

	rec.LastUpdated = time.Now().Unix()

	p.st.Lock()
	defer p.st.Unlock()

	records, err := p.st.Store().Load()
	if err != nil {
		log.Error("put failed: loading store", "error", err)
		p.recordPut("error")
		item.complete(500, nil)
		return
	}

	kept := make([]*record.Record, 0, len(records)+1)
	for _, existing := range records {
		if existing.ID != rec.ID {
			kept = append(kept, existing)
		}
	}
	kept = append(kept, rec)

	if err := p.st.Store().Save(kept); err != nil {
		log.Error("put failed: saving store", "error", err)
		p.recordPut("error")
		item.complete(500, nil)
		return
	}

	if p.metrics != nil {
		p.metrics.PutGeneration.Inc()
		p.metrics.StationsTracked.Set(float64(len(kept)))
		p.metrics.PublisherClocks.Set(float64(p.publisherClk.Len()))
	}

	if prior == 0 {
		log.Info("station created", "station", rec.ID)
		p.recordPut("created")
		item.complete(201, nil)
		return
	}

	log.Info("station updated", "station", rec.ID)
	p.recordPut("updated")
	item.complete(200, nil)
}

func (p *Pipeline) handleGet(item *WorkItem) {
	log := p.log.With("work_id", item.TraceID, "peer", item.Peer)

	_, accepted := p.readerClk.Accept(item.Peer, item.Clock)
	if !accepted {
		log.Warn("get rejected: replayed or reordered clock", "incoming_clock", item.Clock)
		p.recordGet(item.StationFilter != "", "rejected")
		item.complete(400, nil)
		return
	}
	if p.metrics != nil {
		p.metrics.ReaderClocks.Set(float64(p.readerClk.Len()))
	}

	p.st.Lock()
	records, err := p.st.Store().Load()
	p.st.Unlock()
	if err != nil {
		log.Error("get failed: loading store", "error", err)
		p.recordGet(item.StationFilter != "", "error")
		item.complete(500, nil)
		return
	}

	live := make([]*record.Record, 0, len(records))
	now := time.Now().Unix()
	for _, rec := range records {
		if p.ttl > 0 && now-rec.LastUpdated > int64(p.ttl.Seconds()) {
			continue
		}
		if item.StationFilter != "" && rec.ID != item.StationFilter {
			continue
		}
		live = append(live, rec)
	}

	body, err := record.EncodeList(live)
	if err != nil {
		log.Error("get failed: encoding response", "error", err)
		p.recordGet(item.StationFilter != "", "error")
		item.complete(500, nil)
		return
	}

	p.recordGet(item.StationFilter != "", "ok")
	item.complete(200, body)
}

func (p *Pipeline) recordPut(outcome string) {
	if p.metrics != nil {
		p.metrics.RecordPut(outcome)
	}
}

func (p *Pipeline) recordGet(filtered bool, outcome string) {
	if p.metrics != nil {
		p.metrics.RecordGet(filtered, outcome)
	}
}
