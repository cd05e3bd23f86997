// Package sweeper periodically removes station records that have gone
// quiet past the configured TTL. It is a fallback, not the primary
// expiry mechanism: the pipeline already filters stale records out of
// every GET response on the fly, so a reader never observes an expired
// record regardless of when the sweeper last ran. The sweeper exists to
// bound memory and file size, and to let a station's next PUT after a
// long silence be treated as first contact again.
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stationwatch/aggregator/internal/clockreg"
	"github.com/stationwatch/aggregator/internal/metrics"
	"github.com/stationwatch/aggregator/internal/record"
	"github.com/stationwatch/aggregator/internal/store"
)

// DefaultTTL is the age past which a record is considered expired.
const DefaultTTL = 30 * time.Second

// DefaultInterval is how often the sweeper checks for expired records.
const DefaultInterval = 10 * time.Second

// Sweeper owns the periodic expiry pass. TTL and interval are guarded
// by a mutex separate from the store's, since config hot-reload may
// call SetTTL/SetInterval concurrently with a sweep in progress.
type Sweeper struct {
	st           *store.Guarded
	publisherClk *clockreg.Registry
	log          *slog.Logger
	metrics      *metrics.Metrics

	mu       sync.Mutex
	ttl      time.Duration
	interval time.Duration
}

// New builds a Sweeper. publisherClk is forgotten per expired station
// so its next publish is treated as first contact; reader clocks are
// untouched by expiry, since a reader's clock tracks the reader's own
// request stream, not any one station's lifetime.
func New(st *store.Guarded, publisherClk *clockreg.Registry, ttl, interval time.Duration, log *slog.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		st:           st,
		publisherClk: publisherClk,
		ttl:          ttl,
		interval:     interval,
		log:          log,
		metrics:      m,
	}
}

// SetTTL changes the expiry age applied on the next sweep. Picked up
// live by config hot-reload without restarting the process.
func (s *Sweeper) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttl = ttl
}

// SetInterval changes how often Run sweeps. Picked up on the running
// timer's next tick.
func (s *Sweeper) SetInterval(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = interval
}

func (s *Sweeper) snapshot() (ttl, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttl, s.interval
}

// Run sweeps on a timer until ctx is canceled. A timer, rather than a
// ticker, is used so a live interval change via SetInterval takes
// effect on the very next wait rather than only after the old ticker
// period elapses.
func (s *Sweeper) Run(ctx context.Context) {
	_, interval := s.snapshot()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.sweep()
			_, interval := s.snapshot()
			timer.Reset(interval)
		}
	}
}

func (s *Sweeper) sweep() {
	ttl, _ := s.snapshot()

	s.st.Lock()
	defer s.st.Unlock()

	records, err := s.st.Store().Load()
	if err != nil {
		s.log.Error("sweeper: loading store", "error", err)
		return
	}

	if s.metrics != nil {
		s.metrics.SweepRunsTotal.Inc()
	}

	now := time.Now().Unix()
	kept := make([]*record.Record, 0, len(records))
	var expired []*record.Record
	for _, rec := range records {
		if now-rec.LastUpdated > int64(ttl.Seconds()) {
			expired = append(expired, rec)
			continue
		}
		kept = append(kept, rec)
	}

	if len(expired) == 0 {
		if s.metrics != nil {
			s.metrics.StationsTracked.Set(float64(len(records)))
		}
		return
	}

	if err := s.st.Store().Save(kept); err != nil {
		s.log.Error("sweeper: saving store after expiry", "error", err)
		return
	}

	for _, rec := range expired {
		s.publisherClk.Forget(rec.ID)
		s.log.Info("station expired", "station", rec.ID, "age_seconds", now-rec.LastUpdated)
	}

	if s.metrics != nil {
		s.metrics.SweepExpiredTotal.Add(float64(len(expired)))
		s.metrics.StationsTracked.Set(float64(len(kept)))
		s.metrics.PublisherClocks.Set(float64(s.publisherClk.Len()))
	}
}
