package sweeper

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationwatch/aggregator/internal/clockreg"
	"github.com/stationwatch/aggregator/internal/record"
	"github.com/stationwatch/aggregator/internal/store"
	"github.com/stationwatch/aggregator/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweepRemovesExpiredRecords(t *testing.T) {
	mem := memory.New()
	guarded := store.NewGuarded(mem)
	require.NoError(t, mem.Save([]*record.Record{
		{ID: "VIC01", LastUpdated: time.Now().Add(-time.Hour).Unix()},
		{ID: "SA01", LastUpdated: time.Now().Unix()},
	}))

	clocks := clockreg.New()
	_, _ = clocks.Accept("VIC01", 1)

	s := New(guarded, clocks, time.Minute, time.Hour, testLogger(), nil)
	s.sweep()

	guarded.Lock()
	remaining, err := guarded.Store().Load()
	guarded.Unlock()
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "SA01", remaining[0].ID)
}

func TestSweepForgetsPublisherClockForExpiredStation(t *testing.T) {
	mem := memory.New()
	guarded := store.NewGuarded(mem)
	require.NoError(t, mem.Save([]*record.Record{
		{ID: "VIC01", LastUpdated: time.Now().Add(-time.Hour).Unix()},
	}))

	clocks := clockreg.New()
	_, _ = clocks.Accept("VIC01", 9)

	s := New(guarded, clocks, time.Minute, time.Hour, testLogger(), nil)
	s.sweep()

	prior, ok := clocks.Accept("VIC01", 1)
	assert.True(t, ok, "clock should be forgotten so clock 1 is accepted as first contact")
	assert.Equal(t, int64(0), prior)
}

func TestSetTTLAppliesOnNextSweep(t *testing.T) {
	mem := memory.New()
	guarded := store.NewGuarded(mem)
	require.NoError(t, mem.Save([]*record.Record{
		{ID: "VIC01", LastUpdated: time.Now().Add(-time.Minute).Unix()},
	}))

	s := New(guarded, clockreg.New(), time.Hour, time.Hour, testLogger(), nil)
	s.sweep()
	guarded.Lock()
	remaining, _ := guarded.Store().Load()
	guarded.Unlock()
	require.Len(t, remaining, 1, "not yet expired under the original hour-long TTL")

	s.SetTTL(time.Second)
	s.sweep()
	guarded.Lock()
	remaining, _ = guarded.Store().Load()
	guarded.Unlock()
	assert.Len(t, remaining, 0, "expired once the hot-reloaded TTL takes effect")
}

func TestSweepIsNoopWhenNothingExpired(t *testing.T) {
	mem := memory.New()
	guarded := store.NewGuarded(mem)
	require.NoError(t, mem.Save([]*record.Record{
		{ID: "VIC01", LastUpdated: time.Now().Unix()},
	}))

	s := New(guarded, clockreg.New(), time.Hour, time.Hour, testLogger(), nil)
	s.sweep()

	guarded.Lock()
	remaining, err := guarded.Store().Load()
	guarded.Unlock()
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
