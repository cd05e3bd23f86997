package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
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

func newTestPipeline(t *testing.T) (*Pipeline, func()) {
	t.Helper()
	guarded := store.NewGuarded(memory.New())
	p := New(8, guarded, clockreg.New(), clockreg.New(), time.Hour, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ctx)
	}()

	return p, func() {
		cancel()
		wg.Wait()
	}
}

func TestFirstPutCreates(t *testing.T) {
	p, stop := newTestPipeline(t)
	defer stop()

	item := NewPutItem("10.0.0.1:9000", 1, []byte(`{"id":"VIC01","name":"Melbourne"}`))
	require.NoError(t, p.Submit(item))
	res := item.Wait()
	assert.Equal(t, 201, res.Status)
}

func TestSecondPutFromSamePeerUpdates(t *testing.T) {
	p, stop := newTestPipeline(t)
	defer stop()

	first := NewPutItem("10.0.0.1:9000", 1, []byte(`{"id":"VIC01"}`))
	require.NoError(t, p.Submit(first))
	require.Equal(t, 201, first.Wait().Status)

	second := NewPutItem("10.0.0.1:9000", 2, []byte(`{"id":"VIC01","name":"Melbourne"}`))
	require.NoError(t, p.Submit(second))
	assert.Equal(t, 200, second.Wait().Status)
}

func TestReplayedClockRejected(t *testing.T) {
	p, stop := newTestPipeline(t)
	defer stop()

	first := NewPutItem("10.0.0.1:9000", 5, []byte(`{"id":"VIC01"}`))
	require.NoError(t, p.Submit(first))
	require.Equal(t, 201, first.Wait().Status)

	replay := NewPutItem("10.0.0.1:9000", 5, []byte(`{"id":"VIC01"}`))
	require.NoError(t, p.Submit(replay))
	assert.Equal(t, 400, replay.Wait().Status)
}

func TestMissingIDRejected(t *testing.T) {
	p, stop := newTestPipeline(t)
	defer stop()

	item := NewPutItem("10.0.0.1:9000", 1, []byte(`{"name":"no id here"}`))
	require.NoError(t, p.Submit(item))
	assert.Equal(t, 400, item.Wait().Status)
}

func TestMalformedPayloadIsServerError(t *testing.T) {
	p, stop := newTestPipeline(t)
	defer stop()

	item := NewPutItem("10.0.0.1:9000", 1, []byte(`not json`))
	require.NoError(t, p.Submit(item))
	assert.Equal(t, 500, item.Wait().Status)
}

func TestEmptyPutBodyIsNoContent(t *testing.T) {
	p, stop := newTestPipeline(t)
	defer stop()

	item := NewPutItem("10.0.0.1:9000", 1, nil)
	require.NoError(t, p.Submit(item))
	assert.Equal(t, 204, item.Wait().Status)
}

func TestGetReturnsStoredRecordsAsArray(t *testing.T) {
	p, stop := newTestPipeline(t)
	defer stop()

	put := NewPutItem("10.0.0.1:9000", 1, []byte(`{"id":"VIC01"}`))
	require.NoError(t, p.Submit(put))
	require.Equal(t, 201, put.Wait().Status)

	get := NewGetItem("10.0.0.2:9001", 1, "")
	require.NoError(t, p.Submit(get))
	res := get.Wait()
	require.Equal(t, 200, res.Status)

	var records []*record.Record
	require.NoError(t, json.Unmarshal(res.Body, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "VIC01", records[0].ID)
}

func TestGetFiltersByStationID(t *testing.T) {
	p, stop := newTestPipeline(t)
	defer stop()

	for i, id := range []string{"VIC01", "SA01"} {
		put := NewPutItem("10.0.0.1:9000", int64(i+1), []byte(`{"id":"`+id+`"}`))
		require.NoError(t, p.Submit(put))
		put.Wait()
	}

	get := NewGetItem("10.0.0.2:9001", 1, "SA01")
	require.NoError(t, p.Submit(get))
	res := get.Wait()

	var records []*record.Record
	require.NoError(t, json.Unmarshal(res.Body, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "SA01", records[0].ID)
}

func TestGetWithReplayedReaderClockRejected(t *testing.T) {
	p, stop := newTestPipeline(t)
	defer stop()

	first := NewGetItem("10.0.0.2:9001", 3, "")
	require.NoError(t, p.Submit(first))
	require.Equal(t, 200, first.Wait().Status)

	replay := NewGetItem("10.0.0.2:9001", 3, "")
	require.NoError(t, p.Submit(replay))
	assert.Equal(t, 400, replay.Wait().Status)
}

func TestQueueFullReturnsError(t *testing.T) {
	guarded := store.NewGuarded(memory.New())
	// No Run loop draining the queue: every Submit beyond capacity fails.
	p := New(1, guarded, clockreg.New(), clockreg.New(), time.Hour, testLogger(), nil)

	require.NoError(t, p.Submit(NewGetItem("p", 1, "")))
	err := p.Submit(NewGetItem("p", 2, ""))
	assert.ErrorIs(t, err, ErrQueueFull)
}
