//go:build bdd

package steps

import (
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// RegisterWeatherSteps registers the step definitions for the station
// aggregation feature: starting a harness under various configurations,
// publishing and reading observations, and asserting on responses.
func RegisterWeatherSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// --- Given steps ---

	ctx.Step(`^a running aggregator$`, func() error {
		tc.Harness = StartHarness(HarnessOptions{})
		tc.BaseURL = tc.Harness.BaseURL
		return nil
	})

	ctx.Step(`^a running aggregator with a (\d+) second TTL and a fast sweeper$`, func(ttlSeconds int) error {
		tc.Harness = StartHarness(HarnessOptions{
			TTL:        time.Duration(ttlSeconds) * time.Second,
			SweepEvery: 250 * time.Millisecond,
		})
		tc.BaseURL = tc.Harness.BaseURL
		return nil
	})

	ctx.Step(`^a running aggregator with a queue of size (\d+) and a stalled worker$`, func(queueSize int) error {
		tc.Harness = StartHarness(HarnessOptions{
			QueueSize:   queueSize,
			StallWorker: true,
		})
		tc.BaseURL = tc.Harness.BaseURL
		return nil
	})

	ctx.Step(`^publisher "([^"]*)" has already published air_temp ([\d.]+)$`, func(station string, airTemp float64) error {
		clock := tc.NextPublisherClock(station)
		body := map[string]interface{}{"id": station, "air_temp": airTemp}
		tc.lastPutBody[station] = body
		return tc.Put(clock, body)
	})

	// --- When steps ---

	ctx.Step(`^publisher "([^"]*)" sends a PUT with air_temp ([\d.]+)$`, func(station string, airTemp float64) error {
		clock := tc.NextPublisherClock(station)
		body := map[string]interface{}{"id": station, "air_temp": airTemp}
		tc.lastPutBody[station] = body
		return tc.Put(clock, body)
	})

	ctx.Step(`^publisher "([^"]*)" sends a PUT with clock (\d+) and air_temp ([\d.]+)$`, func(station string, clock int64, airTemp float64) error {
		if clock > tc.PublisherClocks[station] {
			tc.PublisherClocks[station] = clock
		}
		body := map[string]interface{}{"id": station, "air_temp": airTemp}
		tc.lastPutBody[station] = body
		return tc.Put(clock, body)
	})

	ctx.Step(`^publisher "([^"]*)" replays its last PUT$`, func(station string) error {
		body, ok := tc.lastPutBody[station]
		if !ok {
			return fmt.Errorf("no prior PUT recorded for station %q", station)
		}
		// Reuses the clock already spent on the last accepted PUT, which
		// the aggregator must reject as a non-advancing replay.
		return tc.Put(tc.PublisherClocks[station], body)
	})

	ctx.Step(`^a reader sends a GET with no filter$`, func() error {
		return tc.Get(tc.NextReaderClock(), "")
	})

	ctx.Step(`^a reader sends a GET filtered to station "([^"]*)"$`, func(station string) error {
		return tc.Get(tc.NextReaderClock(), station)
	})

	ctx.Step(`^(\d+) seconds? pass$`, func(seconds int) error {
		time.Sleep(time.Duration(seconds) * time.Second)
		return nil
	})

	ctx.Step(`^the queue is filled with (\d+) pending requests?$`, func(count int) error {
		for i := 0; i < count; i++ {
			station := fmt.Sprintf("filler-%d", i)
			// Submitted without waiting for a response: the worker never
			// runs under a stalled harness, so these simply occupy queue
			// slots until the scenario's own PUT overflows them.
			go func(clock int64, body map[string]interface{}) {
				_ = tc.Put(clock, body)
			}(1, map[string]interface{}{"id": station, "air_temp": 0})
		}
		// Give the goroutines a moment to reach the server and submit.
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	// --- Then steps ---

	ctx.Step(`^the response status is (\d+)$`, func(status int) error {
		if tc.LastStatusCode != status {
			return fmt.Errorf("expected status %d, got %d (body: %s)", status, tc.LastStatusCode, tc.LastBody)
		}
		return nil
	})

	ctx.Step(`^the response contains station "([^"]*)"$`, func(station string) error {
		if !tc.HasStation(station) {
			return fmt.Errorf("expected response to contain station %q, got: %s", station, tc.LastBody)
		}
		return nil
	})

	ctx.Step(`^the response contains exactly (\d+) stations?$`, func(count int) error {
		if len(tc.LastJSONArray) != count {
			return fmt.Errorf("expected exactly %d stations, got %d: %s", count, len(tc.LastJSONArray), tc.LastBody)
		}
		return nil
	})
}
