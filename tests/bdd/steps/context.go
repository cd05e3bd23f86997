//go:build bdd

// Package steps provides godog step definitions for the weather
// aggregator's end-to-end scenarios.
package steps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// TestContext holds state shared across steps within a single scenario:
// one aggregator instance's base URL, per-peer Lamport clocks, and the
// most recent response.
type TestContext struct {
	BaseURL string
	Harness *Harness

	PublisherClocks map[string]int64
	lastPutBody     map[string]map[string]interface{}
	ReaderClock     int64

	LastStatusCode int
	LastBody       []byte
	LastJSONArray  []map[string]interface{}

	client *http.Client
}

// NewTestContext creates a fresh test context pointed at baseURL, the
// address of a real, running aggregator instance.
func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL:         baseURL,
		PublisherClocks: make(map[string]int64),
		lastPutBody:     make(map[string]map[string]interface{}),
		client:          &http.Client{Timeout: 5 * time.Second},
	}
}

// Reset clears per-scenario state so one TestContext can be reused
// across scenarios without leaking clocks or responses between them.
// The harness is not stopped here, only dropped from the context;
// callers stop the previous scenario's harness separately.
func (tc *TestContext) Reset() {
	tc.Harness = nil
	tc.BaseURL = ""
	tc.PublisherClocks = make(map[string]int64)
	tc.lastPutBody = make(map[string]map[string]interface{})
	tc.ReaderClock = 0
	tc.LastStatusCode = 0
	tc.LastBody = nil
	tc.LastJSONArray = nil
}

// NextPublisherClock advances and returns the next Lamport value for a
// named station's publisher stream.
func (tc *TestContext) NextPublisherClock(station string) int64 {
	tc.PublisherClocks[station]++
	return tc.PublisherClocks[station]
}

// NextReaderClock advances and returns this context's reader Lamport
// value. The aggregator keys reader clocks by remote socket address and
// closes each connection after one response, so successive GETs may
// arrive under different identities; one increasing counter is
// accepted either way.
func (tc *TestContext) NextReaderClock() int64 {
	tc.ReaderClock++
	return tc.ReaderClock
}

// Put sends a PUT /weather.json with the given clock and JSON body.
func (tc *TestContext) Put(clock int64, body map[string]interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return tc.do(http.MethodPut, "/weather.json", clock, data)
}

// PutRaw sends a PUT with a raw, possibly malformed body.
func (tc *TestContext) PutRaw(clock int64, raw string) error {
	return tc.do(http.MethodPut, "/weather.json", clock, []byte(raw))
}

// Get sends a GET /weather.json, optionally filtered by station id.
func (tc *TestContext) Get(clock int64, stationID string) error {
	path := "/weather.json"
	if stationID != "" {
		path += "?stationID=" + stationID
	}
	return tc.do(http.MethodGet, path, clock, nil)
}

func (tc *TestContext) do(method, path string, clock int64, body []byte) error {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, tc.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Lamport-Clock", strconv.FormatInt(clock, 10))
	if body != nil {
		req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	tc.LastStatusCode = resp.StatusCode
	tc.LastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	tc.LastJSONArray = nil
	if len(tc.LastBody) > 0 && tc.LastBody[0] == '[' {
		var arr []map[string]interface{}
		if err := json.Unmarshal(tc.LastBody, &arr); err == nil {
			tc.LastJSONArray = arr
		}
	}
	return nil
}

// HasStation reports whether the last GET response's array contains a
// record with the given station id.
func (tc *TestContext) HasStation(id string) bool {
	for _, rec := range tc.LastJSONArray {
		if rec["id"] == id {
			return true
		}
	}
	return false
}
