// Package record provides the typed station-observation model and its
// JSON wire codec.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingID is returned when a record's id field is empty.
var ErrMissingID = errors.New("record: missing id")

// ErrMalformedPayload is returned when the wire payload cannot be decoded
// into a Record.
var ErrMalformedPayload = errors.New("record: malformed payload")

// Record is one observation from one station. Field names map to the
// wire names used by publishers and readers; _last_updated is assigned
// by the aggregator and is never trusted from the wire.
type Record struct {
	ID                string  `json:"id"`
	Name              string  `json:"name,omitempty"`
	State             string  `json:"state,omitempty"`
	TimeZone          string  `json:"time_zone,omitempty"`
	LocalDateTime     string  `json:"local_date_time,omitempty"`
	LocalDateTimeFull string  `json:"local_date_time_full,omitempty"`
	Cloud             string  `json:"cloud,omitempty"`
	WindDir           string  `json:"wind_dir,omitempty"`
	Lat               float64 `json:"lat,omitempty"`
	Lon               float64 `json:"lon,omitempty"`
	AirTemp           float64 `json:"air_temp,omitempty"`
	ApparentT         float64 `json:"apparent_t,omitempty"`
	DewPt             float64 `json:"dewpt,omitempty"`
	Press             float64 `json:"press,omitempty"`
	RelHum            int32   `json:"rel_hum,omitempty"`
	WindSpdKmh        int32   `json:"wind_spd_kmh,omitempty"`
	WindSpdKt         int32   `json:"wind_spd_kt,omitempty"`
	LastUpdated       int64   `json:"_last_updated"`
}

// Validate checks the invariants this package is responsible for: the
// station id must be present. Acceptance-time rules (clock ordering,
// timestamp assignment) live in the pipeline, not here.
func (r *Record) Validate() error {
	if r.ID == "" {
		return ErrMissingID
	}
	return nil
}

// Decode parses a single JSON-encoded record from the wire. A malformed
// payload is reported as ErrMalformedPayload wrapping the underlying
// decode error, never as a panic — callers surface this as a pipeline
// failure without aborting the worker.
func Decode(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &r, nil
}

// Encode serializes a single record compactly.
func Encode(r *Record) ([]byte, error) {
	return json.Marshal(r)
}

// EncodeList serializes a list of records as a pretty-printed JSON array.
// An empty or nil list encodes as "[]", never "null", so readers always
// see a well-formed array body.
func EncodeList(records []*Record) ([]byte, error) {
	if records == nil {
		records = []*Record{}
	}
	return json.MarshalIndent(records, "", "  ")
}

// DecodeList parses a JSON array of records, used when loading the
// persisted store snapshot.
func DecodeList(data []byte) ([]*Record, error) {
	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return records, nil
}
