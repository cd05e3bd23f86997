package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationwatch/aggregator/internal/record"
)

func TestSaveLoadIsolatesCallers(t *testing.T) {
	s := New()
	in := []*record.Record{{ID: "VIC01", AirTemp: 20.1}}
	require.NoError(t, s.Save(in))

	// Mutating the caller's slice/record after Save must not affect the store.
	in[0].AirTemp = 999

	got, err := s.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 20.1, got[0].AirTemp)

	// Mutating the loaded record must not affect the store either.
	got[0].AirTemp = -1
	got2, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 20.1, got2[0].AirTemp)
}

func TestPurgeClears(t *testing.T) {
	s := New()
	require.NoError(t, s.Save([]*record.Record{{ID: "A"}}))
	require.NoError(t, s.Purge())

	got, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}
