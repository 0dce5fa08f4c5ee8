package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationIndex(t *testing.T) {
	records := []StationRecord{
		{StationID: "A", Name: "Alpha", Lat: "1.0", Lon: "2.0"},
		{StationID: "B", Name: "Bravo", Lat: "3.0", Lon: "4.0"},
		{StationID: "A", Name: "Alpha (moved)", Lat: "1.5", Lon: "2.5"},
	}
	idx := NewStationIndex(records)

	t.Run("lookup keeps duplicates in order", func(t *testing.T) {
		got := idx.Lookup("A")
		require.Len(t, got, 2)
		assert.Equal(t, "Alpha", got[0].Name)
		assert.Equal(t, "Alpha (moved)", got[1].Name)
	})

	t.Run("lookup miss", func(t *testing.T) {
		assert.Empty(t, idx.Lookup("Z"))
	})

	t.Run("len and records", func(t *testing.T) {
		assert.Equal(t, 3, idx.Len())
		assert.Equal(t, records, idx.Records())
	})

	t.Run("input slice is copied", func(t *testing.T) {
		records[1].Name = "changed"
		assert.Equal(t, "Bravo", idx.Lookup("B")[0].Name)
	})

	t.Run("duplicates", func(t *testing.T) {
		assert.Equal(t, []string{"A"}, idx.Duplicates())
		assert.Empty(t, NewStationIndex(records[:2]).Duplicates())
	})

	t.Run("coordinates use first record", func(t *testing.T) {
		lat, lon, err := idx.Coordinates("A")
		require.NoError(t, err)
		assert.Equal(t, "1.0", lat)
		assert.Equal(t, "2.0", lon)
	})

	t.Run("coordinates of unknown station", func(t *testing.T) {
		_, _, err := idx.Coordinates("NOPE")
		require.ErrorIs(t, err, ErrStationNotFound)
		assert.Contains(t, err.Error(), `"NOPE"`)
	})
}
