package domain

import (
	"fmt"
	"slices"
)

// StationIndex is a read-only hash index of station records keyed by
// station identifier. It is safe for concurrent readers.
type StationIndex struct {
	byID    map[string][]StationRecord
	records []StationRecord
}

// NewStationIndex indexes records. Repeated identifiers keep every record in
// input order.
func NewStationIndex(records []StationRecord) *StationIndex {
	idx := &StationIndex{
		byID:    make(map[string][]StationRecord, len(records)),
		records: slices.Clone(records),
	}
	for _, r := range idx.records {
		idx.byID[r.StationID] = append(idx.byID[r.StationID], r)
	}
	return idx
}

// Lookup returns every record for id. The returned slice must not be modified.
func (x *StationIndex) Lookup(id string) []StationRecord {
	return x.byID[id]
}

// Len returns the number of station records, duplicates included.
func (x *StationIndex) Len() int { return len(x.records) }

// Records returns a copy of all records in input order.
func (x *StationIndex) Records() []StationRecord {
	return slices.Clone(x.records)
}

// Duplicates returns the sorted identifiers that occur more than once.
func (x *StationIndex) Duplicates() []string {
	var dups []string
	for id, recs := range x.byID {
		if len(recs) > 1 {
			dups = append(dups, id)
		}
	}
	slices.Sort(dups)
	return dups
}

// Coordinates returns the latitude and longitude of the first record for id.
func (x *StationIndex) Coordinates(id string) (lat, lon string, err error) {
	recs := x.byID[id]
	if len(recs) == 0 {
		return "", "", fmt.Errorf("%w: %q", ErrStationNotFound, id)
	}
	return recs[0].Lat, recs[0].Lon, nil
}
