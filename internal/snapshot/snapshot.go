// Package snapshot holds the published collection: the single piece of state
// shared between the collector (writer) and the API layer (readers).
package snapshot

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/flowrank/flowrank/pkg/source"
)

// Snapshot is one complete ranked collection of records, sorted descending by
// engagement score, plus the time it was published. Snapshots are immutable:
// a refresh publishes a new one, it never mutates the current one.
type Snapshot struct {
	Records     []source.Record `json:"records"`
	LastRefresh time.Time       `json:"last_refresh"`
}

// Refreshed reports whether this snapshot came from a completed collection
// cycle, as opposed to the empty placeholder served before the first one.
func (s *Snapshot) Refreshed() bool {
	return !s.LastRefresh.IsZero()
}

// Store publishes snapshots with a single atomic pointer swap, so a reader
// never observes a mix of old and new records. Exclusively written by the
// collector; read by any number of API calls.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store holding an empty, never-refreshed snapshot.
func NewStore() *Store {
	st := &Store{}
	st.current.Store(&Snapshot{})
	return st
}

// Get returns the most recently published snapshot. Callers must not mutate
// the returned records.
func (st *Store) Get() *Snapshot {
	return st.current.Load()
}

// Publish atomically replaces the current snapshot.
func (st *Store) Publish(snap *Snapshot) {
	st.current.Store(snap)
}

// FilterOpts selects a subset of a snapshot's records. Zero values match
// everything; Limit <= 0 means unlimited.
type FilterOpts struct {
	Source string
	Region string
	Limit  int
}

// Filter returns the records matching opts, preserving snapshot order.
// Matching is case-insensitive; the result is a fresh slice.
func Filter(snap *Snapshot, opts FilterOpts) []source.Record {
	var out []source.Record
	for _, rec := range snap.Records {
		if opts.Source != "" && !strings.EqualFold(string(rec.Source), opts.Source) {
			continue
		}
		if opts.Region != "" && !strings.EqualFold(rec.Region, opts.Region) {
			continue
		}
		out = append(out, rec)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out
}

// CountBySource tallies the snapshot's records per source.
func CountBySource(snap *Snapshot) map[source.SourceType]int {
	counts := make(map[source.SourceType]int)
	for _, rec := range snap.Records {
		counts[rec.Source]++
	}
	return counts
}

// CountByRegion tallies the snapshot's records per region.
func CountByRegion(snap *Snapshot) map[string]int {
	counts := make(map[string]int)
	for _, rec := range snap.Records {
		counts[rec.Region]++
	}
	return counts
}
