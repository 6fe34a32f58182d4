package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/gazeta/pkg/gazeta/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu     sync.RWMutex
	events map[string]store.Event
	runs   map[string]store.RunRecord
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		events: make(map[string]store.Event),
		runs:   make(map[string]store.RunRecord),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertEvent stores e unless an event with the same ID exists.
func (s *Store) UpsertEvent(ctx context.Context, e store.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; ok {
		return false, nil
	}
	s.events[e.ID] = e
	return true, nil
}

// GetEvent returns an event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (store.Event, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	return e, ok, nil
}

// ListEvents returns matching events, earliest event date first.
func (s *Store) ListEvents(ctx context.Context, f store.Filter) ([]store.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	municipality := strings.ToUpper(strings.TrimSpace(f.Municipality))

	var results []store.Event
	for _, e := range s.events {
		if municipality != "" && e.Municipality != municipality {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if !f.From.IsZero() && e.EventDate.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !e.EventDate.Before(f.To) {
			continue
		}
		results = append(results, e)
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].EventDate.Equal(results[j].EventDate) {
			return results[i].EventDate.Before(results[j].EventDate)
		}
		return results[i].ID < results[j].ID
	})

	if f.Limit > 0 && len(results) > f.Limit {
		results = results[:f.Limit]
	}
	return results, nil
}

// CountEvents returns the number of stored events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.events)), nil
}

// RecordRun inserts or replaces a run record.
func (s *Store) RecordRun(ctx context.Context, r store.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
	return nil
}

// GetRun returns a run record by ID.
func (s *Store) GetRun(ctx context.Context, id string) (store.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	return r, ok, nil
}
