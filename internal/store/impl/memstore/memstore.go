package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"nuha.dev/geotrack/internal/store"
	"nuha.dev/geotrack/internal/util"
)

// Store keeps everything in process memory. Used by tests and as a
// throwaway backend when no database is around.
type Store struct {
	mu      sync.RWMutex
	current map[string]store.CurrentPosition
	history map[string][]store.HistoryEntry
}

func NewStore() *Store {
	st := &Store{}
	st.current = make(map[string]store.CurrentPosition)
	st.history = make(map[string][]store.HistoryEntry)
	return st
}

func (st *Store) PutLocation(ctx context.Context, subject string, lat float64, lon float64, srvt time.Time) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.current[subject] = store.CurrentPosition{Subject: subject, Latitude: lat, Longitude: lon, ServerTime: srvt}
	st.history[subject] = append(st.history[subject],
		store.HistoryEntry{Id: util.GenUUID(), Latitude: lat, Longitude: lon, ServerTime: srvt})
	return nil
}

func (st *Store) History(ctx context.Context, subject string) ([]store.HistoryEntry, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	h := st.history[subject]
	if len(h) == 0 {
		return nil, store.ErrNotFound
	}
	out := make([]store.HistoryEntry, len(h))
	copy(out, h)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ServerTime.Before(out[j].ServerTime)
	})
	return out, nil
}

func (st *Store) Current(ctx context.Context, subject string) (store.CurrentPosition, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	cur, ok := st.current[subject]
	if !ok {
		return store.CurrentPosition{Subject: subject}, store.ErrNotFound
	}
	return cur, nil
}
