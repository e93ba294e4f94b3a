package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aqualyx/geoanalyze/pkg/types"
)

// Entry is an analysed batch together with the time it was stored.
type Entry struct {
	Batch     *types.Batch
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory batch store, keyed by batch ID.
// A background goroutine (Run) periodically evicts entries older than the
// configured TTL. A TTL of zero keeps batches until they are deleted.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// TTL returns the retention period.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put stores or replaces the batch under b.ID.
// Callers must not modify b after calling Put.
func (s *Store) Put(b *types.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[b.ID] = &Entry{
		Batch:     b,
		UpdatedAt: s.now(),
	}
}

// Get returns the live Entry for id. Entries past their TTL are reported as
// missing even before Evict removes them.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	if !ok || !s.live(e, s.now()) {
		return nil, false
	}
	return e, true
}

// Delete removes the batch with the given id and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[id]
	delete(s.data, id)
	return ok
}

// List returns all live entries, newest first.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	now := s.now()
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if s.live(e, now) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Batch.ID < out[j].Batch.ID
	})
	return out
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.data {
		if !s.live(e, now) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

func (s *Store) live(e *Entry, now time.Time) bool {
	return s.ttl <= 0 || e.UpdatedAt.After(now.Add(-s.ttl))
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second). Run blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		<-ctx.Done()
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted expired batches", "count", n)
			}
		}
	}
}
