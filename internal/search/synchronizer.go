package search

import (
	"context"
	"strings"
	"sync"

	"github.com/opencommune/commune/internal/config"
)

// Snapshot is the current state of an interactive search session.
type Snapshot struct {
	Query     string   `json:"query"`
	Results   []Result `json:"results"`
	Searching bool     `json:"searching"`
}

// Synchronizer drives one interactive search session. Keystrokes arrive
// via SetQuery; a debounce window coalesces them into one dispatch, and
// a generation counter makes sure a slow response for an old query can
// never overwrite results for a newer one.
type Synchronizer struct {
	mu        sync.Mutex
	searcher  *Searcher
	tuning    *config.TuningHolder
	debounce  debouncer
	ctx       context.Context
	cancel    context.CancelFunc
	query     string
	results   []Result
	searching bool
	latest    uint64
	updates   chan Snapshot
	onStale   func()
}

func NewSynchronizer(ctx context.Context, searcher *Searcher, tuning *config.TuningHolder) *Synchronizer {
	runCtx, cancel := context.WithCancel(ctx)
	return &Synchronizer{
		searcher: searcher,
		tuning:   tuning,
		ctx:      runCtx,
		cancel:   cancel,
		updates:  make(chan Snapshot, 16),
	}
}

// SetQuery records the latest input. A query below the minimum length
// clears results immediately and invalidates anything in flight; a
// longer one restarts the debounce window.
func (s *Synchronizer) SetQuery(query string) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	s.query = query

	if len([]rune(query)) < MinQueryLength {
		s.debounce.Cancel()
		s.latest++
		s.results = nil
		s.searching = false
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.emit(snap)
		return
	}

	s.searching = true
	delay := s.tuning.Load().Search.Debounce()
	s.mu.Unlock()

	s.debounce.Reset(delay, func() { s.dispatch(query) })
}

func (s *Synchronizer) dispatch(query string) {
	s.mu.Lock()
	// A newer keystroke may have landed between the timer firing and
	// this goroutine taking the lock.
	if s.query != query {
		s.mu.Unlock()
		return
	}
	s.latest++
	generation := s.latest
	s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}

	results := s.searcher.Search(s.ctx, query)

	s.mu.Lock()
	if generation != s.latest {
		// Stale response; a newer dispatch owns the results now.
		onStale := s.onStale
		s.mu.Unlock()
		if onStale != nil {
			onStale()
		}
		return
	}
	s.results = results
	s.searching = false
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(snap)
}

// OnStaleDiscard registers a callback fired each time a late response
// is dropped in favor of a newer query's results.
func (s *Synchronizer) OnStaleDiscard(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStale = fn
}

func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Updates streams snapshots as results land. Slow consumers miss
// intermediate snapshots, never the latest state: Snapshot() always has
// current truth.
func (s *Synchronizer) Updates() <-chan Snapshot {
	return s.updates
}

func (s *Synchronizer) Close() {
	s.debounce.Cancel()
	s.cancel()
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	results := append([]Result(nil), s.results...)
	return Snapshot{
		Query:     s.query,
		Results:   results,
		Searching: s.searching,
	}
}

func (s *Synchronizer) emit(snap Snapshot) {
	select {
	case s.updates <- snap:
	default:
	}
}
