package feed

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/config"
	"github.com/opencommune/commune/internal/notification/domain"
	"github.com/opencommune/commune/internal/notification/live"
)

const (
	feedIdleTTL   = time.Hour
	sweepInterval = 10 * time.Minute
)

type registryEntry struct {
	feed     *Feed
	lastSeen time.Time
}

// Registry keeps one live feed per active user. Feeds outlive the
// requests that touch them; a janitor closes feeds nobody has used for
// a while so their hub subscriptions do not pile up.
type Registry struct {
	mu      sync.Mutex
	svc     domain.Service
	hub     *live.Hub
	tuning  *config.TuningHolder
	entries map[snowflake.ID]*registryEntry

	stop chan struct{}
	done chan struct{}
}

func NewRegistry(svc domain.Service, hub *live.Hub, tuning *config.TuningHolder) *Registry {
	return &Registry{
		svc:     svc,
		hub:     hub,
		tuning:  tuning,
		entries: make(map[snowflake.ID]*registryEntry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Get returns the user's feed, building one on first use.
func (r *Registry) Get(userID snowflake.ID) (*Feed, error) {
	r.mu.Lock()
	if e, ok := r.entries[userID]; ok {
		e.lastSeen = time.Now()
		f := e.feed
		r.mu.Unlock()
		return f, nil
	}
	r.mu.Unlock()

	policy := r.tuning.Load().Notifications
	// The feed must survive the request that created it, so it is not
	// tied to the request context.
	f, err := New(context.Background(), r.svc, r.hub, userID, Options{
		Limit:  policy.FeedLimit,
		Strict: policy.StrictMarkRead,
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if e, ok := r.entries[userID]; ok {
		// Lost the race; keep the first one.
		e.lastSeen = time.Now()
		existing := e.feed
		r.mu.Unlock()
		f.Close()
		return existing, nil
	}
	r.entries[userID] = &registryEntry{feed: f, lastSeen: time.Now()}
	r.mu.Unlock()
	return f, nil
}

// Discard closes and removes the user's feed.
func (r *Registry) Discard(userID snowflake.ID) {
	r.mu.Lock()
	e, ok := r.entries[userID]
	if ok {
		delete(r.entries, userID)
	}
	r.mu.Unlock()
	if ok {
		e.feed.Close()
	}
}

// Start launches the idle-feed janitor.
func (r *Registry) Start() error {
	go r.sweepLoop()
	return nil
}

// Stop halts the janitor and closes every feed.
func (r *Registry) Stop() error {
	close(r.stop)
	<-r.done

	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[snowflake.ID]*registryEntry)
	r.mu.Unlock()

	for _, e := range entries {
		e.feed.Close()
	}
	return nil
}

func (r *Registry) sweepLoop() {
	defer close(r.done)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweep(time.Now())
		}
	}
}

func (r *Registry) sweep(now time.Time) {
	var idle []*registryEntry
	r.mu.Lock()
	for userID, e := range r.entries {
		if now.Sub(e.lastSeen) > feedIdleTTL {
			idle = append(idle, e)
			delete(r.entries, userID)
		}
	}
	r.mu.Unlock()

	for _, e := range idle {
		e.feed.Close()
	}
}
