package live

import (
	"errors"
	"strings"
	"sync"
	"time"
)

const (
	ChangeCreated     = "created"
	ChangeRead        = "read"
	ChangeReadAll     = "read_all"
	ChangeInvalidated = "invalidated"
)

const (
	DefaultBacklogSize      = 20
	DefaultSubscriberBuffer = 16
)

// ChangeEvent is a lightweight ping telling a subscriber that its
// notification set changed. Subscribers refetch; the ping carries no
// notification content.
type ChangeEvent struct {
	Kind           string    `json:"kind"`
	NotificationID string    `json:"notification_id,omitempty"`
	At             time.Time `json:"at"`
}

// Hub fans ChangeEvents out to per-user subscriber streams. Slow
// subscribers lose pings rather than block publishers; a lost ping only
// delays the refetch until the next one.
type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	backlogSize      int
	subscriberBuffer int
}

type stream struct {
	mu      sync.Mutex
	backlog []ChangeEvent
	subs    map[uint64]chan ChangeEvent
	nextID  uint64
}

type Subscription struct {
	hub    *Hub
	userID string
	id     uint64
	ch     chan ChangeEvent
	once   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		backlogSize:      DefaultBacklogSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(userID string, event ChangeEvent) {
	if h == nil {
		return
	}
	key := strings.TrimSpace(userID)
	if key == "" {
		return
	}
	h.mu.RLock()
	stream := h.streams[key]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	stream.backlog = append(stream.backlog, event)
	if len(stream.backlog) > h.backlogSize {
		stream.backlog = stream.backlog[len(stream.backlog)-h.backlogSize:]
	}
	subs := make([]chan ChangeEvent, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) Subscribe(userID string) (*Subscription, []ChangeEvent, error) {
	if h == nil {
		return nil, nil, errors.New("hub_unavailable")
	}
	key := strings.TrimSpace(userID)
	if key == "" {
		return nil, nil, errors.New("invalid_user_id")
	}

	stream := h.ensureStream(key)
	stream.mu.Lock()
	if stream.subs == nil {
		stream.subs = make(map[uint64]chan ChangeEvent)
	}
	id := stream.nextID
	stream.nextID++
	ch := make(chan ChangeEvent, h.subscriberBuffer)
	stream.subs[id] = ch
	backlog := append([]ChangeEvent(nil), stream.backlog...)
	stream.mu.Unlock()

	return &Subscription{
		hub:    h,
		userID: key,
		id:     id,
		ch:     ch,
	}, backlog, nil
}

func (h *Hub) ensureStream(userID string) *stream {
	h.mu.RLock()
	current := h.streams[userID]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[userID]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan ChangeEvent)}
		h.streams[userID] = current
	}
	return current
}

func (h *Hub) unsubscribe(userID string, id uint64) {
	if h == nil {
		return
	}
	key := strings.TrimSpace(userID)
	if key == "" {
		return
	}

	h.mu.RLock()
	stream := h.streams[key]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	delete(stream.subs, id)
	remaining := len(stream.subs)
	stream.mu.Unlock()
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	current := h.streams[key]
	if current != stream {
		h.mu.Unlock()
		return
	}
	stream.mu.Lock()
	empty := len(stream.subs) == 0
	stream.mu.Unlock()
	if empty {
		delete(h.streams, key)
	}
	h.mu.Unlock()
}

func (s *Subscription) Events() <-chan ChangeEvent {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.userID, s.id)
	})
}
