package feed

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/notification/domain"
	"github.com/opencommune/commune/internal/notification/live"
	"go.uber.org/zap"
)

// Item is one row of a user's notification feed.
type Item struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is a point-in-time view of the feed.
type Snapshot struct {
	Items       []Item `json:"items"`
	UnreadCount int    `json:"unread_count"`
}

// Feed keeps a user's recent notifications in sync with the store. It
// fetches once on construction, then refetches whenever the hub pings
// the user. Mark-as-read applies optimistically so the unread badge
// drops immediately; the store write follows, and in strict mode a
// failed write triggers a refetch to restore server truth.
type Feed struct {
	mu          sync.Mutex
	svc         domain.Service
	userID      snowflake.ID
	limit       int
	strict      bool
	items       []Item
	unreadCount int
	sub         *live.Subscription
	cancel      context.CancelFunc
	done        chan struct{}
}

type Options struct {
	Limit  int
	Strict bool
}

// New builds a feed, performs the initial fetch, and starts listening
// for change pings. The feed stops when ctx is cancelled or Close is
// called.
func New(ctx context.Context, svc domain.Service, hub *live.Hub, userID snowflake.ID, opts Options) (*Feed, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	f := &Feed{
		svc:    svc,
		userID: userID,
		limit:  limit,
		strict: opts.Strict,
		done:   make(chan struct{}),
	}

	if err := f.refetch(ctx); err != nil {
		return nil, err
	}

	sub, backlog, err := hub.Subscribe(userID.String())
	if err != nil {
		return nil, err
	}
	f.sub = sub

	// Anything that landed between the fetch and the subscribe shows
	// up in the backlog; one more refetch covers it.
	if len(backlog) > 0 {
		if err := f.refetch(ctx); err != nil {
			zap.L().Warn("feed backlog refetch failed", zap.Error(err))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	go f.run(runCtx)

	return f, nil
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.done)
	defer f.sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-f.sub.Events():
			if !ok {
				return
			}
			// Drain bursts so N pings cost one refetch.
			drained := false
			for !drained {
				select {
				case _, ok := <-f.sub.Events():
					if !ok {
						return
					}
				default:
					drained = true
				}
			}
			if err := f.refetch(ctx); err != nil && ctx.Err() == nil {
				zap.L().Warn("feed refetch failed", zap.Error(err))
			}
		}
	}
}

func (f *Feed) refetch(ctx context.Context) error {
	items, err := f.svc.ListRecent(ctx, f.userID, f.limit)
	if err != nil {
		return err
	}

	// The badge counts unread entries in the held feed, nothing more; a
	// store-wide count could disagree with what the user sees.
	fresh := make([]Item, 0, len(items))
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
		fresh = append(fresh, Item{
			ID:        n.ID,
			Kind:      n.Kind,
			Title:     n.Title,
			Body:      n.Body,
			Link:      n.Link,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}

	f.mu.Lock()
	f.items = fresh
	f.unreadCount = unread
	f.mu.Unlock()
	return nil
}

// MarkAsRead flips the item locally before writing through. The badge
// never goes negative even if the local view is stale.
func (f *Feed) MarkAsRead(ctx context.Context, id string) error {
	f.mu.Lock()
	for i := range f.items {
		if f.items[i].ID == id && !f.items[i].Read {
			f.items[i].Read = true
			if f.unreadCount > 0 {
				f.unreadCount--
			}
			break
		}
	}
	f.mu.Unlock()

	if err := f.svc.MarkRead(ctx, f.userID, id); err != nil {
		if f.strict {
			if rerr := f.refetch(ctx); rerr != nil {
				zap.L().Warn("feed rollback refetch failed", zap.Error(rerr))
			}
			return err
		}
		zap.L().Warn("mark-as-read write failed, keeping optimistic state",
			zap.String("notification_id", id),
			zap.Error(err),
		)
	}
	return nil
}

func (f *Feed) MarkAllAsRead(ctx context.Context) error {
	f.mu.Lock()
	for i := range f.items {
		f.items[i].Read = true
	}
	f.unreadCount = 0
	f.mu.Unlock()

	if err := f.svc.MarkAllRead(ctx, f.userID); err != nil {
		if f.strict {
			if rerr := f.refetch(ctx); rerr != nil {
				zap.L().Warn("feed rollback refetch failed", zap.Error(rerr))
			}
			return err
		}
		zap.L().Warn("mark-all-read write failed, keeping optimistic state", zap.Error(err))
	}
	return nil
}

// Click marks the item read and returns its link for navigation.
func (f *Feed) Click(ctx context.Context, id string) (string, error) {
	f.mu.Lock()
	var link string
	for i := range f.items {
		if f.items[i].ID == id {
			link = f.items[i].Link
			break
		}
	}
	f.mu.Unlock()

	if err := f.MarkAsRead(ctx, id); err != nil {
		return "", err
	}
	return link, nil
}

func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := append([]Item(nil), f.items...)
	return Snapshot{
		Items:       items,
		UnreadCount: f.unreadCount,
	}
}

func (f *Feed) Close() {
	if f.cancel != nil {
		f.cancel()
	}
	<-f.done
}
