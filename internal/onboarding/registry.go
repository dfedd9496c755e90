package onboarding

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/cache"
	eventdomain "github.com/opencommune/commune/internal/event/domain"
	organizationdomain "github.com/opencommune/commune/internal/organization/domain"
	"go.uber.org/fx"
)

// Abandoned wizards expire after this long without activity.
const wizardTTL = time.Hour

// Registry hands out one wizard per user, resurrecting in-progress
// state across requests until the TTL lapses.
type Registry struct {
	mu     sync.Mutex
	store  cache.Cache[snowflake.ID, *Wizard]
	orgs   organizationdomain.Service
	events eventdomain.Service
}

func NewRegistry(orgs organizationdomain.Service, events eventdomain.Service) *Registry {
	return &Registry{
		store:  cache.NewTTLCache[snowflake.ID, *Wizard](),
		orgs:   orgs,
		events: events,
	}
}

// Get returns the user's wizard, creating one if none is active.
func (r *Registry) Get(userID snowflake.ID) *Wizard {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.store.Get(userID); ok {
		// Sliding expiry: touching the wizard keeps it alive.
		r.store.Set(userID, w, wizardTTL)
		return w
	}

	w := NewWizard(userID, r.orgs, r.events)
	r.store.Set(userID, w, wizardTTL)
	return w
}

// Discard drops the user's wizard, typically after Done.
func (r *Registry) Discard(userID snowflake.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store.Delete(userID)
}

var Module = fx.Module("onboarding",
	fx.Provide(NewRegistry),
)
