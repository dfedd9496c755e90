package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	assert.Equal(t, 300*time.Millisecond, cfg.Search.Debounce())
	assert.Equal(t, 4, cfg.Search.OrgLimit)
	assert.Equal(t, 4, cfg.Search.EventLimit)
	assert.Equal(t, 3, cfg.Search.AnnouncementLimit)
	assert.Equal(t, 10, cfg.Notifications.FeedLimit)
	assert.False(t, cfg.Notifications.StrictMarkRead)

	assert.NoError(t, validateTuning(cfg))
}

func TestValidateTuningRejectsBadValues(t *testing.T) {
	base := DefaultTuningConfig()

	cfg := base
	cfg.Search.DebounceMS = 0
	assert.Error(t, validateTuning(cfg))

	cfg = base
	cfg.Search.OrgLimit = -1
	assert.Error(t, validateTuning(cfg))

	cfg = base
	cfg.Notifications.FeedLimit = 0
	assert.Error(t, validateTuning(cfg))
}

func TestStaticTuningHolder(t *testing.T) {
	cfg := DefaultTuningConfig()
	cfg.Search.DebounceMS = 150

	holder := NewStaticTuningHolder(cfg)
	assert.Equal(t, 150*time.Millisecond, holder.Load().Search.Debounce())
}
