package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// TuningConfig holds the runtime knobs for the interactive cores: search
// debounce and caps, and the notification feed policy.
type TuningConfig struct {
	Search        SearchTuning       `mapstructure:"search"`
	Notifications NotificationTuning `mapstructure:"notifications"`
}

type SearchTuning struct {
	DebounceMS        int `mapstructure:"debounceMs"`
	OrgLimit          int `mapstructure:"orgLimit"`
	EventLimit        int `mapstructure:"eventLimit"`
	AnnouncementLimit int `mapstructure:"announcementLimit"`
}

type NotificationTuning struct {
	FeedLimit      int  `mapstructure:"feedLimit"`
	StrictMarkRead bool `mapstructure:"strictMarkRead"`
}

func (s SearchTuning) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

func DefaultTuningConfig() TuningConfig {
	return TuningConfig{
		Search: SearchTuning{
			DebounceMS:        300,
			OrgLimit:          4,
			EventLimit:        4,
			AnnouncementLimit: 3,
		},
		Notifications: NotificationTuning{
			FeedLimit:      10,
			StrictMarkRead: false,
		},
	}
}

// TuningHolder exposes an atomically swappable TuningConfig snapshot so the
// synchronizers never observe a half-reloaded config.
type TuningHolder struct {
	current atomic.Value // holds TuningConfig
}

func NewTuningHolder() (*TuningHolder, error) {
	v := viper.New()

	v.SetConfigName("commune")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/commune")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COMMUNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTuningConfig()
	v.SetDefault("tuning.search", defaults.Search)
	v.SetDefault("tuning.notifications", defaults.Notifications)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg TuningConfig
	if err := v.UnmarshalKey("tuning", &cfg); err != nil {
		return nil, err
	}
	if err := validateTuning(cfg); err != nil {
		return nil, err
	}

	holder := &TuningHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated TuningConfig
		if err := v.UnmarshalKey("tuning", &updated); err != nil {
			log.Printf("[tuning] reload failed: %v", err)
			return
		}
		if err := validateTuning(updated); err != nil {
			log.Printf("[tuning] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[tuning] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *TuningHolder) Load() TuningConfig {
	return h.current.Load().(TuningConfig)
}

// NewStaticTuningHolder returns a holder pinned to the given config. Test use.
func NewStaticTuningHolder(cfg TuningConfig) *TuningHolder {
	holder := &TuningHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateTuning(cfg TuningConfig) error {
	if cfg.Search.DebounceMS <= 0 {
		return errors.New("tuning.search.debounceMs must be positive")
	}
	if cfg.Search.OrgLimit <= 0 || cfg.Search.EventLimit <= 0 || cfg.Search.AnnouncementLimit <= 0 {
		return errors.New("tuning.search limits must be positive")
	}
	if cfg.Notifications.FeedLimit <= 0 {
		return errors.New("tuning.notifications.feedLimit must be positive")
	}
	return nil
}
