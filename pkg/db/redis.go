package db

import (
	"strings"

	"github.com/opencommune/commune/internal/config"
	redis "github.com/redis/go-redis/v9"
)

// NewRedis returns a client for the configured redis, or nil when no
// address is set. Consumers treat a nil client as "feature disabled".
func NewRedis(cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
