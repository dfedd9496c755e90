package ratelimit

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

const keySearchUser = "search:user:%s"

// Live search fires a query per keystroke batch; the server-side limit
// only needs to catch runaway clients, so the ceiling is generous.
const (
	searchRate  = 5.0
	searchBurst = 20
)

// SearchLimiter throttles per-user search traffic. Without redis it
// admits everything; the debounce on the client side is the primary
// control anyway.
type SearchLimiter struct {
	bucket *TokenBucket
}

func NewSearchLimiter(client *redis.Client) *SearchLimiter {
	return &SearchLimiter{bucket: NewTokenBucket(client)}
}

func (l *SearchLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	if l == nil || l.bucket == nil {
		return true, nil
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keySearchUser, userID), searchRate, searchBurst)
	if err != nil {
		// Redis trouble should not take search down with it.
		return true, nil
	}
	return res.Allowed, nil
}
