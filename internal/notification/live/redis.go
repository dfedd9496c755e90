package live

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const fanoutChannel = "commune:notification_changes"

// Publisher is what services see. The local Hub satisfies it for a
// single instance; RedisFanout satisfies it for a fleet.
type Publisher interface {
	Publish(userID string, event ChangeEvent)
}

type fanoutEnvelope struct {
	UserID string      `json:"user_id"`
	Event  ChangeEvent `json:"event"`
}

// RedisFanout republishes change pings through a redis channel so that a
// subscriber connected to one instance hears about writes on another.
// Local delivery still goes through the hub on the receiving side only,
// keeping delivery exactly-once per instance.
type RedisFanout struct {
	hub    *Hub
	client *redis.Client
	cancel context.CancelFunc
}

func NewRedisFanout(hub *Hub, client *redis.Client) *RedisFanout {
	return &RedisFanout{hub: hub, client: client}
}

func (f *RedisFanout) Publish(userID string, event ChangeEvent) {
	if f.client == nil {
		f.hub.Publish(userID, event)
		return
	}

	payload, err := json.Marshal(fanoutEnvelope{UserID: userID, Event: event})
	if err != nil {
		f.hub.Publish(userID, event)
		return
	}

	if err := f.client.Publish(context.Background(), fanoutChannel, payload).Err(); err != nil {
		zap.L().Warn("failed to publish notification change to redis", zap.Error(err))
		f.hub.Publish(userID, event)
	}
}

// Start begins relaying redis messages into the local hub. No-op when
// redis is not configured.
func (f *RedisFanout) Start() {
	if f.client == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	sub := f.client.Subscribe(ctx, fanoutChannel)
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var envelope fanoutEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
					zap.L().Warn("dropping malformed notification change", zap.Error(err))
					continue
				}
				f.hub.Publish(envelope.UserID, envelope.Event)
			}
		}
	}()
}

func (f *RedisFanout) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
}
