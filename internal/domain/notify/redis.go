package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/rollcall/pkg/metrics"
)

// ChannelPrefix is prepended to the station id to form the PUBLISH channel.
const ChannelPrefix = "rollcall:outcomes:"

// RedisPublisher publishes outcomes as JSON on a per-station channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisPublisher publishes to rollcall:outcomes:<stationID>.
func NewRedisPublisher(client redis.UniversalClient, stationID string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: ChannelPrefix + stationID}
}

// Channel returns the PUBLISH channel.
func (p *RedisPublisher) Channel() string { return p.channel }

// Notify publishes o.
func (p *RedisPublisher) Notify(ctx context.Context, o Outcome) error {
	body, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		metrics.RecordNotifyError("redis")
		return fmt.Errorf("publish outcome: %w", err)
	}
	return nil
}
