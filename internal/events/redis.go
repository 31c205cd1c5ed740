package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// RedisPublisher drains a bus subscription into a redis pub/sub channel so an
// out-of-process host can consume the event stream.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	bus     *Bus
}

// NewRedisPublisher wires a publisher to the bus. The default channel is
// "crossbook.events".
func NewRedisPublisher(client redis.UniversalClient, bus *Bus, channel string) *RedisPublisher {
	if channel == "" {
		channel = "crossbook.events"
	}
	return &RedisPublisher{client: client, channel: channel, bus: bus}
}

// Run subscribes to the bus and publishes until ctx is cancelled. Publish
// failures are logged and the stream continues; the event feed is best-effort
// monitoring, never control flow.
func (p *RedisPublisher) Run(ctx context.Context) error {
	ch, cancel := p.bus.Subscribe(256)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			if err := p.publish(ctx, evt); err != nil {
				log.Warn().Err(err).Str("type", string(evt.Type)).Msg("redis event publish failed")
			}
		}
	}
}

func (p *RedisPublisher) publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.ID, err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}
