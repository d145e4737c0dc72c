package socket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Marga-Ghale/ora-discuss/internal/logger"
)

const DefaultRelayChannel = "ora-discuss:events"

type relayFrame struct {
	Room string          `json:"room"`
	Data json.RawMessage `json:"data"`
}

// RedisRelay shares fan-out between API instances over a redis pub/sub
// channel. Every instance, the publisher included, delivers from Run.
type RedisRelay struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

func NewRedisRelay(client *redis.Client, channel string) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{client: client, channel: channel, log: logger.Component("relay")}
}

func (r *RedisRelay) Publish(ctx context.Context, room string, data []byte) error {
	frame, err := json.Marshal(relayFrame{Room: room, Data: data})
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, frame).Err(); err != nil {
		return fmt.Errorf("relay publish: %w", err)
	}
	return nil
}

// Run subscribes to the relay channel and delivers frames into hub until ctx
// ends or the subscription breaks.
func (r *RedisRelay) Run(ctx context.Context, hub *Hub) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("relay subscribe: %w", err)
	}
	r.log.Info().Str("channel", r.channel).Msg("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("relay channel closed")
			}
			var frame relayFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				r.log.Warn().Err(err).Msg("dropping malformed relay frame")
				continue
			}
			hub.Deliver(frame.Room, frame.Data)
		}
	}
}
