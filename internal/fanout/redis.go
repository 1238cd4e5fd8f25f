package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/cwrk-planet/chat-service/pkg/logger"
)

const DefaultChannel = "chat:events"

// RedisBroker - pub/sub через Redis, события в JSON.
type RedisBroker struct {
	client  *redis.Client
	channel string
	log     *slog.Logger
}

func NewRedisBroker(ctx context.Context, redisURL, channel string, log *slog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisBroker(client, channel, log), nil
}

func newRedisBroker(client *redis.Client, channel string, log *slog.Logger) *RedisBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroker{client: client, channel: channel, log: logger.Component(log, "fanout")}
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, h Handler) error {
	ps := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = ps.Close() }()

	// ждём подтверждения подписки, иначе ранние Publish потеряются
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("fanout: bad event", "err", err)
				continue
			}
			h(ev)
		}
	}
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
