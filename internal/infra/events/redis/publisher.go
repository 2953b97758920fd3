// Package redis publishes committed room events on a Redis pub/sub channel.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/core"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "ffe.room_events"

var _ core.EventPublisher = (*Publisher)(nil)

// client is the subset of the go-redis client the publisher uses.
type client interface {
	Publish(ctx context.Context, channel string, message any) *goredis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *goredis.PubSub
	Close() error
}

// Config selects the Redis server and channel.
type Config struct {
	Addr        string
	Password    string
	DB          int
	Channel     string
	DialTimeout time.Duration
}

// Publisher implements core.EventPublisher over Redis PUBLISH.
type Publisher struct {
	rdb     client
	channel string
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis address required")
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: timeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newPublisher(rdb, cfg.Channel), nil
}

func newPublisher(rdb client, channel string) *Publisher {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{rdb: rdb, channel: channel}
}

// Channel returns the pub/sub channel events are written to.
func (p *Publisher) Channel() string { return p.channel }

// Publish encodes the event as JSON and publishes it.
func (p *Publisher) Publish(ctx context.Context, event core.RoomEvent) error {
	if p == nil || p.rdb == nil {
		return errors.New("redis publisher not initialized")
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode room event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}

// Forward subscribes to the channel and calls onEvent for every decodable
// event until ctx is cancelled. Undecodable payloads are passed to onError.
func (p *Publisher) Forward(ctx context.Context, onEvent func(core.RoomEvent), onError func(error)) error {
	if p == nil || p.rdb == nil {
		return errors.New("redis publisher not initialized")
	}
	if onEvent == nil {
		return errors.New("event callback required")
	}
	sub := p.rdb.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	go func() {
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				event, err := DecodeEvent(m.Payload)
				if err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				onEvent(event)
			}
		}
	}()
	return nil
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}

// DecodeEvent parses one published payload.
func DecodeEvent(payload string) (core.RoomEvent, error) {
	var event core.RoomEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return core.RoomEvent{}, fmt.Errorf("decode room event: %w", err)
	}
	if event.RoomID == "" || event.Kind == "" {
		return core.RoomEvent{}, errors.New("decode room event: room_id and kind required")
	}
	return event, nil
}
