package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"snoozed/internal/events"
	"snoozed/internal/providers"
	"snoozed/internal/storage/interfaces"
	"snoozed/internal/structures"
)

const (
	defaultRedisPrefix = "snoozed:"
	changeChannel      = "changes"
)

type changeEvent struct {
	Instance string   `json:"instance"`
	Keys     []string `json:"keys"`
}

// RedisGateway stores each key as a redis string under a prefix. Writes are
// announced on a pub/sub channel so other daemons sharing the database see
// the change too.
type RedisGateway struct {
	client    *redis.Client
	prefix    string
	instance  string
	logger    providers.Logger
	listeners *events.Registry[interfaces.ChangeListener]
	pubsub    *redis.PubSub
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewRedisGateway(conf structures.RedisConfig, logger providers.Logger) (*RedisGateway, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        conf.Addr,
		Password:    conf.Password,
		DB:          conf.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", conf.Addr, err)
	}

	prefix := conf.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &RedisGateway{
		client:    client,
		prefix:    prefix,
		instance:  uuid.NewString(),
		logger:    logger,
		listeners: events.NewRegistry[interfaces.ChangeListener](),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	g.pubsub = client.Subscribe(ctx, g.key(changeChannel))
	if _, err := g.pubsub.Receive(ctx); err != nil {
		cancel()
		_ = g.pubsub.Close()
		_ = client.Close()
		return nil, fmt.Errorf("failed to subscribe to store changes: %w", err)
	}
	go g.watch()

	logger.Infof(providers.TypeApp, "Connected to redis store at %s (prefix %q)", conf.Addr, prefix)
	return g, nil
}

func (g *RedisGateway) key(name string) string {
	return g.prefix + name
}

func (g *RedisGateway) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = g.key(key)
	}
	values, err := g.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %v: %w", keys, err)
	}
	for i, val := range values {
		if s, ok := val.(string); ok {
			out[keys[i]] = []byte(s)
		}
	}
	return out, nil
}

func (g *RedisGateway) Set(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	keys := sortedKeys(values)
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Set(ctx, g.key(key), values[key], 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %v: %w", keys, err)
	}
	g.announce(ctx, keys)
	return nil
}

func (g *RedisGateway) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = g.key(key)
	}
	if err := g.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("failed to remove %v: %w", keys, err)
	}
	g.announce(ctx, keys)
	return nil
}

func (g *RedisGateway) OnChange(listener interfaces.ChangeListener) func() {
	return g.listeners.Subscribe(listener)
}

// announce notifies local listeners directly and remote ones through
// pub/sub. A failed publish only costs remote cache freshness.
func (g *RedisGateway) announce(ctx context.Context, keys []string) {
	g.notify(keys)

	payload, err := json.Marshal(changeEvent{Instance: g.instance, Keys: keys})
	if err != nil {
		return
	}
	if err := g.client.Publish(ctx, g.key(changeChannel), payload).Err(); err != nil {
		g.logger.Warnf(providers.TypeApp, "Unable to publish store change: %s", err)
	}
}

func (g *RedisGateway) watch() {
	defer close(g.done)
	for msg := range g.pubsub.Channel() {
		var event changeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			g.logger.Warnf(providers.TypeApp, "Ignoring malformed store change event: %s", err)
			continue
		}
		if event.Instance == g.instance {
			continue
		}
		g.notify(event.Keys)
	}
}

func (g *RedisGateway) Close() error {
	g.cancel()
	err := g.pubsub.Close()
	<-g.done
	return errors.Join(err, g.client.Close())
}

func (g *RedisGateway) notify(keys []string) {
	if len(keys) == 0 {
		return
	}
	g.listeners.Emit(func(fn interfaces.ChangeListener) { fn(keys) })
}
