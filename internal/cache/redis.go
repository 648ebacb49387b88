package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "manual-rag:"
	redisDialCheck     = 5 * time.Second
	scanBatch          = 200
	subscriberBuffer   = 64
)

// RedisConfig describes where descriptions are shared between runs.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	// Prefix namespaces every key and channel; defaults to "manual-rag:".
	Prefix string
}

// RedisClient shares image descriptions across machines and carries
// progress events on pub/sub channels.
type RedisClient struct {
	rdb *redis.Client
	ns  string
}

// NewRedisClient connects and pings the server so that a bad address fails
// before any page is processed.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	ns := cfg.Prefix
	if ns == "" {
		ns = defaultRedisPrefix
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialCheck)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("reach redis at %s: %w", cfg.Addr, err)
	}
	return &RedisClient{rdb: rdb, ns: ns}, nil
}

func (c *RedisClient) key(k string) string { return c.ns + k }

func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("read cached description: %w", err)
	}
	return b, nil
}

func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("store description: %w", err)
	}
	return nil
}

func (c *RedisClient) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Unlink(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("drop description: %w", err)
	}
	return nil
}

// DeleteByPrefix scans the namespace and unlinks matches one scan page at a
// time, so clearing a large cache never holds every key in memory.
func (c *RedisClient) DeleteByPrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	pattern := c.key(prefix) + "*"
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Unlink(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("unlink %d keys: %w", len(keys), err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}

// Publish encodes message as JSON and sends it on channel within the
// client's namespace.
func (c *RedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := c.rdb.Publish(ctx, c.key(channel), payload).Err(); err != nil {
		return fmt.Errorf("publish on %s: %w", channel, err)
	}
	return nil
}

// Subscribe delivers raw payloads from channel. The returned channel closes
// once stop is called or the subscription drops.
func (c *RedisClient) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	ps := c.rdb.Subscribe(ctx, c.key(channel))
	// wait for the confirmation so no publish after return is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	out := make(chan []byte, subscriberBuffer)
	quit := make(chan struct{})
	go func() {
		defer close(out)
		in := ps.Channel()
		for {
			var msg *redis.Message
			var ok bool
			select {
			case <-quit:
				return
			case msg, ok = <-in:
				if !ok {
					return
				}
			}
			select {
			case out <- []byte(msg.Payload):
			case <-quit:
				return
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(quit)
			_ = ps.Close()
		})
	}
	return out, stop, nil
}
