// Package database holds the Redis connection and the in-flight guard built on it.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vm-pathways/internal/common/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client.
type RedisClient struct {
	Client *redis.Client
}

func NewRedis(cfg config.RedisConfig) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &RedisClient{Client: rdb}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// ==========================
// In-flight Guard
// ==========================

// ErrAlreadyHeld is returned by Acquire while another holder owns the key.
var ErrAlreadyHeld = errors.New("in-flight key already held")

// releaseScript deletes the key only if it still carries the holder's token, so an
// expired lease never removes a newer holder's key.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// InflightGuard allows at most one holder per id at a time. Keys expire after ttl so a
// crashed holder cannot block an id forever.
type InflightGuard struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	newToken func() string
}

func NewInflightGuard(client *redis.Client, prefix string, ttl time.Duration) *InflightGuard {
	return &InflightGuard{
		client:   client,
		prefix:   prefix,
		ttl:      ttl,
		newToken: uuid.NewString,
	}
}

// Key returns the Redis key guarding id.
func (g *InflightGuard) Key(id string) string {
	return g.prefix + id
}

// Lease is a held in-flight key.
type Lease struct {
	Key   string
	token string
	guard *InflightGuard
}

// Acquire claims id with SET NX. It returns ErrAlreadyHeld when the id is taken.
func (g *InflightGuard) Acquire(ctx context.Context, id string) (*Lease, error) {
	key := g.Key(id)
	token := g.newToken()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire %s: %w", key, ErrAlreadyHeld)
	}
	return &Lease{Key: key, token: token, guard: g}, nil
}

// Release frees the key if this lease still owns it.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, l.guard.client, []string{l.Key}, l.token).Err(); err != nil {
		return fmt.Errorf("release %s: %w", l.Key, err)
	}
	return nil
}

// Ping checks the connection the guard uses.
func (g *InflightGuard) Ping(ctx context.Context) error {
	if err := g.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
