package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	pkgredis "github.com/Adithya-Monish-Kumar-K/document-query/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/resilience"
)

// errMiss is returned by a Backend when the key is absent.
var errMiss = errors.New("cache miss")

// Backend stores encoded search results.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
	Name() string
}

// RedisBackend stores results in Redis behind a circuit breaker so that an
// unreachable server is not hit on every query. Misses do not count against
// the breaker.
type RedisBackend struct {
	client  *pkgredis.Client
	breaker *resilience.CircuitBreaker
}

func NewRedisBackend(client *pkgredis.Client, cfg resilience.CircuitBreakerConfig) *RedisBackend {
	cfg.IsFailure = func(err error) bool { return err != nil && !pkgredis.IsNilError(err) }
	return &RedisBackend{
		client:  client,
		breaker: resilience.NewCircuitBreaker("redis-cache", cfg),
	}
}

func (b *RedisBackend) Name() string { return "redis" }

// Breaker reports the state of the circuit in front of Redis.
func (b *RedisBackend) Breaker() resilience.Snapshot { return b.breaker.Snapshot() }

func (b *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := b.breaker.Execute(func() error {
		v, err := b.client.Get(ctx, key)
		value = v
		return err
	})
	if pkgredis.IsNilError(err) {
		return "", errMiss
	}
	return value, err
}

func (b *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return b.breaker.Execute(func() error {
		return b.client.Set(ctx, key, value, ttl)
	})
}

func (b *RedisBackend) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	err := b.breaker.Execute(func() error {
		n, err := b.client.FlushByPattern(ctx, pattern)
		deleted = n
		return err
	})
	return deleted, err
}

// LocalBackend keeps results in process memory. It is used when Redis is
// disabled.
type LocalBackend struct {
	c *gocache.Cache
}

func NewLocalBackend(ttl time.Duration) *LocalBackend {
	return &LocalBackend{c: gocache.New(ttl, 2*ttl)}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) Get(_ context.Context, key string) (string, error) {
	v, ok := b.c.Get(key)
	if !ok {
		return "", errMiss
	}
	return v.(string), nil
}

func (b *LocalBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	b.c.Set(key, value, ttl)
	return nil
}

// FlushByPattern supports trailing-star prefix patterns only.
func (b *LocalBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var deleted int64
	for key := range b.c.Items() {
		if strings.HasPrefix(key, prefix) {
			b.c.Delete(key)
			deleted++
		}
	}
	return deleted, nil
}
