package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/food-orders/internal/domain"
)

const (
	defaultBaseTTL = 15 * time.Minute
	versionTTL     = 24 * time.Hour
)

// setIfVersion writes the cart only while the version key still holds the
// value the caller read. A missing version key counts as 0.
var setIfVersion = redis.NewScript(`
if (redis.call('GET', KEYS[2]) or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:    client,
		baseTTL:   defaultBaseTTL,
		maxJitter: 5,
	}
}

// ConnectRedis pings the server before handing the client out.
func ConnectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// RedisCache stores whole carts as JSON with a jittered TTL so entries written
// together do not expire together.
type RedisCache struct {
	client    *redis.Client
	baseTTL   time.Duration
	maxJitter int // minutes
}

func (r *RedisCache) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (r *RedisCache) Version(ctx context.Context, sessionID string) (int64, error) {
	v, err := r.client.Get(ctx, versionKey(sessionID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return v, nil
}

func (r *RedisCache) Set(ctx context.Context, sessionID string, cart *domain.Cart, version int64) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	ttl := r.baseTTL + time.Duration(rand.Intn(r.maxJitter))*time.Minute
	keys := []string{cacheKey(sessionID), versionKey(sessionID)}
	written, err := setIfVersion.Run(ctx, r.client, keys, strconv.FormatInt(version, 10), payload, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if written == 0 {
		return ErrStaleFill
	}
	return nil
}

// Delete drops the cached cart and bumps the version in one transaction.
func (r *RedisCache) Delete(ctx context.Context, sessionID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, cacheKey(sessionID))
		pipe.Incr(ctx, versionKey(sessionID))
		pipe.Expire(ctx, versionKey(sessionID), versionTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

func versionKey(sessionID string) string {
	return fmt.Sprintf("cart:%s:version", sessionID)
}
