// internal/db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDB is the optional read cache in front of the table store. The
// server runs fine without it.
type RedisDB struct {
	Client *redis.Client
}

func NewRedisDB(redisURL string) (*RedisDB, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("[Redis] ✅ Connected to Redis")
	return &RedisDB{Client: client}, nil
}

func (r *RedisDB) Close() {
	if r.Client != nil {
		r.Client.Close()
		log.Println("[Redis] Connection closed")
	}
}

// SetCache stores a JSON-encoded value under a table-scoped key.
func (r *RedisDB) SetCache(ctx context.Context, table, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, cacheKey(table, key), data, expiration).Err()
}

// GetCache loads a cached value; redis.Nil means a miss.
func (r *RedisDB) GetCache(ctx context.Context, table, key string, dest interface{}) error {
	data, err := r.Client.Get(ctx, cacheKey(table, key)).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// InvalidateTable drops every cached read for a table; called on any write
// to it.
func (r *RedisDB) InvalidateTable(ctx context.Context, table string) error {
	keys, err := r.Client.Keys(ctx, cacheKey(table, "*")).Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.Client.Del(ctx, keys...).Err()
	}
	return nil
}

func cacheKey(table, key string) string {
	return "cache:" + table + ":" + key
}
