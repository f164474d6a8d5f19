package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisCacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type CacheManager struct {
	client  redisCacheClient
	enabled bool
}

func NewCacheManager(cfg *Config) *CacheManager {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &CacheManager{
		client:  client,
		enabled: cfg.CacheEnabled,
	}
}

func (cm *CacheManager) Key(prefix string, params ...string) string {
	key := fmt.Sprintf("lol:%s", prefix)
	for _, param := range params {
		key = fmt.Sprintf("%s:%s", key, param)
	}
	return key
}

func (cm *CacheManager) Get(ctx context.Context, key string, result interface{}) error {
	if !cm.enabled {
		return redis.Nil
	}

	data, err := cm.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), result)
}

func (cm *CacheManager) Set(ctx context.Context, key string, data interface{}, ttl time.Duration) error {
	if !cm.enabled {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return cm.client.Set(ctx, key, jsonData, ttl).Err()
}

func (cm *CacheManager) DeletePattern(ctx context.Context, pattern string) error {
	if !cm.enabled {
		return nil
	}

	keys, err := cm.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return cm.client.Del(ctx, keys...).Err()
	}

	return nil
}

// AcquireCooldown is the atomic read-and-set behind the sync cooldown.
// SET NX EX means concurrent triggers for the same player resolve to
// exactly one winner across every service instance. With the cache
// disabled the gate fails open: the cooldown is advisory, the sync path
// itself stays idempotent.
func (cm *CacheManager) AcquireCooldown(ctx context.Context, puuid string, window time.Duration) (bool, time.Duration, error) {
	if !cm.enabled {
		return true, 0, nil
	}

	key := cm.Key("cooldown", puuid)
	acquired, err := cm.client.SetNX(ctx, key, time.Now().Unix(), window).Result()
	if err != nil {
		return false, 0, err
	}
	if acquired {
		return true, 0, nil
	}

	remaining, err := cm.client.TTL(ctx, key).Result()
	if err != nil || remaining < 0 {
		remaining = window
	}
	return false, remaining, nil
}
