package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"skycast/internal/weather"
)

const redisPrefix = "skycast:report:"

type Redis struct {
	client *redis.Client
}

func NewRedis(redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (*weather.Report, bool) {
	data, err := r.client.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis cache get %s: %v", key, err)
		}
		return nil, false
	}
	var report weather.Report
	if err := json.Unmarshal(data, &report); err != nil {
		log.Printf("Redis cache entry %s is corrupt: %v", key, err)
		return nil, false
	}
	return &report, true
}

func (r *Redis) Set(ctx context.Context, key string, report *weather.Report, ttl time.Duration) {
	if ttl <= 0 || report == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		log.Printf("Redis cache encode %s: %v", key, err)
		return
	}
	if err := r.client.Set(ctx, redisPrefix+key, data, ttl).Err(); err != nil {
		log.Printf("Redis cache set %s: %v", key, err)
	}
}

func (r *Redis) Flush(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("Redis cache scan: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Redis cache flush: %v", err)
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
