package lib

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// RedisOnce claims keys with SET NX so a key is granted once per ttl.
type RedisOnce struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisOnce(rdb *redis.Client, prefix string) *RedisOnce {
	return &RedisOnce{rdb: rdb, prefix: prefix}
}

// Allow reports whether key was not claimed within the last ttl and claims it.
func (r *RedisOnce) Allow(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, r.prefix+key, 1, ttl).Result()
	if err != nil {
		log.Printf("[redis] Error claiming key %s: %s\n", key, err.Error())
		return false, err
	}
	return ok, nil
}

// Release drops a claim so a failed attempt can be retried.
func (r *RedisOnce) Release(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.prefix+key).Err()
}
