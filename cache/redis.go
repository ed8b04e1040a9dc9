package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// RedisGradeCache stores reports as sonic-encoded strings.
// A per-course set tracks keys so a weight change can drop every report of the course.
type RedisGradeCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New returns the grade cache for url: Redis when a URL is configured, otherwise
// NopGradeCache so every report is computed from the database.
func New(ctx context.Context, url string, ttl time.Duration) (GradeCache, error) {
	if url == "" {
		return NopGradeCache{}, nil
	}
	return NewRedisGradeCache(ctx, url, ttl)
}

// NewRedisGradeCache connects and pings the server.
func NewRedisGradeCache(ctx context.Context, url string, ttl time.Duration) (*RedisGradeCache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return &RedisGradeCache{Client: client, TTL: ttl}, nil
}

func (r *RedisGradeCache) Get(ctx context.Context, studentID, courseID uint, dest interface{}) (bool, error) {
	raw, err := r.Client.Get(ctx, Key(studentID, courseID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cached grades: %w", err)
	}
	if err := sonic.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached grades: %w", err)
	}
	return true, nil
}

func (r *RedisGradeCache) Set(ctx context.Context, studentID, courseID uint, value interface{}) error {
	payload, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode grades: %w", err)
	}
	key := Key(studentID, courseID)
	indexKey := courseIndexKey(courseID)

	_, err = r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, payload, r.TTL)
		pipe.SAdd(ctx, indexKey, key)
		if r.TTL > 0 {
			pipe.Expire(ctx, indexKey, r.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write cached grades: %w", err)
	}
	return nil
}

func (r *RedisGradeCache) Invalidate(ctx context.Context, studentID, courseID uint) error {
	key := Key(studentID, courseID)
	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, courseIndexKey(courseID), key)
		return nil
	})
	return err
}

func (r *RedisGradeCache) InvalidateCourse(ctx context.Context, courseID uint) error {
	indexKey := courseIndexKey(courseID)
	keys, err := r.Client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("list cached grades: %w", err)
	}
	keys = append(keys, indexKey)
	return r.Client.Del(ctx, keys...).Err()
}

// Close shuts down the cache client.
func (r *RedisGradeCache) Close() error {
	return r.Client.Close()
}

// HealthCheck verifies the cache connection is alive.
func (r *RedisGradeCache) HealthCheck(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
