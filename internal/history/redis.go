package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ashureev/classpulse/internal/domain"
	"github.com/redis/go-redis/v9"
)

// recordsKey is the sorted set holding poll records, scored by completion
// time so a reverse range yields most-recent-first.
const recordsKey = "classpulse:poll_records"

// RedisStore implements Store on a Redis sorted set.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedis creates a Redis-backed poll archive from a redis:// URL.
func NewRedis(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.MaxRetries = 3

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

// Append stores the record as a JSON member scored by completion time.
func (s *RedisStore) Append(ctx context.Context, record domain.PollRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal poll record: %w", err)
	}
	err = s.rdb.ZAdd(ctx, recordsKey, redis.Z{
		Score:  float64(record.CompletedAt.UnixMilli()),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("append poll record: %w", err)
	}
	return nil
}

// List returns all archived records, most recently completed first.
func (s *RedisStore) List(ctx context.Context) ([]domain.PollRecord, error) {
	members, err := s.rdb.ZRevRange(ctx, recordsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list poll records: %w", err)
	}
	records := make([]domain.PollRecord, 0, len(members))
	for _, m := range members {
		var record domain.PollRecord
		if err := json.Unmarshal([]byte(m), &record); err != nil {
			return nil, fmt.Errorf("unmarshal poll record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
