// Package cache keeps exam definitions in redis. Definitions are read on
// every start and submit but change rarely once an exam is live.
package cache

import (
	"context"
	"encoding/json"
	"examhub_backend/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
)

const examKeyPrefix = "exam:definition:"

type RedisExamCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisExamCache(rdb *redis.Client, ttl time.Duration) *RedisExamCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisExamCache{Redis: rdb, TTL: ttl}
}

// GetExam returns nil without error on a cache miss.
func (c *RedisExamCache) GetExam(ctx context.Context, id string) (*model.Exam, error) {
	val, err := c.Redis.Get(ctx, examKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var exam model.Exam
	if err := json.Unmarshal(val, &exam); err != nil {
		// a stale or foreign value is treated as a miss and dropped
		c.Redis.Del(ctx, examKeyPrefix+id)
		return nil, nil
	}
	return &exam, nil
}

func (c *RedisExamCache) SetExam(ctx context.Context, exam *model.Exam) error {
	data, err := json.Marshal(exam)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, examKeyPrefix+exam.ID, data, c.TTL).Err()
}

func (c *RedisExamCache) InvalidateExam(ctx context.Context, id string) error {
	return c.Redis.Del(ctx, examKeyPrefix+id).Err()
}
