package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"captchaSolver/database"
	"captchaSolver/models"
)

const taskKeyPrefix = "captcha:task:"

// takeScript reads a task record and, when it is terminal, deletes it in the
// same call. Two pollers racing on the same id cannot both receive the
// payload: the second GET runs after the first caller's DEL.
var takeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  return false
end
local t = cjson.decode(v)
if t.status ~= 'processing' then
  redis.call('DEL', KEYS[1])
end
return v
`)

type RedisStore struct {
	db  *database.Redis
	ttl time.Duration
}

func NewRedisStore(db *database.Redis, ttl time.Duration) *RedisStore {
	return &RedisStore{db: db, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, task *models.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.db.Client.Set(ctx, taskKey(task.ID), data, s.ttl).Err()
}

func (s *RedisStore) Update(ctx context.Context, task *models.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	// Re-arm the TTL so an unpolled terminal record still expires on its own.
	return s.db.Client.Set(ctx, taskKey(task.ID), data, s.ttl).Err()
}

func (s *RedisStore) Take(ctx context.Context, id string) (*models.Task, error) {
	res, err := takeScript.Run(ctx, s.db.Client, []string{taskKey(id)}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("take task %s: %w", id, err)
	}

	raw, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("take task %s: unexpected reply type %T", id, res)
	}

	var task models.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &task, nil
}

func (s *RedisStore) CountActive(ctx context.Context) (int, error) {
	var count int
	iter := s.db.Client.Scan(ctx, 0, taskKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *RedisStore) Close() error {
	return s.db.Close()
}

func taskKey(id string) string {
	return taskKeyPrefix + id
}
